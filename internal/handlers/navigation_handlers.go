package handlers

import (
	"net/http"
	"strings"

	"restaurantpos/internal/common"
	"restaurantpos/internal/services"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
)

// NavigationHandlers answers whether the current user may open a page
type NavigationHandlers struct {
	rbacService services.RBACService
}

func NewNavigationHandlers(rbacService services.RBACService) *NavigationHandlers {
	return &NavigationHandlers{
		rbacService: rbacService,
	}
}

// Navigate handles GET /navigate?route=/menu. A denial is a normal 200
// response carrying the redirect and the notice to show.
func (h *NavigationHandlers) Navigate(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendError(c, errors.Wrap(common.ErrUnauthenticated, "user not found in context"))
	}

	route := strings.TrimSpace(c.QueryParam("route"))
	if route == "" {
		return common.SendValidationError(c, "route", "route is required")
	}

	decision, err := h.rbacService.Navigate(ctx, userID, route)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, decision)
}
