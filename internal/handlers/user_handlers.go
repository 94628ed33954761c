package handlers

import (
	"net/http"
	"strings"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/services"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
)

// UserHandlers handles user management requests
type UserHandlers struct {
	userService services.UserService
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(userService services.UserService) *UserHandlers {
	return &UserHandlers{
		userService: userService,
	}
}

// UpdateRoleRequest is the PUT /users/:id/role payload
type UpdateRoleRequest struct {
	Role models.Role `json:"role"`
}

// ListUsers handles GET /users?q=&role=
func (h *UserHandlers) ListUsers(c echo.Context) error {
	filter := &models.ProfileFilter{
		Query: common.SanitizeSearchQuery(c.QueryParam("q")),
		Role:  models.Role(strings.TrimSpace(c.QueryParam("role"))),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return common.SendValidationError(c, "role", "role must be one of: admin, manager, cashier")
	}

	users, err := h.userService.ListUsers(c.Request().Context(), filter)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

// UpdateUserRole handles PUT /users/:id/role
func (h *UserHandlers) UpdateUserRole(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendError(c, errors.Wrap(common.ErrUnauthenticated, "user not found in context"))
	}

	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendError(c, err)
	}

	var req UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	profile, err := h.userService.UpdateRole(ctx, actorID, userID, req.Role)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}
