package middleware

import (
	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/services"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct {
	rbacService services.RBACService
}

func NewRBACMiddleware(rbacService services.RBACService) *RBACMiddleware {
	return &RBACMiddleware{
		rbacService: rbacService,
	}
}

// RequireAction lets the request through when the caller's current role may
// perform any of actions. The role is read from the profile on every request.
// It panics when no action is given so a misconfigured route fails at start-up.
func (m *RBACMiddleware) RequireAction(actions ...models.Action) echo.MiddlewareFunc {
	if len(actions) == 0 {
		panic("middleware: RequireAction needs at least one action")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return common.SendError(c, errors.Wrap(common.ErrUnauthenticated, "user not authenticated"))
			}

			role, err := m.rbacService.CurrentRole(ctx, userID)
			if err != nil {
				return common.SendError(c, err)
			}
			for _, action := range actions {
				if services.Allowed(role, action) {
					c.SetRequest(c.Request().WithContext(common.WithRole(ctx, string(role))))
					return next(c)
				}
			}
			return common.SendError(c, services.Deny(role, actions[0]))
		}
	}
}
