package middleware

import (
	"log"
	"net/http"

	"restaurantpos/internal/common"

	"github.com/labstack/echo/v4"
)

// AuditMutations logs who changed what: every non-GET request that reached
// a handler is recorded with the caller, the role it was authorized as and
// the outcome.
func AuditMutations() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			method := c.Request().Method
			if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
				return err
			}

			user := "anonymous"
			if userID, ok := common.GetUserIDFromContext(c.Request().Context()); ok {
				user = userID.String()
			}
			// The RBAC guard stores the role on the request it passes on; read it from there
			role, _ := common.GetRoleFromContext(c.Request().Context())
			if role == "" {
				role = "-"
			}

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			log.Printf("INFO: audit user=%s role=%s %s %s status=%d request_id=%s",
				user, role, method, c.Path(), status, c.Response().Header().Get(echo.HeaderXRequestID))
			return err
		}
	}
}
