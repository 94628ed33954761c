package middleware

import (
	"restaurantpos/internal/common"
	"restaurantpos/internal/services"

	"github.com/cockroachdb/errors"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTConfig validates bearer tokens through the auth service and stores the
// account id in the request context. Roles are never taken from the token.
func JWTConfig(authSvc services.AuthService) echojwt.Config {
	return echojwt.Config{
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			claims, err := authSvc.ValidateToken(c.Request().Context(), auth)
			if err != nil {
				return nil, err
			}
			userID, err := claims.AccountID()
			if err != nil {
				return nil, errors.Wrap(common.ErrUnauthenticated, "token has no valid subject")
			}
			c.SetRequest(c.Request().WithContext(common.WithUserID(c.Request().Context(), userID)))
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendError(c, errors.Mark(errors.Wrap(err, "missing or invalid token"), common.ErrUnauthenticated))
		},
	}
}

// JWTMiddleware is the echo middleware built from JWTConfig
func JWTMiddleware(authSvc services.AuthService) echo.MiddlewareFunc {
	return echojwt.WithConfig(JWTConfig(authSvc))
}
