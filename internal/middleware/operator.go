package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"lumiscan/internal/common"

	"github.com/labstack/echo/v4"
)

// OperatorMiddleware guards the privileged bypass surface. The operator
// capability is a single pre-shared key presented explicitly per request; it
// is checked here at the service boundary, never inferred from a user token.
func OperatorMiddleware(operatorKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if operatorKey == "" {
				return echo.NewHTTPError(http.StatusForbidden, "Operator access is not configured")
			}

			presented := c.Request().Header.Get("X-Operator-Key")
			if presented == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing operator key")
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(operatorKey)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid operator key")
			}

			ctx := context.WithValue(c.Request().Context(), common.OperatorKey, true)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
