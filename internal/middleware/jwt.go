package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"lumiscan/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Authenticator validates provider-issued JWTs and injects the caller's
// identity into the request context. Every repository query predicates on
// that identity, which is how row ownership is enforced end to end.
type Authenticator struct {
	jwks   *keyfunc.JWKS
	secret []byte
}

// NewAuthenticator builds an Authenticator. When jwksURL is set, tokens are
// verified against the auth provider's published key set; otherwise the
// HS256 secret is used (local development).
func NewAuthenticator(jwksURL, secret string) (*Authenticator, error) {
	a := &Authenticator{secret: []byte(secret)}

	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshErrorHandler: func(err error) {
				log.Printf("WARN: JWKS refresh failed: %v", err)
			},
		})
		if err != nil {
			return nil, err
		}
		a.jwks = jwks
	}

	return a, nil
}

func (a *Authenticator) keyFunc(token *jwt.Token) (interface{}, error) {
	if a.jwks != nil {
		return a.jwks.Keyfunc(token)
	}
	return a.secret, nil
}

// Middleware returns the echo middleware enforcing authentication.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			token, err := jwt.Parse(tokenString, a.keyFunc)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			if !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token not valid")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid claims")
			}

			sub, ok := claims["sub"].(string)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing subject in token")
			}

			userID, err := uuid.Parse(sub)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid subject format")
			}

			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
			if email, ok := claims["email"].(string); ok {
				ctx = context.WithValue(ctx, common.EmailKey, email)
			}
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
