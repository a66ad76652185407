package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pocketchange/pocketchange-api/internal/core/domain"
)

// AccessVerifier resolves a raw access token into its payload.
type AccessVerifier interface {
	VerifyAccess(token string) (domain.TokenPayload, error)
}

// Authenticate resolves the caller's identity from the Bearer access token
// and injects it into context. It performs no role checks; compose with
// RequireRole for authorization.
func Authenticate(verifier AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			payload, err := verifier.VerifyAccess(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set("user_id", payload.Subject)
			c.Set("role", payload.Role)

			return next(c)
		}
	}
}
