package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/demotours/tour-builder/internal/core/ports"
)

// Context keys set by Auth.
const (
	ContextUserID   = "user_id"
	ContextUserName = "user_name"
	ContextRole     = "role"
)

var errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")

// Auth validates the bearer token and injects the caller identity into context.
// Missing, malformed, expired and forged tokens all get the same 401.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return errUnauthenticated
			}

			id, err := verifier.VerifyToken(strings.TrimSpace(parts[1]))
			if err != nil {
				return errUnauthenticated
			}

			c.Set(ContextUserID, id.UserID)
			c.Set(ContextUserName, id.Name)
			c.Set(ContextRole, id.Role)

			return next(c)
		}
	}
}
