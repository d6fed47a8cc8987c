package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/demotours/tour-builder/internal/api/middleware"
	"github.com/demotours/tour-builder/internal/core/domain"
)

// ctxUserID returns the caller id injected by the Auth middleware. An empty
// value means the route was mounted without Auth, which is treated as an
// unauthenticated request rather than a server bug.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.ContextUserID).(string)
	if id == "" {
		return "", domain.ErrUnauthenticated
	}
	return id, nil
}
