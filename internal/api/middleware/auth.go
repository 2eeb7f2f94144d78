package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adminkit/admin-console/internal/core/service"
)

// RouteGuard decides whether a target may be entered.
type RouteGuard interface {
	CanEnter(ctx context.Context, targetURL string) service.Decision
}

// Auth sends visitors without a stored access token to the login route,
// carrying the requested URL as returnUrl.
func Auth(guard RouteGuard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := guard.CanEnter(c.Request().Context(), c.Request().URL.RequestURI())
			if !d.Allow {
				return c.Redirect(http.StatusFound, d.Redirect)
			}
			return next(c)
		}
	}
}
