package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/service"
)

// PrincipalKey is the echo context key holding the *domain.User that
// passed RBAC.
const PrincipalKey = "principal"

// PrincipalSource yields the authenticated principal, or nil.
type PrincipalSource interface {
	Principal() *domain.User
}

// RBAC allows the request when the principal holds any of permissions.
func RBAC(src PrincipalSource, permissions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := src.Principal()
			if !service.HasAnyPermission(p, permissions...) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			c.Set(PrincipalKey, p)
			return next(c)
		}
	}
}
