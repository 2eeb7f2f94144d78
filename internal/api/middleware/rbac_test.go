package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/adminkit/admin-console/internal/core/domain"
)

type fixedPrincipal struct{ user *domain.User }

func (f fixedPrincipal) Principal() *domain.User { return f.user }

func reader() *domain.User {
	return &domain.User{Username: "alice", Groups: []domain.Group{{Roles: []domain.Role{{
		Name:        "VIEWER",
		Permissions: []domain.Permission{{Name: domain.PermUserRead}},
	}}}}}
}

func TestRBAC_Allows(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := RBAC(fixedPrincipal{reader()}, domain.PermSystemManage, domain.PermUserRead)
	handler := mw(func(c echo.Context) error {
		called = true
		if p, _ := c.Get(PrincipalKey).(*domain.User); p == nil || p.Username != "alice" {
			t.Fatalf("principal not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRBAC_Forbids(t *testing.T) {
	for name, src := range map[string]fixedPrincipal{
		"missing permission": {reader()},
		"no principal":       {nil},
	} {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			mw := RBAC(src, domain.PermSystemManage)
			handler := mw(func(c echo.Context) error {
				t.Fatalf("should not reach next handler")
				return nil
			})

			_ = handler(c)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rec.Code)
			}
		})
	}
}
