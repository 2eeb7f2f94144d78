package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/core/service"
	"github.com/adminkit/admin-console/internal/pkg/validation"
)

type stubSession struct {
	loginFn       func(ctx context.Context, in ports.LoginInput) (*domain.Session, error)
	registerFn    func(ctx context.Context, in ports.RegisterInput) (*domain.Session, error)
	refreshFn     func(ctx context.Context) (*domain.Session, error)
	authenticated bool
	principal     *domain.User
	logouts       int
}

func (s *stubSession) Login(ctx context.Context, in ports.LoginInput) (*domain.Session, error) {
	return s.loginFn(ctx, in)
}

func (s *stubSession) Register(ctx context.Context, in ports.RegisterInput) (*domain.Session, error) {
	return s.registerFn(ctx, in)
}

func (s *stubSession) Logout(context.Context) { s.logouts++ }

func (s *stubSession) Refresh(ctx context.Context) (*domain.Session, error) {
	return s.refreshFn(ctx)
}

func (s *stubSession) IsAuthenticated(context.Context) bool { return s.authenticated }

func (s *stubSession) Principal() *domain.User { return s.principal }

type fixedAuth bool

func (f fixedAuth) IsAuthenticated(context.Context) bool { return bool(f) }

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func admin() *domain.User {
	return &domain.User{ID: 1, Username: "alice", Groups: []domain.Group{{Name: "admins", Roles: []domain.Role{{
		ID:   1,
		Name: "ADMIN",
		Permissions: []domain.Permission{
			{Name: domain.PermUserRead},
			{Name: domain.PermSystemManage},
		},
	}}}}}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubSession{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*domain.Session, error) {
			if in.Username != "alice" || in.Password != "secret" || !in.RememberMe {
				t.Fatalf("unexpected args: %+v", in)
			}
			return &domain.Session{User: admin()}, nil
		},
	}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(true), "/dashboard"))

	req := jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"secret","rememberMe":true,"returnUrl":"/users?page=2"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["redirect"] != "/users?page=2" {
		t.Fatalf("expected return URL redirect, got %v", resp["redirect"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "alice" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Login_ForeignReturnURLFallsBackToLanding(t *testing.T) {
	e := newEcho()
	stub := &stubSession{
		loginFn: func(context.Context, ports.LoginInput) (*domain.Session, error) {
			return &domain.Session{User: admin()}, nil
		},
	}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(true), "/dashboard"))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"secret","returnUrl":"//evil.example"}`), rec)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp authResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Redirect != "/dashboard" {
		t.Fatalf("expected landing route, got %q", resp.Redirect)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubSession{
		loginFn: func(context.Context, ports.LoginInput) (*domain.Session, error) {
			return nil, domain.NewAPIError(401, "", domain.ErrInvalidCredentials)
		},
	}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(false), ""))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"alice","password":"bad"}`), rec)

	if err := handler.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newEcho()
	stub := &stubSession{
		loginFn: func(context.Context, ports.LoginInput) (*domain.Session, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(false), ""))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", "{"), rec)

	_ = handler.Login(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubSession{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.Session, error) {
			if in.Username != "bob" || in.Email != "bob@example.com" {
				t.Fatalf("unexpected args: %+v", in)
			}
			return &domain.Session{User: &domain.User{Username: "bob"}}, nil
		},
	}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(true), ""))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", `{"username":"bob","email":"bob@example.com","password":"password1"}`), rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	e := newEcho()
	stub := &stubSession{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.Session, error) {
			return nil, domain.NewAPIError(409, "Username already exists", domain.ErrUsernameTaken, domain.ErrConflict)
		},
	}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(false), ""))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/register", `{"username":"bob"}`), rec)

	if err := handler.Register(c); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	e := newEcho()
	stub := &stubSession{}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(false), ""))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), rec)
	if err := handler.Logout(c); err != nil || rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected logout result %d / %v", rec.Code, err)
	}
	if stub.logouts != 1 {
		t.Fatalf("expected one logout, got %d", stub.logouts)
	}
}

func TestAuthHandler_LoginPage_RedirectsWhenAuthenticated(t *testing.T) {
	e := newEcho()
	stub := &stubSession{authenticated: true}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(true), "/dashboard"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/login?returnUrl=%2Faudit-logs", nil), rec)
	if err := handler.LoginPage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/audit-logs" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newEcho()
	stub := &stubSession{principal: admin()}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(true), ""))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/me", nil), rec)
	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Permissions) != 2 || resp.Permissions[0] != domain.PermSystemManage {
		t.Fatalf("unexpected permissions %v", resp.Permissions)
	}
	if len(resp.NavItems) != 6 {
		t.Fatalf("admin should see every nav item, got %d", len(resp.NavItems))
	}
}

func TestAuthHandler_Me_HydratesAfterRestart(t *testing.T) {
	e := newEcho()
	refreshed := 0
	stub := &stubSession{refreshFn: func(context.Context) (*domain.Session, error) {
		refreshed++
		return &domain.Session{User: &domain.User{Username: "carol"}}, nil
	}}
	handler := NewAuthHandler(stub, service.NewNavigationGuard(fixedAuth(true), ""))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/me", nil), rec)
	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp meResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if refreshed != 1 || resp.User == nil || resp.User.Username != "carol" {
		t.Fatalf("expected hydrated principal, got %+v", resp.User)
	}
	if len(resp.Permissions) != 0 || len(resp.NavItems) != 3 {
		t.Fatalf("roleless principal should only see public items, got %v", resp.NavItems)
	}
}
