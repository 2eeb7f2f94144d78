package handler

import (
	"context"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/core/service"
)

// PostLoginRouter picks where a freshly authenticated user lands.
type PostLoginRouter interface {
	PostLoginTarget(returnURL string) string
}

type AuthHandler struct {
	session ports.SessionService
	router  PostLoginRouter
}

func NewAuthHandler(session ports.SessionService, router PostLoginRouter) *AuthHandler {
	return &AuthHandler{session: session, router: router}
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
	ReturnURL  string `json:"returnUrl"`
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	ReturnURL string `json:"returnUrl"`
}

type authResponse struct {
	User     *domain.User `json:"user,omitempty"`
	Redirect string       `json:"redirect,omitempty"`
}

type meResponse struct {
	User        *domain.User      `json:"user"`
	Permissions []string          `json:"permissions"`
	NavItems    []service.NavItem `json:"navItems"`
}

// Login authenticates against the admin API and stores the token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	sess, err := h.session.Login(c.Request().Context(), ports.LoginInput{
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{User: sess.User, Redirect: h.router.PostLoginTarget(req.ReturnURL)})
}

// Register creates an account and signs it in.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	sess, err := h.session.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{User: sess.User, Redirect: h.router.PostLoginTarget(req.ReturnURL)})
}

// Logout drops the stored tokens. It always succeeds.
//
// @Summary      Logout
// @Tags         auth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.session.Logout(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// Refresh exchanges the stored refresh token for a new access token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Produce      json
// @Success      200  {object}  authResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	sess, err := h.session.Refresh(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{User: sess.User})
}

// LoginPage sends an already authenticated visitor on to their target.
//
// @Summary      Login entry point
// @Tags         auth
// @Produce      json
// @Param        returnUrl  query  string  false  "Where to go after login"
// @Success      200  {object}  map[string]string
// @Success      302
// @Router       /login [get]
func (h *AuthHandler) LoginPage(c echo.Context) error {
	returnURL := c.QueryParam(service.ReturnURLQueryParam)
	if h.session.IsAuthenticated(c.Request().Context()) {
		return c.Redirect(http.StatusFound, h.router.PostLoginTarget(returnURL))
	}
	return c.JSON(http.StatusOK, map[string]string{"returnUrl": returnURL})
}

// Me describes the principal and what the console shows them.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]string
// @Router       /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := h.principal(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{
		User:        p,
		Permissions: permissionNames(p),
		NavItems:    service.VisibleNavItems(p),
	})
}

// principal returns the loaded principal, hydrating it through a refresh
// when only the tokens survived a restart.
func (h *AuthHandler) principal(ctx context.Context) (*domain.User, error) {
	if p := h.session.Principal(); p != nil {
		return p, nil
	}
	sess, err := h.session.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if sess.User == nil {
		return nil, domain.ErrUnauthenticated
	}
	return sess.User, nil
}

func permissionNames(p *domain.User) []string {
	seen := make(map[string]struct{})
	for _, r := range p.Roles() {
		for _, perm := range r.Permissions {
			seen[perm.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
