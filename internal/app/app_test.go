package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/service"
	"github.com/adminkit/admin-console/internal/infrastructure/config"
)

const authJSON = `{
	"accessToken": "access-1",
	"refreshToken": "refresh-1",
	"tokenType": "Bearer",
	"expiresIn": 3600,
	"user": {"id": 1, "username": "admin", "email": "admin@example.com", "enabled": true,
		"groups": [{"id": 1, "name": "admins", "roles": [{"id": 1, "name": "ADMIN",
			"permissions": [{"id": 1, "name": "USER_READ"}, {"id": 2, "name": "SYSTEM_MANAGE"}]}]}]}
}`

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	e := echo.New()
	e.HideBanner = true
	e.GET("/auth/login", func(c echo.Context) error {
		return c.NoContent(http.StatusMethodNotAllowed)
	})
	e.POST("/auth/login", func(c echo.Context) error {
		var in struct {
			Username string `json:"username"`
		}
		_ = c.Bind(&in)
		body := authJSON
		if in.Username != "" {
			body = strings.Replace(body, `"username": "admin"`, `"username": "`+in.Username+`"`, 1)
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(body))
	})
	e.GET("/users", func(c echo.Context) error {
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(`{
			"content": [{"id": 7, "username": "alice", "email": "alice@example.com", "enabled": true}],
			"totalElements": 1, "totalPages": 1, "size": 10, "number": 0}`))
	})
	e.POST("/auth/refresh", func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "Bearer refresh-1" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid refresh token"})
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(strings.Replace(authJSON, `"access-1"`, `"access-2"`, 1)))
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Env:      "test",
		LogLevel: "debug",
		API:      config.APIConfig{BaseURL: apiURL, Timeout: time.Second},
		Console: config.ConsoleConfig{
			SearchDebounce: 10 * time.Millisecond,
			PageSize:       10,
			LandingRoute:   "/dashboard",
			Workers:        2,
		},
		Store: config.StoreConfig{
			Backend: config.StoreFile,
			Path:    filepath.Join(t.TempDir(), "state.yaml"),
			Profile: "default",
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestOpenStore_Backends(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		store, err := OpenStore(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Store.Backend = config.StoreRedis
		cfg.Redis.Addr = mr.Addr()

		store, err := OpenStore(ctx, cfg)
		require.NoError(t, err)
		defer store.Close(ctx)
		require.NoError(t, store.Save(ctx, domain.Credentials{AccessToken: "a", RefreshToken: "r"}))
		assert.Equal(t, "a", mr.HGet("console:default:session", "access_token"))
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.Store.Backend = "etcd"
		_, err := OpenStore(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "etcd")
	})
}

func TestRouter_LoginThroughBFF(t *testing.T) {
	srv := fakeAPI(t)
	a := newTestApp(t, testConfig(t, srv.URL))
	e := a.Router()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"admin","password":"secret"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/dashboard", body.Redirect)

	creds, err := a.Store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}, creds)
	require.NotNil(t, a.Session.Principal())
	assert.Equal(t, "admin", a.Session.Principal().Username)
}

func TestRouter_LogoutResetsViewState(t *testing.T) {
	srv := fakeAPI(t)
	a := newTestApp(t, testConfig(t, srv.URL))
	e := a.Router()

	do := func(method, target, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		if body != "" {
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}
	listState := func() service.UserListState {
		t.Helper()
		rec := do(http.MethodGet, "/users", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var st service.UserListState
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
		return st
	}

	require.Equal(t, http.StatusOK, do(http.MethodPost, "/auth/login", `{"username":"operator-a","password":"secret"}`).Code)
	listState()
	require.Equal(t, http.StatusOK, do(http.MethodPost, "/users/selection/7", "").Code)
	require.NoError(t, a.Users.SetRoleFilter(context.Background(), "ADMIN"))
	a.Panel.OpenCreate()
	a.Panel.Update(service.UserForm{Username: "draft", Password: "typed-secret"})

	require.Equal(t, http.StatusNoContent, do(http.MethodPost, "/auth/logout", "").Code)
	st := a.Users.State()
	assert.Nil(t, st.Page)
	assert.Empty(t, st.Selected)
	assert.Empty(t, st.Query.RoleFilter)
	assert.False(t, a.Panel.State().Open)
	assert.Empty(t, a.Panel.State().Form.Password)

	require.Equal(t, http.StatusOK, do(http.MethodPost, "/auth/login", `{"username":"operator-b","password":"secret"}`).Code)
	require.Equal(t, "operator-b", a.Session.Principal().Username)
	st = listState()
	assert.Empty(t, st.Selected)
	assert.Empty(t, st.Query.RoleFilter)
	require.NotNil(t, st.Page)
	assert.Len(t, st.Page.Content, 1)
}

func TestRouter_GuardRedirectsAnonymous(t *testing.T) {
	a := newTestApp(t, testConfig(t, "http://127.0.0.1:1"))
	e := a.Router()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?returnUrl=%2Fusers", rec.Header().Get(echo.HeaderLocation))
}

func TestRouter_Readiness(t *testing.T) {
	srv := fakeAPI(t)
	a := newTestApp(t, testConfig(t, srv.URL))

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	srv.Close()
	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin_api")
}

func TestHydrate(t *testing.T) {
	srv := fakeAPI(t)
	ctx := context.Background()

	t.Run("no credentials", func(t *testing.T) {
		a := newTestApp(t, testConfig(t, srv.URL))
		a.Hydrate(ctx)
		assert.Nil(t, a.Session.Principal())
	})

	t.Run("stored credentials", func(t *testing.T) {
		a := newTestApp(t, testConfig(t, srv.URL))
		require.NoError(t, a.Store.Save(ctx, domain.Credentials{AccessToken: "stale", RefreshToken: "refresh-1"}))

		a.Hydrate(ctx)
		require.NotNil(t, a.Session.Principal())
		creds, err := a.Store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "access-2", creds.AccessToken)
		assert.Equal(t, "refresh-1", creds.RefreshToken)
	})

	t.Run("rejected refresh token", func(t *testing.T) {
		a := newTestApp(t, testConfig(t, srv.URL))
		require.NoError(t, a.Store.Save(ctx, domain.Credentials{AccessToken: "stale", RefreshToken: "revoked"}))

		a.Hydrate(ctx)
		assert.Nil(t, a.Session.Principal())
		creds, err := a.Store.Load(ctx)
		require.NoError(t, err)
		assert.True(t, creds.IsZero())
	})
}
