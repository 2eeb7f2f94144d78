package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/infrastructure/db/file"
	"github.com/adminkit/admin-console/pkg/logger"
)

const principalJSON = `{"id": 1, "username": "admin", "email": "admin@example.com", "enabled": true,
	"groups": [{"id": 1, "name": "admins", "roles": [{"id": 1, "name": "ADMIN",
		"permissions": [{"id": 2, "name": "USER_READ"}, {"id": 1, "name": "SYSTEM_MANAGE"}]}]}]}`

// fakeAPI is the admin API the commands talk to. It records the last
// /users query.
type fakeAPI struct {
	mu        sync.Mutex
	lastQuery url.Values
}

func (f *fakeAPI) query() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func (f *fakeAPI) register(e *echo.Echo) {
	e.POST("/auth/login", func(c echo.Context) error {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.Bind(&body); err != nil || body.Password != "secret" {
			return c.JSON(http.StatusUnauthorized, map[string]any{"status": 401, "message": "Bad credentials"})
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(
			`{"accessToken": "access-1", "refreshToken": "refresh-1", "expiresIn": 3600, "user": `+principalJSON+`}`))
	})
	e.POST("/auth/refresh", func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "Bearer refresh-1" {
			return c.JSON(http.StatusUnauthorized, map[string]any{"status": 401, "message": "Invalid refresh token"})
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(
			`{"accessToken": "access-2", "expiresIn": 3600, "user": `+principalJSON+`}`))
	})
	e.GET("/users", func(c echo.Context) error {
		f.mu.Lock()
		f.lastQuery = c.QueryParams()
		f.mu.Unlock()
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, []byte(`{
			"content": [{"id": 7, "username": "alice", "email": "alice@example.com", "enabled": true,
				"groups": [{"id": 2, "name": "ops", "roles": [{"id": 3, "name": "OPERATOR"}]}]}],
			"totalElements": 6, "totalPages": 2, "size": 5, "number": 1}`))
	})
}

type harness struct {
	api       *fakeAPI
	statePath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := &fakeAPI{}
	e := echo.New()
	e.HideBanner = true
	api.register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	h := &harness{api: api, statePath: filepath.Join(t.TempDir(), "state.yaml")}
	t.Setenv("CONSOLE_API_URL", srv.URL)
	t.Setenv("CONSOLE_STORE", "file")
	t.Setenv("CONSOLE_STORE_PATH", h.statePath)
	t.Setenv("CONSOLE_PROFILE", "default")
	t.Setenv("LOG_LEVEL", "error")
	t.Cleanup(logger.Reset)
	return h
}

// run executes the root command and returns stdout.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) credentials(t *testing.T, profile string) domain.Credentials {
	t.Helper()
	creds, err := file.NewStore(h.statePath, profile, "").Load(context.Background())
	require.NoError(t, err)
	return creds
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantOut string
		wantErr string
	}{
		{
			name:    "password flag",
			args:    []string{"login", "admin", "--password", "secret"},
			wantOut: "Logged in as admin",
		},
		{
			name:    "prompted password",
			stdin:   "secret\n",
			args:    []string{"login", "admin"},
			wantOut: "Logged in as admin",
		},
		{
			name:    "bad credentials",
			args:    []string{"login", "admin", "--password", "wrong"},
			wantErr: "Bad credentials",
		},
		{
			name:    "missing username",
			args:    []string{"login"},
			wantErr: "accepts 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			out, err := h.run(t, tt.stdin, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, h.credentials(t, "default").IsZero(), "failed login must not store tokens")
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.wantOut)
			assert.Equal(t, domain.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}, h.credentials(t, "default"))
		})
	}
}

func TestLogin_BadCredentialsKeepsCause(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "login", "admin", "--password", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
}

func TestWhoami(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)

	_, err = h.run(t, "", "login", "admin", "--password", "secret")
	require.NoError(t, err)

	out, err := h.run(t, "", "whoami", "-o", "json")
	require.NoError(t, err)
	var got whoami
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, []string{"ADMIN"}, got.Roles)
	assert.Equal(t, []string{"SYSTEM_MANAGE", "USER_READ"}, got.Permissions)
	assert.Contains(t, got.Sections, "Users")
	assert.Contains(t, got.Sections, "Audit Logs")

	// whoami restored the principal through a refresh.
	assert.Equal(t, "access-2", h.credentials(t, "default").AccessToken)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "login", "admin", "--password", "secret")
	require.NoError(t, err)

	out, err := h.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.True(t, h.credentials(t, "default").IsZero())

	_, err = h.run(t, "", "logout")
	require.NoError(t, err, "logout is idempotent")
}

func TestProfileFlagIsolatesSessions(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "login", "admin", "--password", "secret", "--profile", "staging")
	require.NoError(t, err)

	assert.False(t, h.credentials(t, "staging").IsZero())
	assert.True(t, h.credentials(t, "default").IsZero())

	_, err = h.run(t, "", "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestUsersList(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "login", "admin", "--password", "secret")
	require.NoError(t, err)

	out, err := h.run(t, "", "users", "list", "--search", " ali ", "--status", "enabled",
		"--sort", "username", "--desc", "--page", "2", "--size", "5")
	require.NoError(t, err)

	q := h.api.query()
	assert.Equal(t, "ali", q.Get("search"))
	assert.Equal(t, "true", q.Get("enabled"))
	assert.Equal(t, "username,desc", q.Get("sort"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "5", q.Get("size"))
	assert.False(t, q.Has("showDeleted"))

	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "OPERATOR")
	assert.Contains(t, out, "Page 2 of 2 (6 users)")
}

func TestUsersList_InvalidFlagsSkipNetwork(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "status", args: []string{"--status", "maybe"}, wantErr: "--status"},
		{name: "page", args: []string{"--page", "0"}, wantErr: "--page"},
		{name: "size", args: []string{"--size", "101"}, wantErr: "--size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.run(t, "", append([]string{"users", "list"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, h.api.query())
		})
	}
}

func TestUsersList_RequiresLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "users", "list")
	require.ErrorIs(t, err, errNotLoggedIn)
	assert.Nil(t, h.api.query())
}

func TestOutputFormatValidated(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "whoami", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestAPIURLFlagOverridesEnvironment(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "login", "admin", "--password", "secret", "--api-url", "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONSOLE_API_URL")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, e, "127.0.0.1:0", zerolog.Nop()) }()

	require.Eventually(t, func() bool { return e.ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + e.ListenerAddr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
