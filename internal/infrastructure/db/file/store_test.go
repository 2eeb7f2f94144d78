package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/admin-console/internal/core/domain"
)

func TestStore_PlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")
	store := NewStore(path, "default", "")
	ctx := context.Background()

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, creds.IsZero())

	want := domain.Credentials{AccessToken: "a1", RefreshToken: "r1"}
	require.NoError(t, store.Save(ctx, want))

	got, err := NewStore(path, "default", "").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_SetAccessTokenKeepsRefresh(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.yaml"), "default", "")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Credentials{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, store.SetAccessToken(ctx, "a2"))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Credentials{AccessToken: "a2", RefreshToken: "r1"}, got)
}

func TestStore_ClearIsIdempotentAndKeepsPreferences(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.yaml"), "default", "")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Credentials{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, store.SavePreferences(ctx, domain.Preferences{SidebarCollapsed: true}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, creds.IsZero())

	prefs, err := store.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.True(t, prefs.SidebarCollapsed)
}

func TestStore_ProfilesShareOneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	ctx := context.Background()

	require.NoError(t, NewStore(path, "prod", "").Save(ctx, domain.Credentials{AccessToken: "p", RefreshToken: "pr"}))
	require.NoError(t, NewStore(path, "staging", "").Save(ctx, domain.Credentials{AccessToken: "s", RefreshToken: "sr"}))

	prod, err := NewStore(path, "prod", "").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p", prod.AccessToken)

	staging, err := NewStore(path, "staging", "").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s", staging.AccessToken)
}

func TestStore_SealedTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	ctx := context.Background()
	store := NewStore(path, "default", "correct horse")

	require.NoError(t, store.Save(ctx, domain.Credentials{AccessToken: "secret-access", RefreshToken: "secret-refresh"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-access")
	assert.NotContains(t, string(raw), "secret-refresh")
	assert.True(t, strings.Contains(string(raw), sealedPrefix))

	got, err := NewStore(path, "default", "correct horse").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-access", got.AccessToken)
	assert.Equal(t, "secret-refresh", got.RefreshToken)

	_, err = NewStore(path, "default", "").Load(ctx)
	assert.ErrorIs(t, err, ErrLocked)

	_, err = NewStore(path, "default", "wrong").Load(ctx)
	assert.Error(t, err)
}

func TestStore_SealedValueBoundToSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	ctx := context.Background()
	store := NewStore(path, "default", "pw")
	require.NoError(t, store.Save(ctx, domain.Credentials{AccessToken: "a", RefreshToken: "r"}))

	doc, err := store.read()
	require.NoError(t, err)
	p := doc.Profiles["default"]
	p.Credentials.AccessToken, p.Credentials.RefreshToken = p.Credentials.RefreshToken, p.Credentials.AccessToken
	require.NoError(t, store.write(doc))

	_, err = store.Load(ctx)
	assert.Error(t, err)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [not, a, map"), 0o600))

	store := NewStore(path, "default", "")
	assert.Error(t, store.Ping(context.Background()))
	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.yaml"), "default", "")
	ctx := context.Background()

	for range 3 {
		require.NoError(t, store.SetAccessToken(ctx, "tok"))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.yaml", entries[0].Name())
}
