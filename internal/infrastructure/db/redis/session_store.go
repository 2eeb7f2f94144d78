package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/adminkit/admin-console/internal/core/domain"
)

const (
	fieldAccess  = "access_token"
	fieldRefresh = "refresh_token"

	fieldDarkMode = "dark_mode"
	fieldSidebar  = "sidebar_collapsed"
)

// SessionStore keeps a console profile's credentials and preferences in
// two Redis hashes.
// Key format: console:<profile>:session and console:<profile>:prefs
type SessionStore struct {
	client  *redis.Client
	profile string
}

// NewSessionStore creates a SessionStore for profile wrapping the given client.
func NewSessionStore(client *redis.Client, profile string) *SessionStore {
	return &SessionStore{client: client, profile: profile}
}

func (s *SessionStore) Load(ctx context.Context) (domain.Credentials, error) {
	vals, err := s.client.HMGet(ctx, s.sessionKey(), fieldAccess, fieldRefresh).Result()
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	return domain.Credentials{
		AccessToken:  asString(vals[0]),
		RefreshToken: asString(vals[1]),
	}, nil
}

// Save writes both slots with one HSET, so readers never see a mixed pair.
func (s *SessionStore) Save(ctx context.Context, creds domain.Credentials) error {
	err := s.client.HSet(ctx, s.sessionKey(),
		fieldAccess, creds.AccessToken,
		fieldRefresh, creds.RefreshToken,
	).Err()
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *SessionStore) SetAccessToken(ctx context.Context, token string) error {
	if err := s.client.HSet(ctx, s.sessionKey(), fieldAccess, token).Err(); err != nil {
		return fmt.Errorf("set access token: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.sessionKey()).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *SessionStore) LoadPreferences(ctx context.Context) (domain.Preferences, error) {
	vals, err := s.client.HMGet(ctx, s.prefsKey(), fieldDarkMode, fieldSidebar).Result()
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return domain.Preferences{
		DarkMode:         asBool(vals[0]),
		SidebarCollapsed: asBool(vals[1]),
	}, nil
}

func (s *SessionStore) SavePreferences(ctx context.Context, prefs domain.Preferences) error {
	err := s.client.HSet(ctx, s.prefsKey(),
		fieldDarkMode, strconv.FormatBool(prefs.DarkMode),
		fieldSidebar, strconv.FormatBool(prefs.SidebarCollapsed),
	).Err()
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SessionStore) Close(context.Context) error {
	return s.client.Close()
}

func (s *SessionStore) sessionKey() string {
	return fmt.Sprintf("console:%s:session", s.profile)
}

func (s *SessionStore) prefsKey() string {
	return fmt.Sprintf("console:%s:prefs", s.profile)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := strconv.ParseBool(asString(v))
	return b
}
