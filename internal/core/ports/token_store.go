package ports

import (
	"context"

	"github.com/adminkit/admin-console/internal/core/domain"
)

// TokenStore is the durable home of the credential pair.
//
// Save replaces both slots atomically: after a failed Save the previous
// pair is still intact. SetAccessToken touches the access slot only.
// Clear is idempotent.
type TokenStore interface {
	Load(ctx context.Context) (domain.Credentials, error)
	Save(ctx context.Context, creds domain.Credentials) error
	SetAccessToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// PreferenceStore persists UI preference flags in the same backend as the tokens.
type PreferenceStore interface {
	LoadPreferences(ctx context.Context) (domain.Preferences, error)
	SavePreferences(ctx context.Context, prefs domain.Preferences) error
}

// ClientStore is a backend serving both concerns.
type ClientStore interface {
	TokenStore
	PreferenceStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
