package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/pkg/metrics"
	"github.com/adminkit/admin-console/internal/pkg/tokens"
	"github.com/adminkit/admin-console/internal/pkg/validation"
)

// SessionManager owns the authentication state of the console: the stored
// credential pair and the in-memory principal. The principal and the
// authenticated flag always change together.
type SessionManager struct {
	api      ports.AuthAPI
	store    ports.TokenStore
	validate *validation.Validator
	log      zerolog.Logger

	mu            sync.RWMutex
	principal     *domain.User
	authenticated bool

	// commitMu serializes every write of the stored credentials with the
	// principal change that goes with it. generation counts sign-ins and
	// sign-outs; a refresh started under an older generation is dropped.
	commitMu   sync.Mutex
	generation uint64
	onChange   []func()

	refreshGroup singleflight.Group
}

// NewSessionManager returns a SessionManager with no principal loaded. Call
// Hydrate at startup to restore the principal from stored credentials.
func NewSessionManager(api ports.AuthAPI, store ports.TokenStore, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		api:      api,
		store:    store,
		validate: validation.New(),
		log:      log,
	}
}

// OnChange registers fn to run after every change of the signed-in
// identity: login, register, logout and a rejected refresh token. Views
// holding per-user state reset themselves there. It is not safe to call
// concurrently with the session operations.
func (s *SessionManager) OnChange(fn func()) {
	s.onChange = append(s.onChange, fn)
}

// Login authenticates and, on success, stores both tokens and the principal.
// On failure nothing is written.
func (s *SessionManager) Login(ctx context.Context, in ports.LoginInput) (*domain.Session, error) {
	if err := s.validate.Validate(&in); err != nil {
		metrics.SessionEventsTotal.WithLabelValues("login", resultLabel(err)).Inc()
		return nil, err
	}

	sess, err := s.api.Login(ctx, in)
	if err == nil {
		err = s.establish(ctx, sess)
	}
	metrics.SessionEventsTotal.WithLabelValues("login", resultLabel(err)).Inc()
	if err != nil {
		s.log.Warn().Err(err).Str("username", in.Username).Msg("login failed")
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("username", sess.User.Username).Bool("remember_me", in.RememberMe).Msg("logged in")
	return sess, nil
}

// Register creates an account and signs it in, with the same atomicity as Login.
func (s *SessionManager) Register(ctx context.Context, in ports.RegisterInput) (*domain.Session, error) {
	if err := s.validate.Validate(&in); err != nil {
		metrics.SessionEventsTotal.WithLabelValues("register", resultLabel(err)).Inc()
		return nil, err
	}

	sess, err := s.api.Register(ctx, in)
	if err == nil {
		err = s.establish(ctx, sess)
	}
	metrics.SessionEventsTotal.WithLabelValues("register", resultLabel(err)).Inc()
	if err != nil {
		s.log.Warn().Err(err).Str("username", in.Username).Msg("registration failed")
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("username", sess.User.Username).Msg("registered and logged in")
	return sess, nil
}

// Logout clears both tokens and the principal. It never fails; a store error
// is logged and the in-memory state is cleared regardless.
func (s *SessionManager) Logout(ctx context.Context) {
	s.clear(ctx)
	metrics.SessionEventsTotal.WithLabelValues("logout", "ok").Inc()
	s.log.Info().Msg("logged out")
}

// Refresh exchanges the stored refresh token for a new access token. Only
// the access slot is rewritten; the refresh token is kept. Concurrent
// callers share a single round trip, which no single caller can cancel.
func (s *SessionManager) Refresh(ctx context.Context) (*domain.Session, error) {
	v, err, shared := s.refreshGroup.Do("refresh", func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	if shared {
		s.log.Debug().Msg("joined in-flight token refresh")
	}
	if err != nil {
		return nil, err
	}
	return v.(*domain.Session), nil
}

func (s *SessionManager) refresh(ctx context.Context) (*domain.Session, error) {
	gen := s.currentGeneration()
	creds, err := s.store.Load(ctx)
	if err != nil {
		metrics.SessionEventsTotal.WithLabelValues("refresh", "store_error").Inc()
		return nil, fmt.Errorf("refresh: load credentials: %w", err)
	}
	if creds.RefreshToken == "" {
		s.clearIf(ctx, gen)
		metrics.SessionEventsTotal.WithLabelValues("refresh", resultLabel(domain.ErrInvalidRefreshToken)).Inc()
		return nil, fmt.Errorf("refresh: %w", domain.ErrInvalidRefreshToken)
	}

	sess, err := s.api.Refresh(ctx, creds.RefreshToken)
	if err == nil && (sess == nil || sess.Credentials.AccessToken == "") {
		err = fmt.Errorf("%w: refresh response without access token", domain.ErrUnknown)
	}
	if err != nil {
		metrics.SessionEventsTotal.WithLabelValues("refresh", resultLabel(err)).Inc()
		if errors.Is(err, domain.ErrInvalidRefreshToken) {
			s.log.Warn().Err(err).Msg("refresh token rejected, clearing session")
			s.clearIf(ctx, gen)
		} else {
			s.log.Warn().Err(err).Msg("token refresh failed")
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	if err := s.commitRefresh(ctx, gen, sess); err != nil {
		metrics.SessionEventsTotal.WithLabelValues("refresh", resultLabel(err)).Inc()
		return nil, fmt.Errorf("refresh: %w", err)
	}

	sess.Credentials.RefreshToken = creds.RefreshToken
	metrics.SessionEventsTotal.WithLabelValues("refresh", "ok").Inc()
	s.log.Debug().Msg("access token refreshed")
	return sess, nil
}

// Hydrate restores the principal after a restart. With no stored access
// token it does nothing.
func (s *SessionManager) Hydrate(ctx context.Context) error {
	creds, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}
	if creds.AccessToken == "" || s.Principal() != nil {
		return nil
	}

	_, err = s.Refresh(ctx)
	metrics.SessionEventsTotal.WithLabelValues("hydrate", resultLabel(err)).Inc()
	if err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether an access token is stored. It does not
// look at the in-memory principal, so it answers correctly right after a
// restart, before Hydrate has run.
func (s *SessionManager) IsAuthenticated(ctx context.Context) bool {
	creds, err := s.store.Load(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("credential lookup failed, treating as logged out")
		return false
	}
	return creds.AccessToken != ""
}

// Principal returns the authenticated user, or nil.
func (s *SessionManager) Principal() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// Authenticated reports the in-memory flag that accompanies the principal.
func (s *SessionManager) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// AccessTokenExpiry returns the exp claim of the stored access token, when it has one.
func (s *SessionManager) AccessTokenExpiry(ctx context.Context) (time.Time, bool) {
	creds, err := s.store.Load(ctx)
	if err != nil || creds.AccessToken == "" {
		return time.Time{}, false
	}
	return tokens.ExpiresAt(creds.AccessToken)
}

func (s *SessionManager) establish(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.User == nil || sess.Credentials.AccessToken == "" || sess.Credentials.RefreshToken == "" {
		return fmt.Errorf("%w: incomplete authentication response", domain.ErrUnknown)
	}

	s.commitMu.Lock()
	if err := s.store.Save(ctx, sess.Credentials); err != nil {
		s.commitMu.Unlock()
		return fmt.Errorf("store credentials: %w", err)
	}
	s.generation++
	s.setPrincipal(sess.User)
	s.commitMu.Unlock()

	s.notify()
	return nil
}

// commitRefresh writes the refreshed access token unless the session was
// ended or replaced while the refresh was in flight.
func (s *SessionManager) commitRefresh(ctx context.Context, gen uint64, sess *domain.Session) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if s.generation != gen {
		s.log.Debug().Msg("session changed during token refresh, dropping the new token")
		return fmt.Errorf("session changed during refresh: %w", domain.ErrCancelled)
	}
	if err := s.store.SetAccessToken(ctx, sess.Credentials.AccessToken); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	if sess.User != nil {
		s.setPrincipal(sess.User)
	}
	return nil
}

func (s *SessionManager) currentGeneration() uint64 {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.generation
}

func (s *SessionManager) setPrincipal(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = u
	s.authenticated = true
}

func (s *SessionManager) clear(ctx context.Context) {
	s.commitMu.Lock()
	s.clearLocked(ctx)
	s.commitMu.Unlock()
	s.notify()
}

// clearIf clears the session only if it is still the one of generation
// gen, so a failed refresh never signs out a newer login.
func (s *SessionManager) clearIf(ctx context.Context, gen uint64) {
	s.commitMu.Lock()
	if s.generation != gen {
		s.commitMu.Unlock()
		return
	}
	s.clearLocked(ctx)
	s.commitMu.Unlock()
	s.notify()
}

func (s *SessionManager) clearLocked(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("failed to clear stored credentials")
	}
	s.generation++
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = nil
	s.authenticated = false
}

func (s *SessionManager) notify() {
	for _, fn := range s.onChange {
		fn()
	}
}

// resultLabel maps an error to a low-cardinality metric label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrInvalidRefreshToken):
		return "invalid_refresh_token"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrCancelled):
		return "superseded"
	default:
		return "error"
	}
}
