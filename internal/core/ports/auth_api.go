package ports

import (
	"context"

	"github.com/adminkit/admin-console/internal/core/domain"
)

// LoginInput carries the login form values.
type LoginInput struct {
	Username   string `json:"username"   validate:"required"`
	Password   string `json:"password"   validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// RegisterInput carries the self-registration form values.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthAPI is the authentication half of the admin API.
type AuthAPI interface {
	Login(ctx context.Context, in LoginInput) (*domain.Session, error)
	Register(ctx context.Context, in RegisterInput) (*domain.Session, error)
	// Refresh exchanges the refresh token for a new access token. The
	// returned session carries no refresh token.
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
}

// SessionService is what the outer surfaces need from the session owner.
type SessionService interface {
	Login(ctx context.Context, in LoginInput) (*domain.Session, error)
	Register(ctx context.Context, in RegisterInput) (*domain.Session, error)
	Logout(ctx context.Context)
	Refresh(ctx context.Context) (*domain.Session, error)
	IsAuthenticated(ctx context.Context) bool
	Principal() *domain.User
}

// Refresher is implemented by the session owner; the REST client calls it
// when the access token is rejected or has expired.
type Refresher interface {
	Refresh(ctx context.Context) (*domain.Session, error)
}
