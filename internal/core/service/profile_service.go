package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
	"github.com/adminkit/admin-console/internal/pkg/validation"
)

// ProfileForm carries the editable profile fields.
type ProfileForm struct {
	FirstName   string `json:"firstName"   validate:"max=100"`
	LastName    string `json:"lastName"    validate:"max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"max=30"`
	Bio         string `json:"bio"         validate:"max=500"`
}

// ProfileService reads and edits the principal's own profile.
type ProfileService struct {
	api      ports.ProfileAPI
	validate *validation.Validator
	log      zerolog.Logger
}

func NewProfileService(api ports.ProfileAPI, log zerolog.Logger) *ProfileService {
	return &ProfileService{api: api, validate: validation.New(), log: log}
}

// Get returns the profile. A profile that was never created is an empty
// profile, not an error.
func (s *ProfileService) Get(ctx context.Context) (*domain.Profile, error) {
	p, err := s.api.GetProfile(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update saves the profile fields.
func (s *ProfileService) Update(ctx context.Context, f ProfileForm) (*domain.Profile, error) {
	if err := s.validate.Validate(&f); err != nil {
		return nil, err
	}
	p, err := s.api.UpdateProfile(ctx, domain.Profile{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		PhoneNumber: f.PhoneNumber,
		Bio:         f.Bio,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("profile update failed")
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.log.Info().Msg("profile updated")
	return p, nil
}
