package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adminkit/admin-console/internal/core/domain"
	"github.com/adminkit/admin-console/internal/core/ports"
)

// PreferencesService owns the UI preference flags.
type PreferencesService struct {
	store ports.PreferenceStore
	log   zerolog.Logger

	mu sync.Mutex
}

func NewPreferencesService(store ports.PreferenceStore, log zerolog.Logger) *PreferencesService {
	return &PreferencesService{store: store, log: log}
}

func (s *PreferencesService) Get(ctx context.Context) (domain.Preferences, error) {
	prefs, err := s.store.LoadPreferences(ctx)
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return prefs, nil
}

// ToggleDarkMode flips dark mode and returns the stored result.
func (s *PreferencesService) ToggleDarkMode(ctx context.Context) (domain.Preferences, error) {
	return s.toggle(ctx, func(p *domain.Preferences) { p.DarkMode = !p.DarkMode })
}

// ToggleSidebar flips the collapsed sidebar flag.
func (s *PreferencesService) ToggleSidebar(ctx context.Context) (domain.Preferences, error) {
	return s.toggle(ctx, func(p *domain.Preferences) { p.SidebarCollapsed = !p.SidebarCollapsed })
}

func (s *PreferencesService) toggle(ctx context.Context, flip func(p *domain.Preferences)) (domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.store.LoadPreferences(ctx)
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	flip(&prefs)
	if err := s.store.SavePreferences(ctx, prefs); err != nil {
		return domain.Preferences{}, fmt.Errorf("save preferences: %w", err)
	}
	s.log.Debug().Bool("dark_mode", prefs.DarkMode).Bool("sidebar_collapsed", prefs.SidebarCollapsed).Msg("preferences saved")
	return prefs, nil
}
