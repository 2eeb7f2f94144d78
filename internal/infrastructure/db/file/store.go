// Package file keeps console profiles in a single YAML document on local
// disk. Tokens are sealed with XChaCha20-Poly1305 under a key derived from
// a passphrase when one is configured.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/adminkit/admin-console/internal/core/domain"
)

const (
	documentVersion = 1
	appDir          = "admin-console"
	stateFile       = "state.yaml"
)

// ErrLocked is returned when stored tokens are sealed and the store has no
// passphrase to open them.
var ErrLocked = errors.New("token store is locked: passphrase required")

type document struct {
	Version  int                      `yaml:"version"`
	Salt     string                   `yaml:"salt,omitempty"`
	Profiles map[string]*profileState `yaml:"profiles"`
}

type profileState struct {
	Credentials domain.Credentials `yaml:"credentials"`
	Preferences domain.Preferences `yaml:"preferences"`
}

// Store is a TokenStore and PreferenceStore for one profile of a state file.
// Each write replaces the whole file through a rename, so a crash leaves
// either the old or the new document, never a mix.
type Store struct {
	path    string
	profile string
	sealer  *sealer

	mu sync.Mutex
}

// DefaultPath returns the state file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, appDir, stateFile), nil
}

// NewStore returns a store for profile in the file at path. An empty
// passphrase stores tokens in plain text, relying on file permissions.
func NewStore(path, profile, passphrase string) *Store {
	s := &Store{path: path, profile: profile}
	if passphrase != "" {
		s.sealer = newSealer([]byte(passphrase))
	}
	return s
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(context.Context) (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return domain.Credentials{}, err
	}
	p := doc.Profiles[s.profile]
	if p == nil {
		return domain.Credentials{}, nil
	}
	return s.open(doc, p.Credentials)
}

func (s *Store) Save(_ context.Context, creds domain.Credentials) error {
	return s.update(func(doc *document, p *profileState) error {
		sealed, err := s.seal(doc, creds)
		if err != nil {
			return err
		}
		p.Credentials = sealed
		return nil
	})
}

func (s *Store) SetAccessToken(_ context.Context, token string) error {
	return s.update(func(doc *document, p *profileState) error {
		sealed, err := s.sealValue(doc, slotAccess, token)
		if err != nil {
			return err
		}
		p.Credentials.AccessToken = sealed
		return nil
	})
}

// Clear empties both slots. It never needs the passphrase.
func (s *Store) Clear(context.Context) error {
	return s.update(func(_ *document, p *profileState) error {
		p.Credentials = domain.Credentials{}
		return nil
	})
}

func (s *Store) LoadPreferences(context.Context) (domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return domain.Preferences{}, err
	}
	if p := doc.Profiles[s.profile]; p != nil {
		return p.Preferences, nil
	}
	return domain.Preferences{}, nil
}

func (s *Store) SavePreferences(_ context.Context, prefs domain.Preferences) error {
	return s.update(func(_ *document, p *profileState) error {
		p.Preferences = prefs
		return nil
	})
}

// Ping checks that the state file is readable and decodes.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.read()
	return err
}

func (s *Store) Close(context.Context) error {
	return nil
}

func (s *Store) update(mutate func(doc *document, p *profileState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	p := doc.Profiles[s.profile]
	if p == nil {
		p = &profileState{}
		doc.Profiles[s.profile] = p
	}
	if err := mutate(doc, p); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *Store) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{Version: documentVersion, Profiles: map[string]*profileState{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding state file %s: %w", s.path, err)
	}
	if doc.Version > documentVersion {
		return nil, fmt.Errorf("state file version %d is not supported (expected <= %d)", doc.Version, documentVersion)
	}
	if doc.Profiles == nil {
		doc.Profiles = map[string]*profileState{}
	}
	return &doc, nil
}

func (s *Store) write(doc *document) error {
	doc.Version = documentVersion
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding state file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(0o600); err != nil {
		tmpFile.Close()
		return fmt.Errorf("restricting temp state file: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming state file to %s: %w", s.path, err)
	}

	success = true
	return nil
}
