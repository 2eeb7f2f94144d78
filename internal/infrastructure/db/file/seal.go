package file

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/adminkit/admin-console/internal/core/domain"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	saltLen             = 16

	sealedPrefix = "sealed:v1:"

	slotAccess  = "access"
	slotRefresh = "refresh"
)

// sealer encrypts token values. The key is derived once per salt.
type sealer struct {
	passphrase []byte
	salt       []byte
	key        []byte
}

func newSealer(passphrase []byte) *sealer {
	return &sealer{passphrase: passphrase}
}

func (s *sealer) keyFor(salt []byte) []byte {
	if s.key == nil || !bytes.Equal(s.salt, salt) {
		s.key = argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
		s.salt = salt
	}
	return s.key
}

// seal returns "sealed:v1:" + base64(nonce || ciphertext). The profile and
// slot names are bound as additional data, so a value cannot be moved to
// another slot.
func (s *sealer) seal(salt []byte, aad, plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return "", fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating random nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *sealer) open(salt []byte, aad, value string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decoding sealed token: %w", err)
	}
	if len(raw) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", fmt.Errorf("sealed token is %d bytes, too short", len(raw))
	}
	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return "", fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(aad))
	if err != nil {
		return "", fmt.Errorf("opening sealed token (wrong passphrase or tampered file): %w", err)
	}
	return string(plain), nil
}

func (s *Store) seal(doc *document, creds domain.Credentials) (domain.Credentials, error) {
	access, err := s.sealValue(doc, slotAccess, creds.AccessToken)
	if err != nil {
		return domain.Credentials{}, err
	}
	refresh, err := s.sealValue(doc, slotRefresh, creds.RefreshToken)
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Store) sealValue(doc *document, slot, value string) (string, error) {
	if s.sealer == nil || value == "" {
		return value, nil
	}
	salt, err := docSalt(doc, true)
	if err != nil {
		return "", err
	}
	return s.sealer.seal(salt, s.profile+"/"+slot, value)
}

func (s *Store) open(doc *document, creds domain.Credentials) (domain.Credentials, error) {
	access, err := s.openValue(doc, slotAccess, creds.AccessToken)
	if err != nil {
		return domain.Credentials{}, err
	}
	refresh, err := s.openValue(doc, slotRefresh, creds.RefreshToken)
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Store) openValue(doc *document, slot, value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if s.sealer == nil {
		return "", ErrLocked
	}
	salt, err := docSalt(doc, false)
	if err != nil {
		return "", err
	}
	return s.sealer.open(salt, s.profile+"/"+slot, value)
}

// docSalt returns the document's key salt, creating one when create is set.
func docSalt(doc *document, create bool) ([]byte, error) {
	if doc.Salt != "" {
		salt, err := base64.RawStdEncoding.DecodeString(doc.Salt)
		if err != nil {
			return nil, fmt.Errorf("decoding state file salt: %w", err)
		}
		return salt, nil
	}
	if !create {
		return nil, fmt.Errorf("state file has sealed tokens but no salt")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	doc.Salt = base64.RawStdEncoding.EncodeToString(salt)
	return salt, nil
}
