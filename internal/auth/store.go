// Package auth manages credentials: interactive OAuth login flows and
// persistent token storage in the OS keyring with a file fallback.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"

	"github.com/trackhub/trackhub/internal/common"
)

const keyringService = "trackhub"

// TokenStore persists named secrets. The OS keyring is tried first; when no
// keyring is available (headless machines, CI) secrets fall back to 0600
// JSON files under dir.
type TokenStore struct {
	dir string
}

// NewTokenStore creates a token store whose file fallback lives under dir.
func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

// Save writes a secret under name, preferring the keyring.
func (s *TokenStore) Save(name string, data []byte) error {
	if err := keyring.Set(keyringService, name, string(data)); err == nil {
		return nil
	} else {
		slog.Debug("Keyring unavailable, falling back to file", "name", name, "error", err)
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	if err := os.WriteFile(s.path(name), data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// Load reads a secret saved under name.
func (s *TokenStore) Load(name string) ([]byte, error) {
	if secret, err := keyring.Get(keyringService, name); err == nil {
		return []byte(secret), nil
	}

	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no saved credentials for %s", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return data, nil
}

// Delete removes a secret from both the keyring and the file fallback.
// Deleting a secret that was never saved is not an error.
func (s *TokenStore) Delete(name string) error {
	if err := keyring.Delete(keyringService, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Debug("Keyring delete failed", "name", name, "error", err)
	}

	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}

func (s *TokenStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
