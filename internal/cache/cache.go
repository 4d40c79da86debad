// Package cache persists the Vivint session between runs so the bridge can
// reconnect with a refresh token instead of a password and second factor.
// Device state is never cached; it is rebuilt from the cloud on connect.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

const cacheFileName = "vivint2mqtt_session.json"

type Session struct {
	Username     string    `json:"username"`
	RefreshToken string    `json:"refresh_token"`
	LastUpdate   time.Time `json:"last_update"`
}

type Store struct {
	dir string
}

// NewStore returns a store in dir, or in ~/.cache/vivint2mqtt when dir is
// empty.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = getCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get cache directory: %v", err)
		}
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, cacheFileName)
}

func (s *Store) SaveCache(session Session) error {
	if session.LastUpdate.IsZero() {
		session.LastUpdate = time.Now()
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %v", err)
	}

	err = os.MkdirAll(s.dir, 0o700)
	if err != nil {
		return fmt.Errorf("failed to create cache directory: %v", err)
	}

	// The file holds a credential.
	err = os.WriteFile(s.path(), data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write cache file: %v", err)
	}

	return nil
}

// LoadCache returns the saved session for username, or nil when there is
// none or it belongs to another user.
func (s *Store) LoadCache(username string) (*Session, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %v", err)
	}

	var session Session
	err = json.Unmarshal(data, &session)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %v", err)
	}
	if session.Username != username || session.RefreshToken == "" {
		return nil, nil
	}

	return &session, nil
}

func (s *Store) DeleteCache() error {
	err := os.Remove(s.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %v", err)
	}

	return nil
}

func getCacheDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".cache", "vivint2mqtt"), nil
}
