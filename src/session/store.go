package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Storage keys, one snapshot file each.
const (
	authStorageKey     = "auth-storage"
	favoritePairsKey   = "favorite-pairs-storage"
	themeStorageKey    = "theme-storage"
	storageFilePattern = "%s.json"
)

// Store persists console state as small JSON snapshots under a state
// directory, one file per key.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("error resolving state dir: %w", err)
		}
		dir = filepath.Join(home, ".tradeadmin")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("error creating state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, fmt.Sprintf(storageFilePattern, key))
}

// Load reads a snapshot into out. Returns false without error when no
// snapshot exists yet.
func (s *Store) Load(key string, out interface{}) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("error reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("error decoding %s: %w", key, err)
	}
	return true, nil
}

// Save writes the snapshot through a temp file so a crash mid-write
// never leaves a torn snapshot behind.
func (s *Store) Save(key string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", key, err)
	}

	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("error committing %s: %w", key, err)
	}
	return nil
}

// Clear removes a snapshot. Missing snapshots are not an error.
func (s *Store) Clear(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error clearing %s: %w", key, err)
	}
	return nil
}
