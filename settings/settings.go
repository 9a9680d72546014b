// Package settings persists small user preferences behind a key/value Store.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const stateFileName = "state.yaml"

const (
	KeyDarkMode  = "darkMode"
	KeyUserID    = "userId"
	KeyReminders = "reminders"
)

type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// FileStore keeps values in a YAML map. Every Set rewrites the file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
	loaded bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is <user config dir>/sensory-support-hub/state.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, log.AppName, stateFileName), nil
}

func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	s.values = map[string]string{}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s.values); err != nil {
		return fmt.Errorf("parse state yaml: %w", err)
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.loaded = true
	return nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return "", false, err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	s.values[key] = value

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	serialized, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("marshal state yaml: %w", err)
	}
	if err := os.WriteFile(s.path, serialized, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// UserID returns the per-install id, creating and storing one on first use.
func UserID(store Store) (string, error) {
	id, ok, err := store.Get(KeyUserID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := store.Set(KeyUserID, id); err != nil {
		return "", err
	}
	return id, nil
}
