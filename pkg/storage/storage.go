// Package storage provides the key-value port the task store and cycle
// settings persist through, plus its concrete backends.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage is a flat string key-value store. Get reports absent keys with
// ok=false and a nil error.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open builds the backend named by backend, rooted at path.
func Open(backend, path string) (Storage, error) {
	switch backend {
	case "", BackendFile:
		return NewFile(path)
	case BackendSQLite:
		return NewSQLite(path)
	case BackendMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

// DefaultPath returns the default location for backend under the user's
// config directory.
func DefaultPath(backend string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	name := "store.json"
	if backend == BackendSQLite {
		name = "store.db"
	}
	return filepath.Join(home, ".config", "cyclecal", name), nil
}

// Memory keeps values in a map. It is the test fake and the "memory" backend.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
