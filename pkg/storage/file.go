package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// ErrCorruptFile marks a store file whose contents are not a JSON object of
// strings.
var ErrCorruptFile = errors.New("store file is corrupt")

// CorruptSuffix is appended to the path of a corrupt store file when it is
// set aside.
const CorruptSuffix = ".corrupt"

// File keeps every value in one JSON object on disk and rewrites the file
// on each mutation.
type File struct {
	Values map[string]string
	Path   string
	mu     sync.RWMutex
}

func NewFile(path string) (*File, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(BackendFile); err != nil {
			return nil, err
		}
	}

	f := &File{
		Values: make(map[string]string),
		Path:   path,
	}

	if _, err := os.Stat(path); err == nil {
		if err := f.Load(); err != nil {
			if !errors.Is(err, ErrCorruptFile) {
				return nil, err
			}
			log.Printf("Warning: %v; starting with an empty store", err)
			f.setAside()
		}
	}
	return f, nil
}

// setAside copies the unreadable file next to itself so the first write does
// not destroy it.
func (f *File) setAside() {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		log.Printf("Warning: could not read corrupt store file %s: %v", f.Path, err)
		return
	}
	backup := f.Path + CorruptSuffix
	if err := os.WriteFile(backup, data, 0600); err != nil {
		log.Printf("Warning: could not back up corrupt store file to %s: %v", backup, err)
		return
	}
	log.Printf("Warning: corrupt store file saved as %s", backup)
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer fh.Close()
	values := make(map[string]string)
	if err := json.NewDecoder(fh).Decode(&values); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptFile, f.Path, err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	f.Values = values
	return nil
}

func (f *File) Get(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.Values[key]
	return v, ok, nil
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, existed := f.Values[key]
	f.Values[key] = value
	if err := f.save(); err != nil {
		if existed {
			f.Values[key] = old
		} else {
			delete(f.Values, key)
		}
		return err
	}
	return nil
}

func (f *File) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, exists := f.Values[key]
	if !exists {
		return nil
	}
	delete(f.Values, key)
	if err := f.save(); err != nil {
		f.Values[key] = old
		return err
	}
	return nil
}

// save writes to a temp file and renames it over the target; callers hold mu.
func (f *File) save() error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(f.Values); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
