// Package tasks keeps the per-day task lists. The whole mapping is persisted
// as one JSON object under a single storage key.
package tasks

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/storage"
)

const (
	// StorageKey holds the serialized mapping.
	StorageKey = "tasks"
	// CorruptKey receives an undecodable payload before it is overwritten.
	CorruptKey = "tasks.corrupt"
)

// Store is the date-indexed task list. Every call re-reads the persisted
// snapshot, so two processes sharing a backend see each other's writes but
// the last writer wins.
type Store struct {
	st      storage.Storage
	onError func(error)
	mu      sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithErrorHandler receives degraded-read errors such as *CorruptError.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Store) {
		if fn != nil {
			s.onError = fn
		}
	}
}

func NewStore(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		st: st,
		onError: func(err error) {
			log.Printf("Warning: %v", err)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot keeps entries undecoded so keys a mutation does not touch are
// written back byte-for-byte, legacy strings included.
type snapshot map[string][]json.RawMessage

// Add appends task to the list for key.
func (s *Store) Add(key datekey.Key, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadForWrite()
	if err != nil {
		return err
	}
	list := snap.decodeForWrite(key)
	list = append(list, task)
	if err := snap.put(key, list); err != nil {
		return err
	}
	return s.save(snap)
}

// List returns the tasks for key in insertion order, or an empty slice.
func (s *Store) List(key datekey.Key) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.loadForRead()
	return snap.decode(key)
}

// DeleteAt removes the task at index. Out-of-range indexes leave the store
// untouched and report removed=false.
func (s *Store) DeleteAt(key datekey.Key, index int) (removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadForWrite()
	if err != nil {
		return false, err
	}
	list := snap.decodeForWrite(key)
	if index < 0 || index >= len(list) {
		return false, nil
	}
	list = append(list[:index], list[index+1:]...)
	if err := snap.put(key, list); err != nil {
		return false, err
	}
	return true, s.save(snap)
}

// Move removes the task at index from from and appends it to to. from and to
// may be the same day, which moves the task to the end of the list.
func (s *Store) Move(from, to datekey.Key, index int) (moved bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadForWrite()
	if err != nil {
		return false, err
	}
	src := snap.decodeForWrite(from)
	if index < 0 || index >= len(src) {
		return false, nil
	}
	task := src[index]
	src = append(src[:index], src[index+1:]...)
	if err := snap.put(from, src); err != nil {
		return false, err
	}
	dst := snap.decodeForWrite(to)
	dst = append(dst, task)
	if err := snap.put(to, dst); err != nil {
		return false, err
	}
	return true, s.save(snap)
}

// Snapshot decodes the whole mapping. Keys that do not parse are reported
// and skipped.
func (s *Store) Snapshot() map[datekey.Key][]Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.loadForRead()
	out := make(map[datekey.Key][]Task, len(snap))
	for raw := range snap {
		key, err := datekey.Parse(raw)
		if err != nil {
			s.onError(fmt.Errorf("skipping task list: %w", err))
			continue
		}
		out[key] = snap.decode(key)
	}
	return out
}

// Keys returns every day that has at least one task, in calendar order.
func (s *Store) Keys() []datekey.Key {
	snap := s.Snapshot()
	keys := make([]datekey.Key, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

func (s *Store) loadForRead() snapshot {
	raw, ok, err := s.st.Get(StorageKey)
	if err != nil {
		s.onError(fmt.Errorf("failed to read task store: %w", err))
		return snapshot{}
	}
	if !ok {
		return snapshot{}
	}
	snap, err := parse([]byte(raw))
	if err != nil {
		s.onError(err)
		return snapshot{}
	}
	return snap
}

// loadForWrite fails only on storage errors. A corrupt payload is copied to
// CorruptKey and the mutation proceeds from an empty mapping.
func (s *Store) loadForWrite() (snapshot, error) {
	raw, ok, err := s.st.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read task store: %w", err)
	}
	if !ok {
		return snapshot{}, nil
	}
	snap, err := parse([]byte(raw))
	if err != nil {
		s.onError(err)
		if err := s.st.Set(CorruptKey, raw); err != nil {
			return nil, fmt.Errorf("failed to preserve corrupt task store: %w", err)
		}
		return snapshot{}, nil
	}
	return snap, nil
}

func (s *Store) save(snap snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode task store: %w", err)
	}
	if err := s.st.Set(StorageKey, string(b)); err != nil {
		return fmt.Errorf("failed to persist task store: %w", err)
	}
	return nil
}

// decode expects entries already validated by parse.
func (snap snapshot) decode(key datekey.Key) []Task {
	raws := snap[key.String()]
	out := make([]Task, 0, len(raws))
	for _, r := range raws {
		var t Task
		if err := json.Unmarshal(r, &t); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// decodeForWrite decodes key's list for a mutation. Tasks stored without an
// id get their derived id so it survives the indexes shifting.
func (snap snapshot) decodeForWrite(key datekey.Key) []Task {
	list := snap.decode(key)
	for i := range list {
		if list[i].ID == "" {
			list[i].ID = DerivedID(key, i, list[i].Text)
		}
	}
	return list
}

// put re-encodes list for key, dropping the key once the list is empty.
func (snap snapshot) put(key datekey.Key, list []Task) error {
	if len(list) == 0 {
		delete(snap, key.String())
		return nil
	}
	raws := make([]json.RawMessage, len(list))
	for i, t := range list {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode task: %w", err)
		}
		raws[i] = b
	}
	snap[key.String()] = raws
	return nil
}

// parse validates a persisted payload. Any failure comes back as
// *CorruptError. Empty lists are dropped.
func parse(data []byte) (snapshot, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &CorruptError{Size: len(data), Err: err}
	}
	if snap == nil {
		snap = snapshot{}
	}
	for key, raws := range snap {
		if len(raws) == 0 {
			delete(snap, key)
			continue
		}
		for i, r := range raws {
			var t Task
			if err := json.Unmarshal(r, &t); err != nil {
				return nil, &CorruptError{Size: len(data), Err: fmt.Errorf("%s[%d]: %w", key, i, err)}
			}
		}
	}
	return snap, nil
}

// Marshal encodes a decoded mapping in the persisted format.
func Marshal(m map[datekey.Key][]Task) ([]byte, error) {
	snap := snapshot{}
	for key, list := range m {
		if err := snap.put(key, list); err != nil {
			return nil, err
		}
	}
	return json.Marshal(snap)
}

// Decode parses a persisted payload into a decoded mapping.
func Decode(data []byte) (map[datekey.Key][]Task, error) {
	snap, err := parse(data)
	if err != nil {
		return nil, err
	}
	out := make(map[datekey.Key][]Task, len(snap))
	for raw := range snap {
		key, err := datekey.Parse(raw)
		if err != nil {
			return nil, &CorruptError{Size: len(data), Err: err}
		}
		out[key] = snap.decode(key)
	}
	return out, nil
}
