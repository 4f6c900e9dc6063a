package localstore

import (
	"bytes"
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. Watchers are called synchronously,
// outside the store lock, after each change.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[int]ChangeFunc
	nextID   int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		watchers: make(map[int]ChangeFunc),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	old, existed := s.data[key]
	if existed && bytes.Equal(old, value) {
		s.mu.Unlock()
		return nil
	}
	s.data[key] = bytes.Clone(value)
	watchers := s.watchersLocked()
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(key, bytes.Clone(value), true)
	}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	_, existed := s.data[key]
	if !existed {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.data, key)
	watchers := s.watchersLocked()
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(key, nil, false)
	}
	return true, nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(_ context.Context, prefix string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			out[k] = bytes.Clone(v)
		}
	}
	return out, nil
}

// Watch implements Watcher.
func (s *MemoryStore) Watch(fn ChangeFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *MemoryStore) watchersLocked() []ChangeFunc {
	out := make([]ChangeFunc, 0, len(s.watchers))
	for _, fn := range s.watchers {
		out = append(out, fn)
	}
	return out
}
