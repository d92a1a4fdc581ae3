package kvstore

import (
	"context"
	"errors"
	"maps"
	"sync"
)

// ErrClosed is returned by a MemoryStore after Close.
var ErrClosed = errors.New("kvstore: store closed")

// MemoryStore is a process-local Store. Values are copied on the way in and
// out. It does not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

// GetMany returns copies of the stored values for keys.
func (s *MemoryStore) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.items[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

// SetMany stores copies of all entries under one lock.
func (s *MemoryStore) SetMany(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for k, v := range entries {
		s.items[k] = append([]byte(nil), v...)
	}
	return nil
}

// Clear removes every key.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	clear(s.items)
	return nil
}

// Close marks the store closed. Stored data is kept so tests can inspect it.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping reports ErrClosed after Close.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Dump returns a copy of everything stored.
func (s *MemoryStore) Dump() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := maps.Clone(s.items)
	for k, v := range out {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Pinger = (*MemoryStore)(nil)
)
