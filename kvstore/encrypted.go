package kvstore

import (
	"context"
	"fmt"

	"github.com/kbukum/statekit/encryption"
)

// EncryptedStore seals every value before it reaches the wrapped store and
// opens it on the way back. Keys are stored in the clear.
type EncryptedStore struct {
	inner  Store
	cipher encryption.Cipher
}

// NewEncryptedStore wraps inner with c.
func NewEncryptedStore(inner Store, c encryption.Cipher) *EncryptedStore {
	return &EncryptedStore{inner: inner, cipher: c}
}

// Unwrap returns the wrapped store.
func (s *EncryptedStore) Unwrap() Store { return s.inner }

// GetMany opens every value. A value that fails to open fails the call.
func (s *EncryptedStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	sealed, err := s.inner.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(sealed))
	for k, v := range sealed {
		plain, err := s.cipher.Open(v)
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", k, err)
		}
		out[k] = plain
	}
	return out, nil
}

// SetMany seals every value and writes the batch.
func (s *EncryptedStore) SetMany(ctx context.Context, entries map[string][]byte) error {
	sealed := make(map[string][]byte, len(entries))
	for k, v := range entries {
		b, err := s.cipher.Seal(v)
		if err != nil {
			return fmt.Errorf("seal %q: %w", k, err)
		}
		sealed[k] = b
	}
	return s.inner.SetMany(ctx, sealed)
}

func (s *EncryptedStore) Clear(ctx context.Context) error { return s.inner.Clear(ctx) }

func (s *EncryptedStore) Close() error { return s.inner.Close() }

// Ping delegates to the wrapped store when it supports it.
func (s *EncryptedStore) Ping(ctx context.Context) error {
	if p, ok := s.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

var (
	_ Store  = (*EncryptedStore)(nil)
	_ Pinger = (*EncryptedStore)(nil)
)
