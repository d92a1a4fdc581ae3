package kvstore

import (
	"context"
)

// Store is a durable key-value store. Values are opaque byte documents;
// the state cache stores JSON.
type Store interface {
	// GetMany returns the stored values for keys. Keys with no stored value
	// are absent from the result.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMany writes all entries. Implementations write the batch atomically
	// where the backend allows it.
	SetMany(ctx context.Context, entries map[string][]byte) error

	// Clear erases every key owned by this store.
	Clear(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// Pinger is implemented by stores that can check backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
