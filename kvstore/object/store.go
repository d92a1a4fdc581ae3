// Package object is the object-storage kvstore provider. Each field is one
// JSON object at "<prefix>/<field>.json" on a storage backend (local
// filesystem or S3).
package object

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/statekit/kvstore"
	"github.com/kbukum/statekit/logger"
	"github.com/kbukum/statekit/storage"
	_ "github.com/kbukum/statekit/storage/local"
	_ "github.com/kbukum/statekit/storage/s3"
)

const (
	objectExt   = ".json"
	maxParallel = 8
)

func init() {
	kvstore.RegisterFactory(kvstore.ProviderObject, func(cfg kvstore.Config, log *logger.Logger) (kvstore.Store, error) {
		backend, err := storage.New(cfg.Object.Config, log)
		if err != nil {
			return nil, err
		}
		return New(backend, cfg.Object.Prefix), nil
	})
}

// Store implements kvstore.Store on a storage.Storage backend.
type Store struct {
	client *storage.ByteClient
	prefix string
}

// New stores fields under prefix on backend.
func New(backend storage.Storage, prefix string) *Store {
	return &Store{
		client: storage.NewByteClient(backend),
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *Store) objectPath(field string) string {
	return path.Join(s.prefix, field+objectExt)
}

// GetMany downloads each key. Missing objects are skipped.
func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	values := make([][]byte, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, k := range keys {
		g.Go(func() error {
			data, err := s.client.Get(gctx, s.objectPath(k))
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("object: get %s: %w", k, err)
			}
			values[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	for i, k := range keys {
		if values[i] != nil {
			out[k] = values[i]
		}
	}
	return out, nil
}

// SetMany uploads each entry. Objects are written independently, so a failed
// batch may be partially applied.
func (s *Store) SetMany(ctx context.Context, entries map[string][]byte) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for k, v := range entries {
		g.Go(func() error {
			if err := s.client.Put(gctx, s.objectPath(k), v); err != nil {
				return fmt.Errorf("object: put %s: %w", k, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Clear deletes every object under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.client.Keys(ctx, s.prefix+"/")
	if err != nil {
		return fmt.Errorf("object: list: %w", err)
	}
	for _, k := range keys {
		if err := s.client.Delete(ctx, k); err != nil {
			return fmt.Errorf("object: delete %s: %w", k, err)
		}
	}
	return nil
}

// Close is a no-op; storage backends hold no connections.
func (s *Store) Close() error { return nil }

var _ kvstore.Store = (*Store)(nil)
