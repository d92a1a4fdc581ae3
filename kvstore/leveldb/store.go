// Package leveldb is the leveldb kvstore provider. Each field is stored at
// "<prefix>:<field>" in an embedded LevelDB directory; batches are written
// atomically.
package leveldb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/kbukum/statekit/kvstore"
	"github.com/kbukum/statekit/logger"
)

func init() {
	kvstore.RegisterFactory(kvstore.ProviderLevelDB, func(cfg kvstore.Config, log *logger.Logger) (kvstore.Store, error) {
		return Open(cfg.LevelDB, log)
	})
}

// Store implements kvstore.Store on a LevelDB database.
type Store struct {
	db     *leveldb.DB
	prefix []byte
	log    *logger.Logger
}

// Open opens (creating if needed) the database directory.
func Open(cfg kvstore.LevelDBConfig, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("leveldb: create dir: %w", err)
	}
	db, err := leveldb.OpenFile(cfg.Path, &opt.Options{
		ErrorIfMissing: false,
		NoSync:         !cfg.Sync,
	})
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", cfg.Path, err)
	}
	log.Info("leveldb store opened", logger.Fields("path", cfg.Path, "prefix", cfg.KeyPrefix))
	return New(db, cfg.KeyPrefix, log), nil
}

// New uses an open database. The store owns db and closes it on Close.
func New(db *leveldb.DB, prefix string, log *logger.Logger) *Store {
	return &Store{db: db, prefix: []byte(prefix + ":"), log: log}
}

func (s *Store) key(field string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(field))
	return append(append(k, s.prefix...), field...)
}

// GetMany reads all keys from one snapshot.
func (s *Store) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("leveldb: snapshot: %w", err)
	}
	defer snap.Release()

	for _, k := range keys {
		v, err := snap.Get(s.key(k), nil)
		if errors.Is(err, leveldb.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("leveldb: get %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// SetMany writes all entries in one batch.
func (s *Store) SetMany(_ context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	for k, v := range entries {
		batch.Put(s.key(k), v)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("leveldb: write: %w", err)
	}
	return nil
}

// Clear deletes every key under the prefix in one batch.
func (s *Store) Clear(_ context.Context) error {
	iter := s.db.NewIterator(util.BytesPrefix(s.prefix), nil)
	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(iter.Key())
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("leveldb: scan: %w", err)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("leveldb: delete: %w", err)
	}
	s.log.Debug("leveldb keys deleted", logger.Fields("count", batch.Len()))
	return nil
}

// Ping fails once the database is closed.
func (s *Store) Ping(_ context.Context) error {
	if _, err := s.db.Has(s.prefix, nil); err != nil {
		return fmt.Errorf("leveldb: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var (
	_ kvstore.Store  = (*Store)(nil)
	_ kvstore.Pinger = (*Store)(nil)
)
