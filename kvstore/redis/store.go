package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/statekit/kvstore"
	"github.com/kbukum/statekit/logger"
)

const (
	scanCount   = 100
	deleteBatch = 500
)

func init() {
	kvstore.RegisterFactory(kvstore.ProviderRedis, func(cfg kvstore.Config, log *logger.Logger) (kvstore.Store, error) {
		client, err := NewClient(cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		return NewStore(client, cfg.Redis.KeyPrefix), nil
	})
}

// Store implements kvstore.Store on Redis strings.
type Store struct {
	client *Client
	prefix string
}

// NewStore stores fields under prefix using client. The store owns client
// and closes it on Close.
func NewStore(client *Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(field string) string {
	return s.prefix + ":" + field
}

// GetMany reads all keys with a single MGET.
func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = s.key(k)
	}

	vals, err := s.client.rdb.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i]] = []byte(str)
	}
	return out, nil
}

// SetMany writes all entries in one MULTI/EXEC transaction.
func (s *Store) SetMany(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := s.client.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear deletes every key under the prefix, scanning in pages.
func (s *Store) Clear(ctx context.Context) error {
	iter := s.client.rdb.Scan(ctx, 0, s.prefix+":*", scanCount).Iterator()

	batch := make([]string, 0, deleteBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.client.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == deleteBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return flush()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

var (
	_ kvstore.Store  = (*Store)(nil)
	_ kvstore.Pinger = (*Store)(nil)
)
