package storage

import (
	"bytes"
	"context"
	"io"
)

// ByteClient wraps a streaming Storage with []byte operations.
type ByteClient struct {
	storage Storage
}

// NewByteClient wraps s.
func NewByteClient(s Storage) *ByteClient {
	return &ByteClient{storage: s}
}

// Put stores data at path.
func (c *ByteClient) Put(ctx context.Context, path string, data []byte) error {
	return c.storage.Upload(ctx, path, bytes.NewReader(data))
}

// Get returns the object at path, or ErrNotFound.
func (c *ByteClient) Get(ctx context.Context, path string) ([]byte, error) {
	rc, err := c.storage.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete removes the object at path.
func (c *ByteClient) Delete(ctx context.Context, path string) error {
	return c.storage.Delete(ctx, path)
}

// Keys lists object paths under prefix.
func (c *ByteClient) Keys(ctx context.Context, prefix string) ([]string, error) {
	files, err := c.storage.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = f.Path
	}
	return keys, nil
}

// Storage returns the wrapped backend.
func (c *ByteClient) Storage() Storage { return c.storage }
