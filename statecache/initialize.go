package statecache

import (
	"context"

	"github.com/kbukum/statekit/errors"
	"github.com/kbukum/statekit/logger"
	"github.com/kbukum/statekit/observability"
)

const initKey = "initialize"

// Initialize loads every schema field from the store into memory and marks
// the cache READY. Concurrent callers share one load and its outcome; once
// READY, Initialize returns the snapshot without touching the store.
//
// Fields written with Set before the load finished keep their local value,
// whether their write is still pending, in flight, or done. A Clear during
// the load discards what was read.
// A failed load leaves the cache FAILED with INITIALIZATION_FAILED, and a
// later call retries. The load is not cancelled by ctx; ctx only bounds
// this caller's wait.
func (c *Cache) Initialize(ctx context.Context) (Values, error) {
	c.mu.Lock()
	if c.status == StatusReady {
		snap := c.state.Clone()
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	ch := c.initGroup.DoChan(initKey, func() (any, error) {
		return c.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(Values).Clone(), nil
	}
}

func (c *Cache) load(ctx context.Context) (_ Values, err error) {
	c.mu.Lock()
	if c.status == StatusReady {
		snap := c.state.Clone()
		c.mu.Unlock()
		return snap, nil
	}
	c.status = StatusInitializing
	gen := c.clearGen
	c.mu.Unlock()

	ctx, span := observability.StartSpan(ctx, observability.SpanInitialize)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, c.provider)
	defer func() {
		c.metrics.RecordInit(ctx, err)
		observability.EndSpan(span, err)
	}()

	names := c.schema.Names()
	raw, err := c.store.GetMany(ctx, names)
	if err != nil {
		c.mu.Lock()
		c.status = StatusFailed
		c.mu.Unlock()
		c.log.Error("loading state failed", logger.MergeWithError(
			logger.Fields(logger.FieldProvider, c.provider), err))
		return nil, errors.InitializationFailed(err)
	}

	loaded := make(Values, len(raw))
	for name, data := range raw {
		v, decErr := c.schema.Decode(name, data)
		if decErr != nil {
			c.log.Warn("ignoring undecodable stored field", logger.MergeWithError(
				logger.Fields(logger.FieldField, name), decErr))
			continue
		}
		if v != nil {
			loaded[name] = v
		}
	}

	c.mu.Lock()
	kept := 0
	if gen != c.clearGen {
		kept = len(loaded)
		loaded = nil
	}
	for name, v := range loaded {
		if _, local := c.dirty[name]; local {
			kept++
			continue
		}
		c.state[name] = v
	}
	c.dirty = nil
	c.status = StatusReady
	snap := c.state.Clone()
	c.mu.Unlock()

	c.log.Info("state loaded", logger.Fields(
		logger.FieldProvider, c.provider,
		"loaded", len(loaded),
		"kept_local", kept,
	))
	return snap, nil
}
