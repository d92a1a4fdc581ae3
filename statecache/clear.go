package statecache

import (
	"context"

	"github.com/kbukum/statekit/errors"
	"github.com/kbukum/statekit/logger"
	"github.com/kbukum/statekit/observability"
)

// Clear resets the cache and erases the store.
//
// Pending writes are flushed first (best effort), and writes already in
// flight are waited for, bounded by ctx. Memory is then reset to the schema
// defaults, keeping Preserve fields when preserve is set, and the debounce
// timer is cancelled. The store is erased and the preserved fields are
// written back. Writes detached before the reset are never re-queued. Every subscriber then receives {"cleared": true},
// whether or not the store calls failed. Store failures return
// PERSISTENCE_FAILED; the memory reset stands regardless.
func (c *Cache) Clear(ctx context.Context, preserve bool) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanClear)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, c.provider)
	defer func() {
		c.metrics.RecordClear(ctx, preserve, err)
		observability.EndSpan(span, err)
	}()

	if ferr := c.Flush(ctx); ferr != nil {
		c.log.Warn("flush before clear failed", logger.MergeWithError(nil, ferr))
	}

	// No flush writes while the store is erased. If ctx ends first the
	// memory reset still happens and the erase is skipped.
	lockErr := c.writeSem.Acquire(ctx, clearWeight)

	c.mu.Lock()
	old := c.state.Clone()
	next := c.schema.Defaults()
	kept := make(Values)
	if preserve {
		for _, name := range c.schema.Preserved() {
			if v, ok := c.state[name]; ok {
				next[name] = v
				kept[name] = v
			}
		}
	}
	c.state = next
	c.pending = make(map[string]any)
	c.clearGen++
	c.stopTimerLocked()
	if c.batch != nil {
		// writes superseded by the clear
		c.batch.resolve(nil)
		c.batch = nil
	}
	c.mu.Unlock()

	storeErr := lockErr
	if lockErr == nil {
		storeErr = c.eraseStore(ctx, kept)
		c.writeSem.Release(clearWeight)
	}

	c.mu.Lock()
	c.enqueueLocked(Values{ClearedKey: true}, old, true)
	c.mu.Unlock()
	c.drain()

	if storeErr != nil {
		c.log.Error("clearing durable state failed", logger.MergeWithError(
			logger.Fields(logger.FieldProvider, c.provider, "preserve", preserve), storeErr))
		return errors.PersistenceFailed("clear", storeErr)
	}
	c.log.Info("state cleared", logger.Fields("preserve", preserve, "kept", kept.Keys()))
	return nil
}

func (c *Cache) eraseStore(ctx context.Context, kept Values) error {
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	if len(kept) == 0 {
		return nil
	}
	payload := make(map[string][]byte, len(kept))
	for name, v := range kept {
		data, err := c.schema.Encode(name, v)
		if err != nil {
			return err
		}
		payload[name] = data
	}
	return c.store.SetMany(ctx, payload)
}
