package statecache

import (
	"context"
	"sort"
	"time"

	"github.com/kbukum/statekit/errors"
	"github.com/kbukum/statekit/logger"
	"github.com/kbukum/statekit/observability"
	"github.com/kbukum/statekit/resilience"
)

// flushJob is a detached pending buffer and the Result its writers share.
// gen is the clear generation the entries were written in.
type flushJob struct {
	entries map[string]any
	result  *Result
	gen     uint64
}

// clearWeight is the writeSem weight Clear takes so that no flush writes
// while the store is erased.
const clearWeight = 1 << 20

// scheduleLocked cancels any armed timer and arms a new one. A timer that
// fires after being superseded sees a stale generation and does nothing.
func (c *Cache) scheduleLocked() {
	c.stopTimerLocked()
	gen := c.timerGen
	c.timer = c.clock.AfterFunc(c.cfg.Debounce, func() { c.onTimer(gen) })
}

func (c *Cache) stopTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Cache) onTimer(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	job := c.detachLocked()
	c.mu.Unlock()

	if job != nil {
		c.runFlush(context.Background(), job)
	}
}

// detachLocked takes the whole pending buffer, leaving an empty one for
// writes that arrive while the job runs. It returns nil if nothing is pending.
func (c *Cache) detachLocked() *flushJob {
	c.stopTimerLocked()
	if len(c.pending) == 0 {
		if c.batch != nil {
			c.batch.resolve(nil)
			c.batch = nil
		}
		return nil
	}
	job := &flushJob{entries: c.pending, result: c.batch, gen: c.clearGen}
	if job.result == nil {
		job.result = newResult()
	}
	c.pending = make(map[string]any)
	c.batch = nil
	c.inflight.Add(1)
	return job
}

// runFlush writes job to the store and resolves its Result. On failure the
// entries go back into the pending buffer unless a newer value was buffered
// meanwhile; they are written with the next flush. A job detached before a
// Clear is dropped: its entries no longer exist in memory.
func (c *Cache) runFlush(ctx context.Context, job *flushJob) (err error) {
	defer c.inflight.Done()

	ctx, span := observability.StartSpan(ctx, observability.SpanFlush)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, c.provider)
	observability.SetSpanAttribute(ctx, observability.AttrKeyCount, len(job.entries))
	start := time.Now()
	defer func() {
		c.metrics.RecordFlush(ctx, len(job.entries), time.Since(start), err)
		observability.EndSpan(span, err)
		job.result.resolve(err)
	}()

	if err = c.writeSem.Acquire(ctx, 1); err != nil {
		c.requeue(job)
		return errors.PersistenceFailed("write", err)
	}
	defer c.writeSem.Release(1)

	c.mu.Lock()
	stale := job.gen != c.clearGen
	c.mu.Unlock()
	if stale {
		c.log.Debug("dropping writes superseded by clear", logger.Fields(logger.FieldKeys, sortedKeys(job.entries)))
		return nil
	}

	payload := make(map[string][]byte, len(job.entries))
	for name, v := range job.entries {
		data, encErr := c.schema.Encode(name, v)
		if encErr != nil {
			c.log.Error("dropping unencodable field", logger.MergeWithError(
				logger.Fields(logger.FieldField, name), encErr))
			continue
		}
		payload[name] = data
	}

	writeErr := resilience.RetryFunc(ctx, c.cfg.FlushRetry, func() error {
		return c.store.SetMany(ctx, payload)
	})
	if writeErr == nil {
		c.log.Debug("flushed pending writes", logger.Fields(logger.FieldKeys, sortedKeys(job.entries)))
		return nil
	}

	requeued := c.requeue(job)
	c.log.Error("durable write failed; memory kept", logger.MergeWithError(logger.Fields(
		logger.FieldKeys, sortedKeys(job.entries),
		"requeued", requeued,
	), writeErr))
	return errors.PersistenceFailed("write", writeErr)
}

func (c *Cache) requeue(job *flushJob) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if job.gen != c.clearGen {
		return 0
	}
	n := 0
	for name, v := range job.entries {
		if _, newer := c.pending[name]; newer {
			continue
		}
		c.pending[name] = v
		n++
	}
	return n
}

// Flush writes pending writes now and waits for the write.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	job := c.detachLocked()
	c.mu.Unlock()
	if job == nil {
		return nil
	}
	return c.runFlush(ctx, job)
}

// Pending lists fields accepted in memory but not yet durably written.
func (c *Cache) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.pending)
}

// Close flushes pending writes, stops the debounce timer, and waits for
// in-flight writes. The store is not closed.
func (c *Cache) Close(ctx context.Context) error {
	err := c.Flush(ctx)

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
