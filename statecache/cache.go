package statecache

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/statekit/kvstore"
	"github.com/kbukum/statekit/logger"
	"github.com/kbukum/statekit/observability"
)

// Status is the initialization state of a Cache.
type Status string

const (
	StatusUninitialized Status = "UNINITIALIZED"
	StatusInitializing  Status = "INITIALIZING"
	StatusReady         Status = "READY"
	StatusFailed        Status = "FAILED"
)

// Handler receives the changed fields and a snapshot taken before the
// change. After Clear, changed is {"cleared": true}. Both maps are copies.
type Handler func(changed, old Values)

// Option configures a Cache.
type Option func(*Cache)

// WithConfig sets batching and staleness settings.
func WithConfig(cfg Config) Option {
	return func(c *Cache) { c.cfg = cfg }
}

// WithSchema replaces DefaultSchema.
func WithSchema(s *Schema) Option {
	return func(c *Cache) { c.schema = s }
}

// WithClock replaces the wall clock.
func WithClock(clk Clock) Option {
	return func(c *Cache) { c.clock = clk }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithMetrics records cache instruments.
func WithMetrics(m *observability.CacheMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithProvider names the store backend in spans and logs.
func WithProvider(name string) Option {
	return func(c *Cache) { c.provider = name }
}

// Cache is an observable key-value cache over a durable store. Create one
// per process with New and share it.
type Cache struct {
	store    kvstore.Store
	schema   *Schema
	cfg      Config
	clock    Clock
	log      *logger.Logger
	metrics  *observability.CacheMetrics
	provider string

	initGroup singleflight.Group
	inflight  sync.WaitGroup
	writeSem  *semaphore.Weighted

	mu       sync.Mutex
	status   Status
	state    Values
	pending  map[string]any
	batch    *Result
	timer    Timer
	timerGen uint64
	clearGen uint64
	// fields Set before the first successful load; nil once READY
	dirty    map[string]struct{}
	subs     []*subscription
	events   []event
	draining bool
	warned   bool
}

// New creates a cache over store. Memory starts at the schema defaults;
// call Initialize to load durable state.
func New(store kvstore.Store, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:    store,
		schema:   DefaultSchema(),
		clock:    SystemClock(),
		provider: "custom",
		status:   StatusUninitialized,
		pending:  make(map[string]any),
		dirty:    make(map[string]struct{}),
		writeSem: semaphore.NewWeighted(clearWeight),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.WithComponent("statecache")
	}
	c.cfg.ApplyDefaults()
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	c.state = c.schema.Defaults()
	return c, nil
}

// Status reports the initialization state.
func (c *Cache) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Schema returns the field declarations.
func (c *Cache) Schema() *Schema { return c.schema }

// Config returns the effective configuration.
func (c *Cache) Config() Config { return c.cfg }

// Get returns the value of key from memory.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnNotReadyLocked()
	v, ok := c.state[key]
	return cloneValue(v), ok
}

// GetMany returns the requested keys. Absent keys map to nil.
func (c *Cache) GetMany(keys ...string) Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnNotReadyLocked()
	out := make(Values, len(keys))
	for _, k := range keys {
		out[k] = cloneValue(c.state[k])
	}
	return out
}

// Snapshot returns a copy of the whole state.
func (c *Cache) Snapshot() Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnNotReadyLocked()
	return c.state.Clone()
}

// Lookup returns key's value as a T. ok is false when the field is absent
// or holds another type.
func Lookup[T any](c *Cache, key string) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func (c *Cache) warnNotReadyLocked() {
	if c.status == StatusReady || c.warned {
		return
	}
	c.warned = true
	c.log.Warn("state read before initialization completed; serving defaults",
		logger.Fields(logger.FieldStatus, string(c.status)))
}

// Set applies updates to memory, notifies subscribers, and schedules the
// durable write. With immediate, pending writes are flushed now instead of
// after the debounce period.
//
// Get reflects the updates as soon as Set returns. The Result fails with
// PERSISTENCE_FAILED if the durable write fails; memory is not rolled back.
// Unknown fields or mistyped values fail the Result without any change.
func (c *Cache) Set(updates Values, immediate bool) *Result {
	normalized, err := c.schema.Normalize(updates)
	if err != nil {
		return resolvedResult(err)
	}
	if len(normalized) == 0 {
		return resolvedResult(nil)
	}

	c.mu.Lock()
	old := c.state.Clone()
	changed := make(Values, len(normalized))
	for name, v := range normalized {
		if v == nil {
			v = cloneValue(c.schema.fields[name].Default)
		}
		if v == nil {
			delete(c.state, name)
		} else {
			c.state[name] = v
		}
		changed[name] = v
		c.pending[name] = v
		if c.dirty != nil {
			c.dirty[name] = struct{}{}
		}
	}
	if c.batch == nil {
		c.batch = newResult()
	}
	res := c.batch
	c.enqueueLocked(changed, old, false)

	var job *flushJob
	if immediate {
		job = c.detachLocked()
	} else {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	c.drain()

	if job != nil {
		go c.runFlush(context.Background(), job)
	}
	return res
}

// SetAndWait is Set followed by Result.Wait.
func (c *Cache) SetAndWait(ctx context.Context, updates Values, immediate bool) error {
	return c.Set(updates, immediate).Wait(ctx)
}

func newSubscriptionID() string {
	return uuid.NewString()
}
