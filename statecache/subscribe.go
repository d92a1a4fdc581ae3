package statecache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kbukum/statekit/errors"
	"github.com/kbukum/statekit/logger"
)

type subscription struct {
	id      string
	watched map[string]struct{}
	handler Handler
	active  atomic.Bool
}

func (s *subscription) watches(changed Values) bool {
	for name := range changed {
		if _, ok := s.watched[name]; ok {
			return true
		}
	}
	return false
}

// event is one change waiting for delivery. subs is the subscriber list at
// the time of the change.
type event struct {
	changed Values
	old     Values
	cleared bool
	subs    []*subscription
}

// Subscribe registers h for changes to any of fields. Subscribers are called
// in subscription order, synchronously with the Set or Clear that caused the
// change. Every subscriber receives the clear event. The returned func
// unsubscribes and may be called more than once.
func (c *Cache) Subscribe(fields []string, h Handler) (func(), error) {
	if len(fields) == 0 {
		return nil, errors.InvalidInput("fields", "at least one field must be watched")
	}
	if h == nil {
		return nil, errors.InvalidInput("handler", "handler is nil")
	}
	watched := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := c.schema.Field(f); !ok {
			return nil, errors.UnknownField(f)
		}
		watched[f] = struct{}{}
	}

	sub := &subscription{id: newSubscriptionID(), watched: watched, handler: h}
	sub.active.Store(true)

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(sub) })
	}, nil
}

func (c *Cache) unsubscribe(sub *subscription) {
	sub.active.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (c *Cache) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Cache) enqueueLocked(changed, old Values, cleared bool) {
	if len(c.subs) == 0 {
		return
	}
	subs := make([]*subscription, len(c.subs))
	copy(subs, c.subs)
	c.events = append(c.events, event{changed: changed, old: old, cleared: cleared, subs: subs})
}

// drain delivers queued events in order. Only one goroutine drains at a
// time; a Set made from inside a handler queues its event behind the one
// being delivered and returns, and the active drain delivers it next.
func (c *Cache) drain() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.events) > 0 {
		ev := c.events[0]
		c.events[0] = event{}
		c.events = c.events[1:]
		c.mu.Unlock()

		c.deliver(ev)

		c.mu.Lock()
	}
	c.events = nil
	c.draining = false
	c.mu.Unlock()
}

func (c *Cache) deliver(ev event) {
	for _, sub := range ev.subs {
		if !sub.active.Load() {
			continue
		}
		if !ev.cleared && !sub.watches(ev.changed) {
			continue
		}
		c.invoke(sub, ev)
	}
}

func (c *Cache) invoke(sub *subscription, ev event) {
	panicked := false
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err := errors.SubscriberFailed(sub.id, r)
			c.log.Error("subscriber panicked", logger.Fields(
				logger.FieldError, err.Error(),
				"code", string(err.Code),
				"subscription", sub.id,
				logger.FieldFields, ev.changed.Keys(),
			))
		}
		c.metrics.RecordNotify(context.Background(), panicked)
	}()
	sub.handler(ev.changed.Clone(), ev.old.Clone())
}
