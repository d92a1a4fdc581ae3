package statecache

import (
	"context"
	"fmt"

	"github.com/kbukum/statekit/component"
)

// Component runs a Cache under the component lifecycle: Start initializes
// it and Stop flushes pending writes.
type Component struct {
	cache *Cache
}

// NewComponent wraps cache.
func NewComponent(cache *Cache) *Component {
	return &Component{cache: cache}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Name returns the component name.
func (c *Component) Name() string { return "statecache" }

// Cache returns the wrapped cache.
func (c *Component) Cache() *Cache { return c.cache }

// Start loads durable state.
func (c *Component) Start(ctx context.Context) error {
	_, err := c.cache.Initialize(ctx)
	return err
}

// Stop flushes pending writes.
func (c *Component) Stop(ctx context.Context) error {
	return c.cache.Close(ctx)
}

// Health maps the initialization status.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name()}
	switch status := c.cache.Status(); status {
	case StatusReady:
		h.Status = component.StatusHealthy
		if n := len(c.cache.Pending()); n > 0 {
			h.Message = fmt.Sprintf("%d pending writes", n)
		}
	case StatusFailed:
		h.Status = component.StatusUnhealthy
		h.Message = "initialization failed"
	default:
		h.Status = component.StatusDegraded
		h.Message = string(status)
	}
	return h
}

// Describe reports batching settings.
func (c *Component) Describe() component.Description {
	cfg := c.cache.Config()
	return component.Description{
		Type: "cache",
		Details: fmt.Sprintf("provider=%s debounce=%s fields=%d",
			c.cache.provider, cfg.Debounce, len(c.cache.schema.order)),
	}
}
