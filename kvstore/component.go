package kvstore

import (
	"context"
	"fmt"

	"github.com/kbukum/statekit/component"
	"github.com/kbukum/statekit/logger"
)

// Component adapts a Store to the component lifecycle: Start verifies
// connectivity, Stop closes the store.
type Component struct {
	store    Store
	provider string
	details  string
	log      *logger.Logger
}

// NewComponent wraps store. details is shown in the startup log.
func NewComponent(store Store, provider, details string, log *logger.Logger) *Component {
	return &Component{
		store:    store,
		provider: provider,
		details:  details,
		log:      log.WithComponent("kvstore"),
	}
}

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "kvstore" }

// Store returns the wrapped store.
func (c *Component) Store() Store { return c.store }

// Start pings the backend when the store supports it.
func (c *Component) Start(ctx context.Context) error {
	if p, ok := c.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("kvstore %s ping: %w", c.provider, err)
		}
	}
	return nil
}

// Stop closes the store.
func (c *Component) Stop(_ context.Context) error {
	c.log.Info("closing store", logger.Fields(logger.FieldProvider, c.provider))
	return c.store.Close()
}

// Health pings the backend when the store supports it.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if p, ok := c.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			h.Status = component.StatusUnhealthy
			h.Message = fmt.Sprintf("ping failed: %v", err)
		}
	}
	return h
}

// Describe reports the provider for the startup log.
func (c *Component) Describe() component.Description {
	return component.Description{Type: "kvstore", Details: c.provider + " " + c.details}
}
