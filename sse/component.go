package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/statekit/component"
)

// Component runs a Hub under the component lifecycle.
type Component struct {
	hub  *Hub
	wg   sync.WaitGroup
	path string
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent wraps hub, served at path.
func NewComponent(hub *Hub, path string) *Component {
	return &Component{hub: hub, path: path}
}

// Hub returns the underlying Hub.
func (c *Component) Hub() *Hub { return c.hub }

// Name returns the component name.
func (c *Component) Name() string { return "sse" }

// Start launches the hub's event loop.
func (c *Component) Start(_ context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop shuts the hub down and waits for Run to return.
func (c *Component) Stop(_ context.Context) error {
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

// Health reports the number of connected clients.
func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.ClientCount()),
	}
}

// Describe returns the stream path.
func (c *Component) Describe() component.Description {
	return component.Description{
		Type:    "sse",
		Details: fmt.Sprintf("path=%s keep_alive=%s", c.path, c.hub.cfg.KeepAlive),
	}
}
