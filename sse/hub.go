package sse

import (
	"sync"

	"github.com/kbukum/statekit/logger"
)

// Event types.
const (
	EventTypeConnected = "connected"
	EventTypeChange    = "change"
	EventTypeCleared   = "cleared"
)

// Event is one message for clients. Fields lists the state fields it
// touches; cleared events go to every client.
type Event struct {
	Type   string
	Fields []string
	Data   []byte
}

// Client is a connected SSE client.
type Client struct {
	id      string
	watched map[string]struct{}
	events  chan Event
	log     *logger.Logger
}

// NewClient creates a client watching fields. An empty list watches everything.
func NewClient(id string, fields []string, buffer int, log *logger.Logger) *Client {
	watched := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		watched[f] = struct{}{}
	}
	return &Client{
		id:      id,
		watched: watched,
		events:  make(chan Event, buffer),
		log:     log,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Events returns the channel of queued events.
func (c *Client) Events() <-chan Event { return c.events }

// Wants reports whether ev should be delivered to c.
func (c *Client) Wants(ev Event) bool {
	if len(c.watched) == 0 || ev.Type == EventTypeCleared {
		return true
	}
	for _, f := range ev.Fields {
		if _, ok := c.watched[f]; ok {
			return true
		}
	}
	return false
}

// Send queues ev. It returns false if the client's buffer is full.
func (c *Client) Send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		c.log.Warn("client buffer full, dropping event", logger.Fields(
			"client_id", c.id,
			"event", ev.Type,
		))
		return false
	}
}

// Close closes the client's event channel.
func (c *Client) Close() {
	close(c.events)
}

// Hub manages client connections and fans out events.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	stopped    bool
	mu         sync.RWMutex
	cfg        Config
	log        *logger.Logger
}

// NewHub creates a hub. Run must be started before clients register.
func NewHub(cfg Config, log *logger.Logger) *Hub {
	cfg.ApplyDefaults()
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		cfg:        cfg,
		log:        log.WithComponent("sse"),
	}
}

// Config returns the effective configuration.
func (h *Hub) Config() Config { return h.cfg }

// Run is the hub's event loop. It blocks until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", client.id, "total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", client.id, "total_clients", total))

		case ev := <-h.broadcast:
			h.fanOut(ev)
		}
	}
}

// Stop shuts the hub down, closing every client. Safe to call multiple times.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.stopped {
		h.stopped = true
		close(h.done)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.Close()
		delete(h.clients, id)
	}
	h.log.Debug("all clients closed during shutdown")
}

// Register adds client. It returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues ev for delivery without blocking. It returns false if
// the hub is stopped or its queue is full.
func (h *Hub) Broadcast(ev Event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- ev:
		return true
	default:
		h.log.Warn("broadcast queue full, dropping event", logger.Fields("event", ev.Type))
		return false
	}
}

func (h *Hub) fanOut(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.Wants(ev) && client.Send(ev) {
			sent++
		}
	}
	h.log.Debug("event sent", logger.Fields(
		"event", ev.Type,
		logger.FieldFields, ev.Fields,
		"match_count", sent,
	))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the IDs of connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
