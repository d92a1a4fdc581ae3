package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/statekit/logger"
)

// Serve streams events for client until the request ends or the hub stops.
// connected is sent first as the data of a "connected" event.
func Serve(hub *Hub, w http.ResponseWriter, r *http.Request, client *Client, connected []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		hub.log.Error("streaming not supported", logger.Fields("client_id", client.id))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE connections outlive the server's WriteTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		hub.log.Debug("could not disable write deadline", logger.MergeWithError(
			logger.Fields("client_id", client.id), err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if !hub.Register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	writeEvent(w, Event{Type: EventTypeConnected, Data: connected})
	flusher.Flush()

	hub.log.Debug("client connected", logger.Fields(
		"client_id", client.id,
		"remote_addr", r.RemoteAddr,
	))

	keepAlive := time.NewTicker(hub.cfg.KeepAlive)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			hub.log.Debug("client disconnected", logger.Fields(
				"client_id", client.id,
				"reason", ctx.Err().Error(),
			))
			return

		case ev, ok := <-client.Events():
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()

		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
}
