package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/statekit/logger"
	"github.com/kbukum/statekit/server"
	"github.com/kbukum/statekit/sse"
	"github.com/kbukum/statekit/statecache"
)

// changeEvent is the data of a "change" stream event.
type changeEvent struct {
	Changed statecache.Values `json:"changed"`
	Old     statecache.Values `json:"old"`
}

// connectedEvent is the data of the first event on a stream.
type connectedEvent struct {
	ClientID string            `json:"client_id"`
	Status   string            `json:"status"`
	Fields   []string          `json:"fields,omitempty"`
	State    statecache.Values `json:"state"`
}

func (h *Handler) events(c *gin.Context) {
	fields, err := h.fieldList(c.Query("fields"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	id := uuid.NewString()
	state := h.cache.Snapshot()
	if len(fields) > 0 {
		state = h.cache.GetMany(fields...)
	}
	hello, err := json.Marshal(connectedEvent{
		ClientID: id,
		Status:   string(h.cache.Status()),
		Fields:   fields,
		State:    state,
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	client := sse.NewClient(id, fields, h.hub.Config().ClientBuffer, h.log)
	sse.Serve(h.hub, c.Writer, c.Request, client, hello)
}

// Bridge subscribes hub to every field of cache so each state change and
// clear is broadcast to stream clients. The returned func unsubscribes.
func Bridge(cache *statecache.Cache, hub *sse.Hub, log *logger.Logger) (func(), error) {
	log = log.WithComponent("sse-bridge")
	return cache.Subscribe(cache.Schema().Names(), func(changed, old statecache.Values) {
		if cleared, _ := changed[statecache.ClearedKey].(bool); cleared {
			hub.Broadcast(sse.Event{Type: sse.EventTypeCleared, Data: []byte(`{"cleared":true}`)})
			return
		}

		prev := make(statecache.Values, len(changed))
		for k := range changed {
			prev[k] = old[k]
		}
		data, err := json.Marshal(changeEvent{Changed: changed, Old: prev})
		if err != nil {
			log.Warn("change event not encodable", logger.MergeWithError(
				logger.Fields(logger.FieldFields, changed.Keys()), err))
			return
		}
		hub.Broadcast(sse.Event{Type: sse.EventTypeChange, Fields: changed.Keys(), Data: data})
	})
}
