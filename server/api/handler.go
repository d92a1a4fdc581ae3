// Package api exposes a statecache.Cache over HTTP: state reads and
// writes, staleness checks, and a server-sent event stream of changes.
package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/statekit/errors"
	"github.com/kbukum/statekit/logger"
	"github.com/kbukum/statekit/sse"
	"github.com/kbukum/statekit/statecache"
)

// EventsPath is the route of the change stream.
const EventsPath = "/v1/events"

// Handler serves the state API for one cache.
type Handler struct {
	cache *statecache.Cache
	hub   *sse.Hub
	log   *logger.Logger
}

// New creates a Handler. hub may be nil, in which case the event stream
// route is not registered.
func New(cache *statecache.Cache, hub *sse.Hub, log *logger.Logger) *Handler {
	return &Handler{
		cache: cache,
		hub:   hub,
		log:   log.WithComponent("api"),
	}
}

// Register mounts the API routes on r behind the given guards.
func (h *Handler) Register(r gin.IRouter, guards ...gin.HandlerFunc) {
	v1 := r.Group("/v1", guards...)
	v1.GET("/state", h.getState)
	v1.GET("/state/:field", h.getField)
	v1.PATCH("/state", h.patchState)
	v1.DELETE("/state", h.clearState)
	v1.GET("/stale/:category", h.getStale)
	v1.POST("/stale/:category/invalidate", h.invalidate)
	if h.hub != nil {
		v1.GET("/events", h.events)
	}
}

// fieldList parses a comma-separated list of field names, rejecting
// names the schema does not declare.
func (h *Handler) fieldList(raw string) ([]string, error) {
	var fields []string
	for name := range strings.SplitSeq(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := h.cache.Schema().Field(name); !ok {
			return nil, apperrors.UnknownField(name)
		}
		fields = append(fields, name)
	}
	return fields, nil
}

// knownCategory reports whether the schema declares category and its
// LastFetched sibling.
func (h *Handler) knownCategory(category string) bool {
	schema := h.cache.Schema()
	if _, ok := schema.Field(category); !ok {
		return false
	}
	_, ok := schema.Field(statecache.LastFetchedField(category))
	return ok
}
