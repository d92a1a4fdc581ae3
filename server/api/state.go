package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/statekit/errors"
	"github.com/kbukum/statekit/server"
	"github.com/kbukum/statekit/statecache"
	"github.com/kbukum/statekit/validation"
)

// patchRequest is the body of PATCH /v1/state.
type patchRequest struct {
	Updates   map[string]any `json:"updates" validate:"required,min=1"`
	Immediate bool           `json:"immediate"`
	Wait      bool           `json:"wait"`
}

func (h *Handler) meta() *server.Meta {
	return &server.Meta{
		Status:  string(h.cache.Status()),
		Pending: h.cache.Pending(),
	}
}

func (h *Handler) getState(c *gin.Context) {
	server.RespondOKWithMeta(c, h.cache.Snapshot(), h.meta())
}

func (h *Handler) getField(c *gin.Context) {
	name := c.Param("field")
	if _, ok := h.cache.Schema().Field(name); !ok {
		server.RespondWithError(c, apperrors.UnknownField(name))
		return
	}
	value, _ := h.cache.Get(name)
	server.RespondOK(c, gin.H{"field": name, "value": value})
}

func (h *Handler) patchState(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if err := validation.Validate(req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	res := h.cache.Set(statecache.Values(req.Updates), req.Immediate)
	select {
	case <-res.Done():
		// Rejected before touching state, or nothing to write.
		if err := res.Err(); err != nil {
			server.RespondWithError(c, err)
			return
		}
	default:
	}

	if !req.Wait {
		server.RespondAccepted(c, h.cache.Snapshot(), h.meta())
		return
	}
	if err := res.Wait(c.Request.Context()); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, h.cache.Snapshot(), h.meta())
}

func (h *Handler) clearState(c *gin.Context) {
	preserve := false
	if raw := c.Query("preserve"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			server.RespondWithError(c, apperrors.InvalidInput("preserve", "must be a boolean"))
			return
		}
		preserve = v
	}

	if err := h.cache.Clear(c.Request.Context(), preserve); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, h.cache.Snapshot(), h.meta())
}

// staleResponse reports the freshness of one cached category.
type staleResponse struct {
	Category string `json:"category"`
	Stale    bool   `json:"stale"`
	TTL      string `json:"ttl"`
	AgeMs    *int64 `json:"age_ms,omitempty"`
}

func (h *Handler) staleness(category string) staleResponse {
	cfg := h.cache.Config()
	resp := staleResponse{
		Category: category,
		Stale:    h.cache.IsStale(category),
		TTL:      cfg.TTLFor(category).String(),
	}
	if age, ok := h.cache.Age(category); ok {
		ms := age.Milliseconds()
		resp.AgeMs = &ms
	}
	return resp
}

func (h *Handler) getStale(c *gin.Context) {
	category := c.Param("category")
	if !h.knownCategory(category) {
		server.RespondWithError(c, apperrors.NotFound("category", category))
		return
	}
	server.RespondOK(c, h.staleness(category))
}

func (h *Handler) invalidate(c *gin.Context) {
	category := c.Param("category")
	if !h.knownCategory(category) {
		server.RespondWithError(c, apperrors.NotFound("category", category))
		return
	}
	if err := h.cache.Invalidate(c.Request.Context(), category); err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, server.DataResponse{Data: h.staleness(category)})
}
