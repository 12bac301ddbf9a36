// Package handler provides transport-level handlers not tied to one feature.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"updown_backend/internal/api"
)

// Probe reports whether one dependency is currently healthy.
type Probe func(ctx context.Context) bool

// HealthHandler serves the readiness endpoint.
type HealthHandler struct {
	feed  Probe
	store Probe
	cache Probe
}

// NewHealthHandler creates a new HealthHandler instance. Nil probes count as
// healthy.
func NewHealthHandler(feed, store, cache Probe) *HealthHandler {
	return &HealthHandler{feed: feed, store: store, cache: cache}
}

func check(ctx context.Context, p Probe) bool {
	if p == nil {
		return true
	}
	return p(ctx)
}

// Health handles GET /healthz. The process stays up when the feed or a
// dependency is down; this endpoint is how the degradation is observed.
// - 200 "ok" when everything is reachable
// - 503 "degraded" otherwise, with per-dependency detail
func (h *HealthHandler) Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	ctx := c.Request.Context()
	resp := api.HealthResponse{
		Status:         "ok",
		FeedConnected:  check(ctx, h.feed),
		StoreConnected: check(ctx, h.store),
		CacheConnected: check(ctx, h.cache),
	}

	code := http.StatusOK
	if !resp.FeedConnected || !resp.StoreConnected || !resp.CacheConnected {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
