// Package handler provides the HTTP handlers for the market feature.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"updown_backend/internal/api"
	"updown_backend/internal/feature/market/domain/entity"
	"updown_backend/internal/platform/pricecache"
)

// MarketUsecase defines the snapshot operation consumed by this handler.
type MarketUsecase interface {
	Snapshot(ctx context.Context) (entity.PriceSample, error)
}

// PriceHandler serves the non-streaming price snapshot, used by clients as a
// fallback when their stream has gone stale.
type PriceHandler struct {
	market MarketUsecase
}

// NewPriceHandler creates a new PriceHandler instance.
func NewPriceHandler(market MarketUsecase) *PriceHandler {
	return &PriceHandler{market: market}
}

// Snapshot handles GET /price.
// - 503 when no sample is cached (feed down or expired)
// - 200 with the latest sample otherwise
func (h *PriceHandler) Snapshot(c *gin.Context) {
	sample, err := h.market.Snapshot(c.Request.Context())
	if err != nil {
		if errors.Is(err, pricecache.ErrNoPrice) {
			c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "no price data available"})
			return
		}
		slog.Error("price snapshot failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, sample)
}
