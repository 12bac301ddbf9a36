// Package di provides dependency injection factories for creating application components.
package di

import (
	"log/slog"

	"updown_backend/internal/feature/market/adapters/binance"
)

// NewPriceFeed creates a fully configured feed connector from the environment.
func NewPriceFeed(handler binance.TickHandler, logger *slog.Logger) *binance.Stream {
	cfg := binance.LoadConfig()
	return binance.NewStream(cfg, handler, logger)
}
