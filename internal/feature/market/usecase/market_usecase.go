// Package usecase implements the business logic for the market feature.
package usecase

import (
	"context"
	"log/slog"

	"updown_backend/internal/feature/market/domain/entity"
	streamusecase "updown_backend/internal/feature/stream/usecase"
)

// PriceCache abstracts the latest-sample store.
type PriceCache interface {
	// Set overwrites the stored sample and resets its TTL.
	Set(ctx context.Context, sample entity.PriceSample) error
	// Get returns the latest sample or an error when none is available.
	Get(ctx context.Context) (entity.PriceSample, error)
}

// Publisher abstracts the fan-out side of the delivery layer.
type Publisher interface {
	// Publish broadcasts an event to every open connection.
	Publish(eventType string, payload any)
}

// marketUsecase routes each feed tick into the cache and the broadcast
// channel, and serves snapshot reads.
type marketUsecase struct {
	cache     PriceCache
	publisher Publisher
	logger    *slog.Logger
}

// NewMarketUsecase creates a new marketUsecase instance.
func NewMarketUsecase(cache PriceCache, publisher Publisher, logger *slog.Logger) *marketUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &marketUsecase{cache: cache, publisher: publisher, logger: logger}
}

// HandleTick stores the sample and broadcasts it: exactly one cache write
// and one broadcast per successful tick. A cache failure is logged but does
// not block the broadcast.
func (u *marketUsecase) HandleTick(ctx context.Context, sample entity.PriceSample) {
	if err := u.cache.Set(ctx, sample); err != nil {
		u.logger.Error("failed to cache price sample", "error", err)
	}
	u.publisher.Publish(streamusecase.EventPriceUpdate, sample)
}

// Snapshot returns the latest cached sample for the non-streaming endpoint.
func (u *marketUsecase) Snapshot(ctx context.Context) (entity.PriceSample, error) {
	return u.cache.Get(ctx)
}
