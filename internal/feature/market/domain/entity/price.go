// Package entity defines the domain entities for the market feature.
package entity

import "time"

// PriceSample is one normalized tick from the exchange kline stream.
// Samples are replace-only: the feed produces a new value per tick and the
// cache overwrites the previous one, so a sample is never mutated after
// creation.
type PriceSample struct {
	// Price is the latest trade price within the interval (kline close).
	Price float64 `json:"price"`

	// OpenPrice, HighPrice and LowPrice describe the interval so far.
	OpenPrice float64 `json:"open_price"`
	HighPrice float64 `json:"high_price"`
	LowPrice  float64 `json:"low_price"`

	// Volume is the base-asset volume, QuoteVolume the quote-asset volume.
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quote_volume"`

	// TradesCount is the number of trades in the interval.
	TradesCount int64 `json:"trades_count"`

	// SampledAt is the exchange event time for this tick.
	SampledAt time.Time `json:"sampled_at"`

	// IntervalStart and IntervalEnd bound the kline interval.
	IntervalStart time.Time `json:"interval_start"`
	IntervalEnd   time.Time `json:"interval_end"`

	// IsClosed reports whether the interval has closed.
	IsClosed bool `json:"is_closed"`
}
