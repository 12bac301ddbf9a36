package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"updown_backend/internal/feature/market/adapters/binance/dto"
	"updown_backend/internal/feature/market/domain/entity"
	"updown_backend/internal/shared/backoff"
)

// ErrFeedDown is returned when the connector exhausts its reconnect attempts.
// The feed stays down until process restart; health reports it as degraded.
var ErrFeedDown = errors.New("feed connection attempts exhausted")

// TickHandler receives each normalized price sample.
type TickHandler interface {
	HandleTick(ctx context.Context, sample entity.PriceSample)
}

// TickHandlerFunc is a function adapter for TickHandler.
type TickHandlerFunc func(ctx context.Context, sample entity.PriceSample)

func (f TickHandlerFunc) HandleTick(ctx context.Context, sample entity.PriceSample) {
	f(ctx, sample)
}

// Stream maintains one long-lived websocket connection to the Binance kline
// feed, normalizes each message into a PriceSample and forwards it to the
// handler. On stream errors it reconnects with capped exponential backoff.
type Stream struct {
	cfg     Config
	handler TickHandler
	logger  *slog.Logger

	mu        sync.RWMutex
	connected bool
}

// NewStream creates a new feed connector.
func NewStream(cfg Config, handler TickHandler, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{cfg: cfg, handler: handler, logger: logger}
}

// Connected reports whether the feed connection is currently up.
// Consumed by the health endpoint.
func (s *Stream) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Stream) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

// Run connects and consumes the stream until ctx is cancelled or the
// reconnect attempt budget is spent, in which case it returns ErrFeedDown.
func (s *Stream) Run(ctx context.Context) error {
	attempt := 0
	for {
		err := s.consume(ctx, &attempt)
		s.setConnected(false)
		if ctx.Err() != nil {
			return nil
		}

		attempt++
		if attempt >= s.cfg.MaxAttempts {
			s.logger.Error("feed reconnect attempts exhausted",
				"attempts", attempt, "url", s.cfg.StreamURL(), "error", err)
			return ErrFeedDown
		}

		delay := backoff.Delay(s.cfg.ReconnectBase, s.cfg.ReconnectMax, attempt-1)
		s.logger.Warn("feed disconnected, reconnecting",
			"attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// consume dials the stream and reads messages until an error occurs.
// A successful dial zeroes the caller's attempt counter, so MaxAttempts only
// counts consecutive failures: routine server-side closes (Binance recycles
// kline streams every 24h) start a fresh budget instead of eating into one
// lifetime total.
func (s *Stream) consume(ctx context.Context, attempt *int) error {
	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, s.cfg.StreamURL(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.StreamURL(), err)
	}
	defer conn.Close()

	*attempt = 0
	s.setConnected(true)
	s.logger.Info("feed connected", "url", s.cfg.StreamURL())

	// Close the socket when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		sample, err := ParseTick(data)
		if err != nil {
			// Messages of other kinds (or garbage) are ignored, never fatal.
			s.logger.Debug("ignoring feed message", "error", err)
			continue
		}

		s.handler.HandleTick(ctx, sample)
	}
}

// ParseTick decodes one stream message into a PriceSample.
// Messages whose event tag is not "kline" are rejected.
func ParseTick(data []byte) (entity.PriceSample, error) {
	var ev dto.KlineEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return entity.PriceSample{}, fmt.Errorf("decode kline event: %w", err)
	}
	if ev.EventType != "kline" {
		return entity.PriceSample{}, fmt.Errorf("unexpected event type %q", ev.EventType)
	}

	price, err := strconv.ParseFloat(ev.Kline.ClosePrice, 64)
	if err != nil {
		return entity.PriceSample{}, fmt.Errorf("parse close %q: %w", ev.Kline.ClosePrice, err)
	}
	open, err := strconv.ParseFloat(ev.Kline.OpenPrice, 64)
	if err != nil {
		return entity.PriceSample{}, fmt.Errorf("parse open %q: %w", ev.Kline.OpenPrice, err)
	}
	high, err := strconv.ParseFloat(ev.Kline.HighPrice, 64)
	if err != nil {
		return entity.PriceSample{}, fmt.Errorf("parse high %q: %w", ev.Kline.HighPrice, err)
	}
	low, err := strconv.ParseFloat(ev.Kline.LowPrice, 64)
	if err != nil {
		return entity.PriceSample{}, fmt.Errorf("parse low %q: %w", ev.Kline.LowPrice, err)
	}
	volume, err := strconv.ParseFloat(ev.Kline.Volume, 64)
	if err != nil {
		return entity.PriceSample{}, fmt.Errorf("parse volume %q: %w", ev.Kline.Volume, err)
	}
	quoteVolume, err := strconv.ParseFloat(ev.Kline.QuoteVolume, 64)
	if err != nil {
		return entity.PriceSample{}, fmt.Errorf("parse quote volume %q: %w", ev.Kline.QuoteVolume, err)
	}

	return entity.PriceSample{
		Price:         price,
		OpenPrice:     open,
		HighPrice:     high,
		LowPrice:      low,
		Volume:        volume,
		QuoteVolume:   quoteVolume,
		TradesCount:   ev.Kline.TradeCount,
		SampledAt:     time.UnixMilli(ev.EventTime).UTC(),
		IntervalStart: time.UnixMilli(ev.Kline.StartTime).UTC(),
		IntervalEnd:   time.UnixMilli(ev.Kline.CloseTime).UTC(),
		IsClosed:      ev.Kline.IsClosed,
	}, nil
}
