// Package sseclient is the client-side counterpart of the stream feature: a
// resilient subscriber for the server's event stream with reconnection,
// heartbeat monitoring and typed event dispatch.
package sseclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	guessentity "updown_backend/internal/feature/guess/domain/entity"
	marketentity "updown_backend/internal/feature/market/domain/entity"
	streamusecase "updown_backend/internal/feature/stream/usecase"
	"updown_backend/internal/shared/backoff"
)

// ErrMaxAttempts is returned when the supervisor gives up reconnecting.
var ErrMaxAttempts = errors.New("reconnect attempts exhausted")

// State is the supervisor connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds the supervisor settings.
type Config struct {
	StreamURL   string // Stream endpoint (e.g. "http://host/stream")
	SnapshotURL string // Fallback snapshot endpoint (e.g. "http://host/price")
	Token       string // Bearer token for both endpoints

	HeartbeatTimeout time.Duration // Max silence of any kind before forcing a reconnect
	FreshnessTimeout time.Duration // Max price age before fetching a snapshot
	WatchdogInterval time.Duration // How often the watchdogs check

	ReconnectBase time.Duration // Base delay for reconnect backoff
	ReconnectMax  time.Duration // Cap for reconnect backoff
	MaxAttempts   int           // Consecutive failed attempts before Failed
}

// withDefaults fills unset fields. The server heartbeats every 30 seconds,
// so the heartbeat timeout must comfortably exceed that.
func (c Config) withDefaults() Config {
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = 75 * time.Second
	}
	if c.FreshnessTimeout <= 0 {
		c.FreshnessTimeout = 15 * time.Second
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = 5 * time.Second
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = time.Second
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	return c
}

// Handlers holds the per-event callbacks. Nil callbacks are skipped; unknown
// event types are logged and ignored, never fatal.
type Handlers struct {
	OnConnection  func()
	OnPrice       func(marketentity.PriceSample)
	OnGuessResult func(guessentity.GuessResult)
	OnStateChange func(State)
}

// Supervisor consumes the event stream and keeps it alive.
type Supervisor struct {
	cfg      Config
	handlers Handlers

	// streamClient must have no overall timeout; snapClient must have one.
	streamClient *http.Client
	snapClient   *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	state       State
	lastEventAt time.Time
	lastPriceAt time.Time
}

// New creates a Supervisor. streamClient is used for the long-lived stream
// request and must not carry a client-level timeout; snapClient is used for
// snapshot fallbacks and should.
func New(cfg Config, handlers Handlers, streamClient, snapClient *http.Client, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:          cfg.withDefaults(),
		handlers:     handlers,
		streamClient: streamClient,
		snapClient:   snapClient,
		logger:       logger,
	}
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()

	if changed && s.handlers.OnStateChange != nil {
		s.handlers.OnStateChange(st)
	}
}

func (s *Supervisor) touchEvent() {
	s.mu.Lock()
	s.lastEventAt = time.Now()
	s.mu.Unlock()
}

func (s *Supervisor) touchPrice() {
	s.mu.Lock()
	s.lastPriceAt = time.Now()
	s.mu.Unlock()
}

func (s *Supervisor) since() (event, price time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastEventAt), time.Since(s.lastPriceAt)
}

// Run connects and consumes the stream until ctx is cancelled or the
// reconnect budget is spent. Cancelling ctx stops pending reconnect timers
// and tears the transport down deterministically; Run then returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	attempt := 0
	for {
		s.setState(StateConnecting)
		err := s.streamOnce(ctx, &attempt)
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return nil
		}

		attempt++
		if attempt >= s.cfg.MaxAttempts {
			s.logger.Error("stream reconnect attempts exhausted", "attempts", attempt, "error", err)
			s.setState(StateFailed)
			return ErrMaxAttempts
		}

		delay := backoff.Delay(s.cfg.ReconnectBase, s.cfg.ReconnectMax, attempt-1)
		s.logger.Warn("stream disconnected, reconnecting", "attempt", attempt, "delay", delay, "error", err)
		s.setState(StateReconnecting)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.setState(StateDisconnected)
			return nil
		case <-timer.C:
		}
	}
}

// streamOnce opens the stream and consumes it until it breaks. A successful
// open resets the caller's attempt counter.
func (s *Supervisor) streamOnce(ctx context.Context, attempt *int) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, s.cfg.StreamURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	resp, err := s.streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	*attempt = 0
	s.touchEvent()
	s.touchPrice()
	s.setState(StateConnected)
	s.logger.Info("stream connected", "url", s.cfg.StreamURL)

	// The watchdog cancels streamCtx on heartbeat silence, which aborts the
	// body read below.
	go s.watchdog(streamCtx, cancel)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		s.touchEvent()

		switch {
		case line == "":
			if eventType != "" {
				s.dispatch(eventType, data.String())
			}
			eventType = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// Comment frame: heartbeat. Counts as traffic, nothing more.
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("stream closed by server")
}

// watchdog enforces the heartbeat and data-freshness thresholds while the
// stream is up.
func (s *Supervisor) watchdog(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(s.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eventAge, priceAge := s.since()

			if eventAge > s.cfg.HeartbeatTimeout {
				s.logger.Warn("no traffic within heartbeat timeout, forcing reconnect",
					"age", eventAge, "timeout", s.cfg.HeartbeatTimeout)
				cancel()
				return
			}

			if priceAge > s.cfg.FreshnessTimeout {
				s.fetchSnapshot(ctx)
			}
		}
	}
}

// fetchSnapshot pulls the current price over the non-streaming endpoint when
// the stream has gone quiet on price updates.
func (s *Supervisor) fetchSnapshot(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.SnapshotURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	resp, err := s.snapClient.Do(req)
	if err != nil {
		s.logger.Warn("snapshot fallback failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("snapshot fallback failed", "status", resp.StatusCode)
		return
	}

	var sample marketentity.PriceSample
	if err := json.NewDecoder(resp.Body).Decode(&sample); err != nil {
		s.logger.Warn("snapshot decode failed", "error", err)
		return
	}

	s.touchPrice()
	s.logger.Debug("price refreshed via snapshot fallback", "price", sample.Price)
	if s.handlers.OnPrice != nil {
		s.handlers.OnPrice(sample)
	}
}

// dispatch routes one complete frame to its typed handler.
func (s *Supervisor) dispatch(eventType, data string) {
	switch eventType {
	case streamusecase.EventConnection:
		s.logger.Info("stream handshake received")
		if s.handlers.OnConnection != nil {
			s.handlers.OnConnection()
		}

	case streamusecase.EventTest:
		s.logger.Debug("stream test event received")

	case streamusecase.EventPriceUpdate:
		var sample marketentity.PriceSample
		if err := json.Unmarshal([]byte(data), &sample); err != nil {
			s.logger.Warn("bad price_update payload", "error", err)
			return
		}
		s.touchPrice()
		if s.handlers.OnPrice != nil {
			s.handlers.OnPrice(sample)
		}

	case streamusecase.EventGuessResult:
		var result guessentity.GuessResult
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			s.logger.Warn("bad guess_result payload", "error", err)
			return
		}
		if s.handlers.OnGuessResult != nil {
			s.handlers.OnGuessResult(result)
		}

	default:
		// Unknown event kinds must never break the stream.
		s.logger.Warn("ignoring unknown event type", "type", eventType)
	}
}
