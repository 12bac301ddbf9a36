// Package usecase implements the live delivery layer: a registry of client
// connections with broadcast and targeted delivery.
package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types carried on the stream.
const (
	// EventConnection is sent once when a stream opens.
	EventConnection = "connection"
	// EventTest is a diagnostic event sent shortly after open.
	EventTest = "test"
	// EventPriceUpdate carries a PriceSample payload, broadcast to everyone.
	EventPriceUpdate = "price_update"
	// EventGuessResult carries a GuessResult payload, delivered to its owner.
	EventGuessResult = "guess_result"
	// EventHeartbeat is rendered as an SSE comment line, not a real event.
	EventHeartbeat = "heartbeat"
)

// Event is one frame queued for delivery to a subscriber.
type Event struct {
	Type    string
	Payload any
}

// subscriberBuffer is the per-connection event queue length. A subscriber
// that cannot drain this many events is treated as stale and evicted.
const subscriberBuffer = 64

// Subscriber is one registered client connection.
type Subscriber struct {
	userID uint
	id     string

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// UserID returns the owning identity.
func (s *Subscriber) UserID() uint { return s.userID }

// ID returns the unique connection ID.
func (s *Subscriber) ID() string { return s.id }

// Events returns the delivery queue the transport drains.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Done is closed when the subscriber has been evicted.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub keeps at most one live subscriber per identity and fans events out to
// them. All registry mutations happen under the mutex with narrow critical
// sections; event writes are non-blocking so a stuck connection can never
// stall the feed.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint]*Subscriber
	logger *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[uint]*Subscriber),
		logger: logger,
	}
}

// Register adds a connection for the identity. If one already exists it is
// closed and evicted first: last writer wins.
func (h *Hub) Register(userID uint) *Subscriber {
	sub := &Subscriber{
		userID: userID,
		id:     uuid.NewString(),
		events: make(chan Event, subscriberBuffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	old := h.subs[userID]
	h.subs[userID] = sub
	h.mu.Unlock()

	if old != nil {
		old.close()
		h.logger.Info("replaced stale connection", "user_id", userID, "old_conn", old.id)
	}
	h.logger.Debug("connection registered", "user_id", userID, "conn", sub.id)
	return sub
}

// Unregister removes the connection if it is still the registered one for
// its identity, then closes it. Safe to call after an eviction.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	if h.subs[sub.userID] == sub {
		delete(h.subs, sub.userID)
	}
	h.mu.Unlock()

	sub.close()
	h.logger.Debug("connection unregistered", "user_id", sub.userID, "conn", sub.id)
}

// Publish broadcasts an event to every registered connection. Subscribers
// whose queues are full are collected during the sweep and evicted after it,
// so one dead connection never blocks delivery to the rest.
func (h *Hub) Publish(eventType string, payload any) {
	ev := Event{Type: eventType, Payload: payload}

	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	var stale []*Subscriber
	for _, sub := range targets {
		select {
		case sub.events <- ev:
		default:
			stale = append(stale, sub)
		}
	}

	for _, sub := range stale {
		h.logger.Warn("evicting unresponsive connection", "user_id", sub.userID, "conn", sub.id)
		h.Unregister(sub)
	}
}

// SendToOwner delivers an event to the single connection for the identity.
// It reports whether the event was handed to a live connection; a missing or
// unresponsive connection is not an error, the durable state already holds
// the result.
func (h *Hub) SendToOwner(userID uint, eventType string, payload any) bool {
	h.mu.RLock()
	sub, ok := h.subs[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case sub.events <- Event{Type: eventType, Payload: payload}:
		return true
	default:
		h.logger.Warn("evicting unresponsive connection", "user_id", sub.userID, "conn", sub.id)
		h.Unregister(sub)
		return false
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// RunHeartbeat pushes a heartbeat frame to every connection on the given
// interval until ctx is cancelled. Heartbeats keep intermediary proxies from
// timing out idle streams.
func (h *Hub) RunHeartbeat(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Publish(EventHeartbeat, nil)
		}
	}
}
