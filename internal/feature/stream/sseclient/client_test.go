package sseclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guessentity "updown_backend/internal/feature/guess/domain/entity"
	marketentity "updown_backend/internal/feature/market/domain/entity"
)

// recorder collects callback invocations across goroutines.
type recorder struct {
	mu       sync.Mutex
	hellos   int
	prices   []marketentity.PriceSample
	results  []guessentity.GuessResult
	states   []State
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnConnection: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.hellos++
		},
		OnPrice: func(s marketentity.PriceSample) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.prices = append(r.prices, s)
		},
		OnGuessResult: func(g guessentity.GuessResult) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.results = append(r.results, g)
		},
		OnStateChange: func(st State) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, st)
		},
	}
}

func (r *recorder) snapshot() (int, []marketentity.PriceSample, []guessentity.GuessResult, []State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hellos, append([]marketentity.PriceSample(nil), r.prices...),
		append([]guessentity.GuessResult(nil), r.results...),
		append([]State(nil), r.states...)
}

func newTestSupervisor(cfg Config, h Handlers) *Supervisor {
	return New(cfg, h, &http.Client{}, &http.Client{Timeout: time.Second}, nil)
}

func TestSupervisor_DispatchesTypedEvents(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)

		fmt.Fprint(w, "event:connection\ndata:{\"user_id\":7}\n\n")
		fmt.Fprint(w, ": ping\n\n")
		fmt.Fprint(w, "event:price_update\ndata:{\"price\":104250.55}\n\n")
		fmt.Fprint(w, "event:guess_result\ndata:{\"guess_id\":\"g-1\",\"correct\":true,\"new_score\":4}\n\n")
		fmt.Fprint(w, "event:mystery\ndata:{}\n\n")
		fl.Flush()
	}))
	defer srv.Close()

	rec := &recorder{}
	sup := newTestSupervisor(Config{
		StreamURL:     srv.URL,
		Token:         "test-token",
		ReconnectBase: time.Millisecond,
		MaxAttempts:   1,
	}, rec.handlers())

	err := sup.Run(context.Background())
	assert.ErrorIs(t, err, ErrMaxAttempts)

	hellos, prices, results, states := rec.snapshot()
	assert.Equal(t, 1, hellos)
	require.Len(t, prices, 1)
	assert.Equal(t, 104250.55, prices[0].Price)
	require.Len(t, results, 1)
	assert.Equal(t, "g-1", results[0].GuessID)
	assert.True(t, results[0].Correct)
	assert.Equal(t, 4, results[0].NewScore)

	// The unknown "mystery" event was ignored without breaking anything.
	assert.Contains(t, states, StateConnected)
	assert.Equal(t, StateFailed, states[len(states)-1])
}

func TestSupervisor_ReconnectsAfterFailure(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	conns := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		if n != 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:connection\ndata:{}\n\n")
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	rec := &recorder{}
	sup := newTestSupervisor(Config{
		StreamURL:     srv.URL,
		Token:         "t",
		ReconnectBase: time.Millisecond,
		ReconnectMax:  2 * time.Millisecond,
		MaxAttempts:   3,
	}, rec.handlers())

	err := sup.Run(context.Background())
	assert.ErrorIs(t, err, ErrMaxAttempts)

	hellos, _, _, states := rec.snapshot()
	// The failed first attempt was retried and the second connected.
	assert.Equal(t, 1, hellos)
	assert.Contains(t, states, StateReconnecting)

	mu.Lock()
	assert.GreaterOrEqual(t, conns, 4)
	mu.Unlock()
}

func TestSupervisor_SnapshotFallbackWhenPricesStale(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:connection\ndata:{}\n\n")
		w.(http.Flusher).Flush()
		// Hold the stream open without sending price updates.
		<-r.Context().Done()
	})
	mux.HandleFunc("/price", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(marketentity.PriceSample{Price: 99999.5})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rec := &recorder{}
	sup := newTestSupervisor(Config{
		StreamURL:        srv.URL + "/stream",
		SnapshotURL:      srv.URL + "/price",
		Token:            "t",
		FreshnessTimeout: 5 * time.Millisecond,
		WatchdogInterval: 5 * time.Millisecond,
		ReconnectBase:    time.Millisecond,
		MaxAttempts:      1,
	}, rec.handlers())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, prices, _, _ := rec.snapshot()
		return len(prices) > 0
	}, 2*time.Second, 5*time.Millisecond, "snapshot fallback never fired")

	cancel()
	require.NoError(t, <-done)

	_, prices, _, _ := rec.snapshot()
	assert.Equal(t, 99999.5, prices[0].Price)
}

func TestSupervisor_HeartbeatSilenceForcesReconnect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:connection\ndata:{}\n\n")
		w.(http.Flusher).Flush()
		// Go silent: no heartbeats, no events.
		<-r.Context().Done()
	}))
	defer srv.Close()

	rec := &recorder{}
	sup := newTestSupervisor(Config{
		StreamURL:        srv.URL,
		Token:            "t",
		HeartbeatTimeout: 30 * time.Millisecond,
		// Freshness check would fire first without a snapshot URL; keep it
		// beyond the heartbeat cutoff so only the heartbeat watchdog acts.
		FreshnessTimeout: time.Second,
		WatchdogInterval: 5 * time.Millisecond,
		ReconnectBase:    time.Millisecond,
		MaxAttempts:      1,
	}, rec.handlers())

	start := time.Now()
	err := sup.Run(context.Background())
	assert.ErrorIs(t, err, ErrMaxAttempts)
	assert.Less(t, time.Since(start), 2*time.Second)

	hellos, _, _, _ := rec.snapshot()
	assert.Equal(t, 1, hellos)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}
