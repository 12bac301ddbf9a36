// Command watch follows a server's event stream from the terminal. It logs
// price updates and guess results for one authenticated user and survives
// server restarts via the supervisor's reconnect loop.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"updown_backend/internal/app/di"
	guessentity "updown_backend/internal/feature/guess/domain/entity"
	marketentity "updown_backend/internal/feature/market/domain/entity"
	"updown_backend/internal/feature/stream/sseclient"
)

func main() {
	var (
		base     = flag.String("base", "http://localhost:8080", "server base URL")
		token    = flag.String("token", os.Getenv("UPDOWN_TOKEN"), "bearer token (defaults to UPDOWN_TOKEN)")
		fresh    = flag.Duration("freshness", 15*time.Second, "max price age before snapshot fallback")
		attempts = flag.Int("attempts", 10, "reconnect attempts before giving up")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *token == "" {
		logger.Error("no token: pass -token or set UPDOWN_TOKEN")
		os.Exit(2)
	}

	cfg := sseclient.Config{
		StreamURL:        *base + "/stream",
		SnapshotURL:      *base + "/price",
		Token:            *token,
		FreshnessTimeout: *fresh,
		MaxAttempts:      *attempts,
	}
	handlers := sseclient.Handlers{
		OnConnection: func() {
			logger.Info("connected to stream")
		},
		OnPrice: func(s marketentity.PriceSample) {
			logger.Info("price", "price", s.Price, "sampled_at", s.SampledAt)
		},
		OnGuessResult: func(r guessentity.GuessResult) {
			verdict := "wrong"
			if r.Correct {
				verdict = "correct"
			}
			logger.Info("guess resolved", "verdict", verdict,
				"direction", r.Direction, "submitted", r.PriceAtSubmission,
				"resolved", r.PriceAtResolution, "score", r.NewScore)
		},
		OnStateChange: func(st sseclient.State) {
			logger.Debug("stream state", "state", st.String())
		},
	}

	sup := di.NewStreamSupervisor(cfg, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil {
		if errors.Is(err, sseclient.ErrMaxAttempts) {
			logger.Error("gave up reconnecting")
		} else {
			logger.Error("stream failed", "error", err)
		}
		os.Exit(1)
	}
}
