package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	authentity "updown_backend/internal/feature/auth/domain/entity"
	"updown_backend/internal/feature/guess/domain/entity"
	streamusecase "updown_backend/internal/feature/stream/usecase"
)

// Drainer is the resolution side of the pending-guess queue.
type Drainer interface {
	DrainDue(ctx context.Context, now time.Time) ([]entity.PendingGuess, error)
}

// UserSettlement is the slice of the user store used at resolution time.
type UserSettlement interface {
	SettleGuess(ctx context.Context, userID uint, delta int) (*authentity.User, error)
}

// Delivery is the targeted side of the delivery layer.
type Delivery interface {
	SendToOwner(userID uint, eventType string, payload any) bool
}

// ResolverConfig holds the resolver loop settings.
type ResolverConfig struct {
	Interval     time.Duration // Tick period (default 1s)
	StoreTimeout time.Duration // Bound on each user-store call (default 5s)
}

// Resolver drains due guesses on a fixed interval, settles each one against
// the current price and pushes the result to its owner's connection.
type Resolver struct {
	cfg      ResolverConfig
	queue    Drainer
	prices   PriceSource
	users    UserSettlement
	delivery Delivery
	logger   *slog.Logger
}

// NewResolver creates a new Resolver instance.
func NewResolver(cfg ResolverConfig, queue Drainer, prices PriceSource, users UserSettlement, delivery Delivery, logger *slog.Logger) *Resolver {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cfg:      cfg,
		queue:    queue,
		prices:   prices,
		users:    users,
		delivery: delivery,
		logger:   logger,
	}
}

// Run ticks until ctx is cancelled. A failed tick is logged and the next
// tick proceeds; nothing a single guess does can stop the loop.
func (r *Resolver) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.ResolveDue(ctx, time.Now().UTC())
		}
	}
}

// ResolveDue drains and settles everything due at now. Per-entry failures
// are isolated: the entry is dropped with a log line and the rest of the
// batch continues.
func (r *Resolver) ResolveDue(ctx context.Context, now time.Time) {
	due, err := r.queue.DrainDue(ctx, now)
	if err != nil {
		r.logger.Error("failed to drain due guesses", "error", err)
		return
	}

	for _, g := range due {
		if err := r.resolveOne(ctx, g, now); err != nil {
			// Accepted data-loss mode: the deadline has passed, so the
			// entry is dropped rather than retried. The owner's
			// active_guess stays as it was.
			r.logger.Error("dropping unresolvable guess",
				"guess_id", g.ID, "user_id", g.UserID, "error", err)
		}
	}
}

// resolveOne settles a single guess.
func (r *Resolver) resolveOne(ctx context.Context, g entity.PendingGuess, now time.Time) error {
	sample, err := r.prices.Get(ctx)
	if err != nil {
		return fmt.Errorf("no price at resolution time: %w", err)
	}

	correct := sample.Price > g.PriceAtSubmission
	if g.Direction == entity.DirectionDown {
		correct = sample.Price < g.PriceAtSubmission
	}
	delta := -1
	if correct {
		delta = 1
	}

	storeCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()
	user, err := r.users.SettleGuess(storeCtx, g.UserID, delta)
	if err != nil {
		return fmt.Errorf("failed to settle guess: %w", err)
	}

	result := entity.GuessResult{
		GuessID:           g.ID,
		UserID:            g.UserID,
		Direction:         g.Direction,
		PriceAtSubmission: g.PriceAtSubmission,
		PriceAtResolution: sample.Price,
		Correct:           correct,
		ScoreDelta:        delta,
		NewScore:          user.Score,
		ResolvedAt:        now,
	}

	delivered := r.delivery.SendToOwner(g.UserID, streamusecase.EventGuessResult, result)
	r.logger.Info("guess resolved",
		"guess_id", g.ID, "user_id", g.UserID, "correct", correct,
		"delta", delta, "new_score", user.Score, "delivered", delivered)
	return nil
}
