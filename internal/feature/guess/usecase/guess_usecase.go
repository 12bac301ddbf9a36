package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"updown_backend/internal/feature/guess/domain/entity"
	marketentity "updown_backend/internal/feature/market/domain/entity"
)

// DefaultHorizon is how far ahead of submission a guess resolves.
const DefaultHorizon = 60 * time.Second

// UserClaims is the slice of the user store used at submission time.
// ClaimActiveGuess must be conditional: it fails with the store's
// guess-active error when the slot is already occupied, which makes
// check-and-insert atomic.
type UserClaims interface {
	ClaimActiveGuess(ctx context.Context, userID uint, guessJSON string) error
	ReleaseActiveGuess(ctx context.Context, userID uint, guessJSON string) error
}

// Enqueuer is the submission side of the pending-guess queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, g entity.PendingGuess) error
}

// PriceSource yields the latest cached price sample.
type PriceSource interface {
	Get(ctx context.Context) (marketentity.PriceSample, error)
}

// guessUsecase implements guess submission.
type guessUsecase struct {
	users   UserClaims
	queue   Enqueuer
	prices  PriceSource
	horizon time.Duration
	logger  *slog.Logger
}

// NewGuessUsecase creates a new guessUsecase instance. A non-positive
// horizon falls back to DefaultHorizon.
func NewGuessUsecase(users UserClaims, queue Enqueuer, prices PriceSource, horizon time.Duration, logger *slog.Logger) *guessUsecase {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &guessUsecase{
		users:   users,
		queue:   queue,
		prices:  prices,
		horizon: horizon,
		logger:  logger,
	}
}

// Submit validates and enqueues a new guess for the user.
//
// The active-guess slot on the user record is claimed before the queue
// insert; the claim is a conditional write, so a second concurrent Submit
// for the same user fails instead of producing two pending guesses. When
// the enqueue itself fails the claim is rolled back best effort.
func (u *guessUsecase) Submit(ctx context.Context, userID uint, direction string) (*entity.PendingGuess, error) {
	dir := entity.Direction(direction)
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	sample, err := u.prices.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("no current price to bet against: %w", err)
	}

	now := time.Now().UTC()
	g := entity.PendingGuess{
		ID:                uuid.NewString(),
		UserID:            userID,
		Direction:         dir,
		PriceAtSubmission: sample.Price,
		SubmittedAt:       now,
		ResolveAt:         now.Add(u.horizon),
	}

	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal guess: %w", err)
	}

	if err := u.users.ClaimActiveGuess(ctx, userID, string(raw)); err != nil {
		return nil, err
	}

	if err := u.queue.Enqueue(ctx, g); err != nil {
		if relErr := u.users.ReleaseActiveGuess(ctx, userID, string(raw)); relErr != nil {
			u.logger.Error("failed to release claimed guess after enqueue failure",
				"user_id", userID, "guess_id", g.ID, "error", relErr)
		}
		return nil, err
	}

	u.logger.Info("guess submitted",
		"user_id", userID, "guess_id", g.ID, "direction", dir,
		"price", g.PriceAtSubmission, "resolve_at", g.ResolveAt)
	return &g, nil
}
