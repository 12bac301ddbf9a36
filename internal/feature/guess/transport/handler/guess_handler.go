// Package handler provides the HTTP handlers for the guess feature.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"updown_backend/internal/api"
	authusecase "updown_backend/internal/feature/auth/usecase"
	"updown_backend/internal/feature/guess/domain/entity"
	"updown_backend/internal/feature/guess/usecase"
	jwtmw "updown_backend/internal/platform/jwt"
	"updown_backend/internal/platform/pricecache"
)

// GuessUsecase defines the submission operation consumed by this handler.
type GuessUsecase interface {
	Submit(ctx context.Context, userID uint, direction string) (*entity.PendingGuess, error)
}

// GuessHandler handles HTTP requests for guess submission.
type GuessHandler struct {
	guesses GuessUsecase
}

// NewGuessHandler creates a new GuessHandler instance.
func NewGuessHandler(guesses GuessUsecase) *GuessHandler {
	return &GuessHandler{guesses: guesses}
}

// Submit handles POST /guess.
// - 400 on invalid body or direction
// - 409 when a guess is already active
// - 503 when no current price exists to bet against
// - 201 with the accepted guess on success
func (h *GuessHandler) Submit(c *gin.Context) {
	userID := c.GetUint(jwtmw.ContextUserID)

	var req api.GuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("guess validation failed", "error", err, "user_id", userID)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	g, err := h.guesses.Submit(c.Request.Context(), userID, req.Direction)
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrInvalidDirection):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "direction must be \"up\" or \"down\""})
		return
	case errors.Is(err, authusecase.ErrGuessActive):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "prediction already active"})
		return
	case errors.Is(err, pricecache.ErrNoPrice):
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "price feed unavailable"})
		return
	default:
		slog.Error("guess submission failed", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal error"})
		return
	}

	c.JSON(http.StatusCreated, api.GuessResponse{
		ID:                g.ID,
		Direction:         string(g.Direction),
		PriceAtSubmission: g.PriceAtSubmission,
		SubmittedAt:       g.SubmittedAt,
		ResolveAt:         g.ResolveAt,
	})
}
