// Package api defines the request and response types shared by the HTTP handlers.
package api

import "time"

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name" binding:"required,max=64"`
	Password    string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GuessRequest is the body of POST /guess.
type GuessRequest struct {
	Direction string `json:"direction" binding:"required"`
}

// GuessResponse confirms an accepted guess.
type GuessResponse struct {
	ID                string    `json:"id"`
	Direction         string    `json:"direction"`
	PriceAtSubmission float64   `json:"price_at_submission"`
	SubmittedAt       time.Time `json:"submitted_at"`
	ResolveAt         time.Time `json:"resolve_at"`
}

// ActiveGuess mirrors the pending guess stored on the user record.
type ActiveGuess struct {
	ID                string    `json:"id"`
	Direction         string    `json:"direction"`
	PriceAtSubmission float64   `json:"price_at_submission"`
	SubmittedAt       time.Time `json:"submitted_at"`
	ResolveAt         time.Time `json:"resolve_at"`
}

// ProfileResponse is the body of GET /me.
type ProfileResponse struct {
	Email       string       `json:"email"`
	DisplayName string       `json:"display_name"`
	Score       int          `json:"score"`
	ActiveGuess *ActiveGuess `json:"active_guess,omitempty"`
	LastLoginAt *time.Time   `json:"last_login_at,omitempty"`
}

// TokenResponse carries a freshly issued JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// MessageResponse is a generic success body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is a generic error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status         string `json:"status"`
	FeedConnected  bool   `json:"feed_connected"`
	StoreConnected bool   `json:"store_connected"`
	CacheConnected bool   `json:"cache_connected"`
}
