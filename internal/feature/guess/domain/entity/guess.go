// Package entity defines the domain entities for the guess feature.
package entity

import "time"

// Direction is the side of a price guess.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Valid reports whether the direction is one of the two recognized values.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// PendingGuess is a directional bet waiting for its resolution deadline.
// It lives in the deadline-ordered queue and, serialized, on the owner's
// user record while active.
type PendingGuess struct {
	ID                string    `json:"id"`
	UserID            uint      `json:"user_id"`
	Direction         Direction `json:"direction"`
	PriceAtSubmission float64   `json:"price_at_submission"`
	SubmittedAt       time.Time `json:"submitted_at"`
	ResolveAt         time.Time `json:"resolve_at"`
}

// GuessResult is the settled outcome of one guess. It is constructed once,
// delivered once over the stream and never persisted; the durable effect is
// the score change on the user record.
type GuessResult struct {
	GuessID           string    `json:"guess_id"`
	UserID            uint      `json:"user_id"`
	Direction         Direction `json:"direction"`
	PriceAtSubmission float64   `json:"price_at_submission"`
	PriceAtResolution float64   `json:"price_at_resolution"`
	Correct           bool      `json:"correct"`
	ScoreDelta        int       `json:"score_delta"`
	NewScore          int       `json:"new_score"`
	ResolvedAt        time.Time `json:"resolved_at"`
}
