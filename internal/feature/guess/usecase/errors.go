// Package usecase implements the business logic for the guess feature.
package usecase

import "errors"

var (
	// ErrInvalidDirection is returned when the direction is not "up" or "down".
	ErrInvalidDirection = errors.New("invalid direction")
)
