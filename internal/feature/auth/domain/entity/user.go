// Package entity defines the domain entities for the auth feature.
package entity

import "time"

// User represents a registered player.
// It holds authentication credentials plus the mutable game state the
// resolver updates: the running score and the serialized active guess.
type User struct {
	// ID is the unique identifier for the user.
	ID uint `gorm:"primaryKey"`

	// Email is the user's email address used for authentication.
	// It must be unique across all users.
	Email string `gorm:"uniqueIndex;size:255;not null"`

	// DisplayName is the public name shown alongside results.
	DisplayName string `gorm:"size:64;not null"`

	// Password is the hashed password for the user.
	// This should never store plaintext passwords.
	Password string `gorm:"size:255;not null"`

	// Score is the running prediction score, moved by ±1 per resolution.
	Score int `gorm:"not null;default:0"`

	// ActiveGuess holds the serialized pending guess, or NULL when the user
	// has none. At most one guess may be active; the claim is a conditional
	// write against this column.
	ActiveGuess *string `gorm:"type:text"`

	// LastLoginAt is stamped on every successful login.
	LastLoginAt *time.Time

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time
}
