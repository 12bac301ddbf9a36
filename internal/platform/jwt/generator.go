package jwtmw

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenLifetime bounds tokens when no lifetime is configured.
const defaultTokenLifetime = 24 * time.Hour

// Generator issues the bearer tokens accepted by AuthRequired.
type Generator interface {
	// GenerateToken creates a signed token carrying the user's identity.
	GenerateToken(userID uint, email string) (string, error)
}

// hs256Generator signs tokens with a shared HMAC secret, the only scheme
// AuthRequired verifies.
type hs256Generator struct {
	secret   []byte
	lifetime time.Duration
}

var _ Generator = (*hs256Generator)(nil)

// NewGenerator creates a Generator from the signing secret and token
// lifetime. A non-positive lifetime falls back to 24 hours.
func NewGenerator(secret string, lifetime time.Duration) Generator {
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	return &hs256Generator{
		secret:   []byte(secret),
		lifetime: lifetime,
	}
}

// GenerateToken signs a token whose numeric sub claim is the user ID that
// AuthRequired later places into the request context.
func (g *hs256Generator) GenerateToken(userID uint, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(g.lifetime).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
