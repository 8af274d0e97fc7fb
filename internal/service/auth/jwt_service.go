// Package auth issues and verifies the bearer tokens that identify callers.
// A token carries the user ID and role; nothing else about the user is
// trusted from it.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtask-api/internal/domain"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT carrying the user's ID and role.
	GenerateToken(ctx context.Context, userID uuid.UUID, role domain.Role) (string, error)

	// ValidateToken verifies tokenString and returns its claims. Every failure
	// is one of ErrInvalidToken, ErrExpiredToken or ErrTokenNotYetValid.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the verified content of a token.
type Claims struct {
	UserID    uuid.UUID   `json:"uid"`
	Role      domain.Role `json:"role"`
	Subject   string      `json:"sub,omitempty"`
	IssuedAt  time.Time   `json:"iat,omitempty"`
	ExpiresAt time.Time   `json:"exp,omitempty"`
	ID        string      `json:"jti,omitempty"`
}
