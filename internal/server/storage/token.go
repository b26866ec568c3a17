package storage

import (
	"context"
	"time"

	"github.com/iudanet/vulntracker/internal/models"
)

// TokenStorage defines interface for refresh token persistence.
// Only token digests are stored, never raw secrets.
type TokenStorage interface {
	// SaveRefreshToken stores a new refresh token record
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshTokenByDigest retrieves refresh token by its digest
	// Returns ErrTokenNotFound if token doesn't exist
	GetRefreshTokenByDigest(ctx context.Context, digest string) (*models.RefreshToken, error)

	// GetUserTokens retrieves all refresh tokens for a user, newest first
	// Returns empty slice if no tokens found
	GetUserTokens(ctx context.Context, userID string) ([]*models.RefreshToken, error)

	// RevokeRefreshToken sets revoked_at if the token is not revoked yet.
	// Exactly one concurrent caller succeeds; the others get
	// ErrTokenAlreadyRevoked and the first timestamp is kept.
	// Returns ErrTokenNotFound if token doesn't exist
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error

	// RevokeUserTokens revokes all active tokens for a user
	// Returns number of revoked tokens
	RevokeUserTokens(ctx context.Context, userID string, revokedAt time.Time) (int, error)

	// DeleteExpiredTokens removes all tokens expired before now
	// Returns number of deleted tokens
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}
