package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

// SaveRefreshToken stores a new refresh token record
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens
			(id, token_digest, user_id, user_agent, origin_addr, created_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		token.ID, token.TokenDigest, token.UserID, token.UserAgent, token.OriginAddr,
		token.CreatedAt, token.ExpiresAt, token.RevokedAt)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	return nil
}

// GetRefreshTokenByDigest retrieves refresh token by digest
func (s *Storage) GetRefreshTokenByDigest(ctx context.Context, digest string) (*models.RefreshToken, error) {
	query := `
		SELECT id, token_digest, user_id, user_agent, origin_addr, created_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token_digest = $1
	`

	token, err := scanToken(s.db.QueryRowContext(ctx, query, digest))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}

// GetUserTokens retrieves all refresh tokens for a user, newest first
func (s *Storage) GetUserTokens(ctx context.Context, userID string) ([]*models.RefreshToken, error) {
	query := `
		SELECT id, token_digest, user_id, user_agent, origin_addr, created_at, expires_at, revoked_at
		FROM refresh_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user tokens: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	tokens := make([]*models.RefreshToken, 0)
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tokens, nil
}

// RevokeRefreshToken marks token as revoked; only the first revocation succeeds
func (s *Storage) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	// Одна запись: revoked_at меняется только если был NULL,
	// а наличие строки проверяется в том же запросе
	query := `
		WITH target AS (SELECT id FROM refresh_tokens WHERE id = $2),
		     updated AS (
		         UPDATE refresh_tokens SET revoked_at = $1
		         WHERE id = $2 AND revoked_at IS NULL
		         RETURNING id
		     )
		SELECT (SELECT count(*) FROM target), (SELECT count(*) FROM updated)
	`

	var found, updated int
	if err := s.db.QueryRowContext(ctx, query, revokedAt, id).Scan(&found, &updated); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	if found == 0 {
		return storage.ErrTokenNotFound
	}
	if updated == 0 {
		return storage.ErrTokenAlreadyRevoked
	}

	return nil
}

// RevokeUserTokens revokes all active refresh tokens for a user
func (s *Storage) RevokeUserTokens(ctx context.Context, userID string, revokedAt time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`,
		revokedAt, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// DeleteExpiredTokens removes all tokens with expires_at <= now
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

func scanToken(row rowScanner) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}
	var revokedAt sql.NullTime

	if err := row.Scan(
		&token.ID,
		&token.TokenDigest,
		&token.UserID,
		&token.UserAgent,
		&token.OriginAddr,
		&token.CreatedAt,
		&token.ExpiresAt,
		&revokedAt,
	); err != nil {
		return nil, err
	}

	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}

	return token, nil
}
