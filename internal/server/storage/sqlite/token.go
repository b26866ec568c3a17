package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

const tokenColumns = `id, token_digest, user_id, user_agent, origin_addr, created_at, expires_at, revoked_at`

// SaveRefreshToken stores a new refresh token record
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (` + tokenColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		token.ID,
		token.TokenDigest,
		token.UserID,
		token.UserAgent,
		token.OriginAddr,
		token.CreatedAt.UTC(),
		token.ExpiresAt.UTC(),
		utcPtr(token.RevokedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	return nil
}

// GetRefreshTokenByDigest retrieves refresh token by digest
func (s *Storage) GetRefreshTokenByDigest(ctx context.Context, digest string) (*models.RefreshToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token_digest = ?`

	token, err := scanToken(s.db.QueryRowContext(ctx, query, digest))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}

// GetUserTokens retrieves all refresh tokens for a user
func (s *Storage) GetUserTokens(ctx context.Context, userID string) ([]*models.RefreshToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM refresh_tokens
		WHERE user_id = ?
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

// RevokeRefreshToken marks token as revoked. Only the call that flips
// revoked_at succeeds; later calls get storage.ErrTokenAlreadyRevoked.
func (s *Storage) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	query := `UPDATE refresh_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`

	result, err := s.db.ExecContext(ctx, query, revokedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows > 0 {
		return nil
	}

	// Ни одной строки: либо уже отозван, либо не существует
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM refresh_tokens WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrTokenNotFound
		}
		return fmt.Errorf("failed to check refresh token: %w", err)
	}

	return storage.ErrTokenAlreadyRevoked
}

// RevokeUserTokens revokes all active refresh tokens for a user
func (s *Storage) RevokeUserTokens(ctx context.Context, userID string, revokedAt time.Time) (int, error) {
	query := `UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`

	result, err := s.db.ExecContext(ctx, query, revokedAt.UTC(), userID)
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
	query := `DELETE FROM refresh_tokens WHERE expires_at <= ?`

	result, err := s.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...any) error
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
