// Package session implements the refresh token store and the session
// manager: registration, login, token refresh, logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/iudanet/vulntracker/internal/crypto"
	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/apperror"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

// DefaultRefreshTTL время жизни refresh token по умолчанию
const DefaultRefreshTTL = 30 * 24 * time.Hour

// ClientMeta описывает клиента, которому выдается токен
type ClientMeta struct {
	UserAgent string
	Addr      string
}

// RefreshStore issues, looks up and revokes refresh tokens.
// Raw secrets are returned to the caller once and never persisted.
type RefreshStore struct {
	tokens   storage.TokenStorage
	digester *crypto.Digester
	now      func() time.Time
	ttl      time.Duration
}

// NewRefreshStore creates a RefreshStore
func NewRefreshStore(tokens storage.TokenStorage, digester *crypto.Digester, ttl time.Duration) *RefreshStore {
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	return &RefreshStore{
		tokens:   tokens,
		digester: digester,
		now:      time.Now,
		ttl:      ttl,
	}
}

// WithClock подменяет источник времени (для тестов)
func (s *RefreshStore) WithClock(now func() time.Time) *RefreshStore {
	s.now = now
	return s
}

// TTL returns refresh token lifetime
func (s *RefreshStore) TTL() time.Duration {
	return s.ttl
}

// Digest returns the lookup digest of a raw secret
func (s *RefreshStore) Digest(raw string) string {
	return s.digester.Digest(raw)
}

// Issue генерирует новый секрет и сохраняет запись с его digest
func (s *RefreshStore) Issue(ctx context.Context, owner string, client ClientMeta) (string, *models.RefreshToken, error) {
	raw, err := crypto.GenerateRefreshSecret()
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	id, err := ulid.New(ulid.Timestamp(now), ulid.DefaultEntropy())
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token id: %w", err)
	}

	token := &models.RefreshToken{
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		ID:          id.String(),
		TokenDigest: s.digester.Digest(raw),
		UserID:      owner,
		UserAgent:   client.UserAgent,
		OriginAddr:  client.Addr,
	}

	if err := s.tokens.SaveRefreshToken(ctx, token); err != nil {
		return "", nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return raw, token, nil
}

// FindByDigest возвращает запись по digest или storage.ErrTokenNotFound
func (s *RefreshStore) FindByDigest(ctx context.Context, digest string) (*models.RefreshToken, error) {
	return s.tokens.GetRefreshTokenByDigest(ctx, digest)
}

// Find возвращает запись по сырому секрету
func (s *RefreshStore) Find(ctx context.Context, raw string) (*models.RefreshToken, error) {
	if raw == "" {
		return nil, storage.ErrTokenNotFound
	}
	return s.FindByDigest(ctx, s.digester.Digest(raw))
}

// Revoke помечает запись отозванной. Успешен ровно один вызов на запись,
// остальные получают apperror.ErrRevokedToken; время первого отзыва сохраняется.
func (s *RefreshStore) Revoke(ctx context.Context, id string) error {
	err := s.tokens.RevokeRefreshToken(ctx, id, s.now())
	if errors.Is(err, storage.ErrTokenAlreadyRevoked) {
		return fmt.Errorf("%w: %w", apperror.ErrRevokedToken, err)
	}
	return err
}

// RevokeAllForOwner отзывает все активные токены пользователя
func (s *RefreshStore) RevokeAllForOwner(ctx context.Context, owner string) (int, error) {
	return s.tokens.RevokeUserTokens(ctx, owner, s.now())
}

// ListForOwner возвращает все токены пользователя, новые первыми
func (s *RefreshStore) ListForOwner(ctx context.Context, owner string) ([]*models.RefreshToken, error) {
	return s.tokens.GetUserTokens(ctx, owner)
}

// PurgeExpired удаляет истекшие записи
func (s *RefreshStore) PurgeExpired(ctx context.Context) (int, error) {
	return s.tokens.DeleteExpiredTokens(ctx, s.now())
}

// Validate находит запись по сырому секрету и проверяет ее пригодность.
// Отзыв проверяется раньше истечения.
func (s *RefreshStore) Validate(ctx context.Context, raw string) (*models.RefreshToken, error) {
	token, err := s.Find(ctx, raw)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
		}
		return nil, err
	}

	if token.IsRevoked() {
		return nil, apperror.ErrRevokedToken
	}

	if token.IsExpired(s.now()) {
		return nil, apperror.ErrExpiredToken
	}

	return token, nil
}
