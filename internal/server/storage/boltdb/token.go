package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

// SaveRefreshToken stores a new refresh token record
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		tokens := tx.Bucket(bucketTokens)
		digests := tx.Bucket(bucketTokenDigests)

		if digests.Get([]byte(token.TokenDigest)) != nil || tokens.Get([]byte(token.ID)) != nil {
			return fmt.Errorf("failed to save refresh token: duplicate id or digest")
		}
		if tx.Bucket(bucketUsers).Get([]byte(token.UserID)) == nil {
			return fmt.Errorf("failed to save refresh token: %w", storage.ErrUserNotFound)
		}

		if err := putJSON(tokens, token.ID, token); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
		if err := digests.Put([]byte(token.TokenDigest), []byte(token.ID)); err != nil {
			return fmt.Errorf("failed to index refresh token: %w", err)
		}
		if err := tx.Bucket(bucketTokenOwners).Put(ownerKey(token.UserID, token.ID), nil); err != nil {
			return fmt.Errorf("failed to index refresh token owner: %w", err)
		}
		return nil
	})
}

// GetRefreshTokenByDigest retrieves refresh token by digest
func (s *Storage) GetRefreshTokenByDigest(ctx context.Context, digest string) (*models.RefreshToken, error) {
	var token *models.RefreshToken

	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketTokenDigests).Get([]byte(digest))
		if id == nil {
			return storage.ErrTokenNotFound
		}

		var err error
		token, err = loadToken(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// GetUserTokens retrieves all refresh tokens for a user, newest first
func (s *Storage) GetUserTokens(ctx context.Context, userID string) ([]*models.RefreshToken, error) {
	tokens := make([]*models.RefreshToken, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		tokens, err = ownerTokens(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.After(tokens[j].CreatedAt)
	})

	return tokens, nil
}

// RevokeRefreshToken marks token as revoked; only the first revocation succeeds
func (s *Storage) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		token, err := loadToken(tx, id)
		if err != nil {
			return err
		}
		// Проверка и запись в одной транзакции: отзывает ровно один вызов
		if token.RevokedAt != nil {
			return storage.ErrTokenAlreadyRevoked
		}

		token.RevokedAt = &revokedAt
		if err := putJSON(tx.Bucket(bucketTokens), id, token); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		return nil
	})
}

// RevokeUserTokens revokes all active refresh tokens for a user
func (s *Storage) RevokeUserTokens(ctx context.Context, userID string, revokedAt time.Time) (int, error) {
	count := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketTokens)

		owned, err := ownerTokens(tx, userID)
		if err != nil {
			return err
		}

		for _, token := range owned {
			if token.RevokedAt != nil {
				continue
			}
			token.RevokedAt = &revokedAt
			if err := putJSON(bucket, token.ID, token); err != nil {
				return fmt.Errorf("failed to revoke user tokens: %w", err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteExpiredTokens removes all tokens with expires_at <= now
func (s *Storage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	var count int

	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		count, err = deleteTokensWhere(tx, func(t *models.RefreshToken) bool { return t.IsExpired(now) })
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	return count, nil
}

func loadToken(tx *bbolt.Tx, id string) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}
	found, err := getJSON(tx.Bucket(bucketTokens), id, token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrTokenNotFound
	}
	return token, nil
}

func deleteTokensWhere(tx *bbolt.Tx, match func(*models.RefreshToken) bool) (int, error) {
	tokens := tx.Bucket(bucketTokens)
	digests := tx.Bucket(bucketTokenDigests)
	owners := tx.Bucket(bucketTokenOwners)

	var victims []*models.RefreshToken
	err := tokens.ForEach(func(_, v []byte) error {
		token := &models.RefreshToken{}
		if err := json.Unmarshal(v, token); err != nil {
			return fmt.Errorf("failed to unmarshal refresh token: %w", err)
		}
		if match(token) {
			victims = append(victims, token)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, token := range victims {
		if err := tokens.Delete([]byte(token.ID)); err != nil {
			return 0, fmt.Errorf("failed to delete refresh token: %w", err)
		}
		if err := digests.Delete([]byte(token.TokenDigest)); err != nil {
			return 0, fmt.Errorf("failed to drop digest index: %w", err)
		}
		if err := owners.Delete(ownerKey(token.UserID, token.ID)); err != nil {
			return 0, fmt.Errorf("failed to drop owner index: %w", err)
		}
	}

	return len(victims), nil
}

// ownerKey ключ индекса владельца: user_id, 0x00, token_id.
// Разделитель не встречается в uuid и ulid, поэтому префикс однозначен.
func ownerKey(userID, tokenID string) []byte {
	return []byte(userID + "\x00" + tokenID)
}

// ownerTokens читает токены пользователя по индексу владельца
func ownerTokens(tx *bbolt.Tx, userID string) ([]*models.RefreshToken, error) {
	prefix := []byte(userID + "\x00")
	tokens := make([]*models.RefreshToken, 0)

	c := tx.Bucket(bucketTokenOwners).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		token, err := loadToken(tx, string(k[len(prefix):]))
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}
