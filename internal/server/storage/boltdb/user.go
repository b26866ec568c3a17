package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

// userRecord хранимое представление пользователя
// (models.User не сериализует хеш пароля)
type userRecord struct {
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
}

func toUserRecord(u *models.User) *userRecord {
	return &userRecord{
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	}
}

func (r *userRecord) model() *models.User {
	return &models.User{
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin,
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
	}
}

// CreateUser creates a new user
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		byEmail := tx.Bucket(bucketUsersByEmail)

		if byEmail.Get([]byte(user.Email)) != nil || users.Get([]byte(user.ID)) != nil {
			return storage.ErrUserAlreadyExists
		}

		if err := putJSON(users, user.ID, toUserRecord(user)); err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		if err := byEmail.Put([]byte(user.Email), []byte(user.ID)); err != nil {
			return fmt.Errorf("failed to index user email: %w", err)
		}

		return nil
	})
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user *models.User

	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUsersByEmail).Get([]byte(email))
		if id == nil {
			return storage.ErrUserNotFound
		}

		var err error
		user, err = loadUser(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user *models.User

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = loadUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUser updates email and password hash
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		current, err := loadUser(tx, user.ID)
		if err != nil {
			return err
		}

		byEmail := tx.Bucket(bucketUsersByEmail)
		if current.Email != user.Email {
			if byEmail.Get([]byte(user.Email)) != nil {
				return storage.ErrUserAlreadyExists
			}
			if err := byEmail.Delete([]byte(current.Email)); err != nil {
				return fmt.Errorf("failed to drop old email index: %w", err)
			}
			if err := byEmail.Put([]byte(user.Email), []byte(user.ID)); err != nil {
				return fmt.Errorf("failed to index user email: %w", err)
			}
		}

		current.Email = user.Email
		current.PasswordHash = user.PasswordHash
		current.UpdatedAt = user.UpdatedAt

		if err := putJSON(tx.Bucket(bucketUsers), user.ID, toUserRecord(current)); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
}

// DeleteUser deletes user and everything the user owns
func (s *Storage) DeleteUser(ctx context.Context, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}

		if err := tx.Bucket(bucketUsers).Delete([]byte(userID)); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		if err := tx.Bucket(bucketUsersByEmail).Delete([]byte(user.Email)); err != nil {
			return fmt.Errorf("failed to drop email index: %w", err)
		}

		// Каскадное удаление как ON DELETE CASCADE в SQL бэкендах
		if _, err := deleteTokensWhere(tx, func(t *models.RefreshToken) bool { return t.UserID == userID }); err != nil {
			return err
		}
		return deleteIssuesOf(tx, userID)
	})
}

// UpdateLastLogin updates the last login timestamp
func (s *Storage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}

		user.LastLogin = &lastLogin
		if err := putJSON(tx.Bucket(bucketUsers), userID, toUserRecord(user)); err != nil {
			return fmt.Errorf("failed to update last login: %w", err)
		}
		return nil
	})
}

func loadUser(tx *bbolt.Tx, userID string) (*models.User, error) {
	var rec userRecord
	found, err := getJSON(tx.Bucket(bucketUsers), userID, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrUserNotFound
	}
	return rec.model(), nil
}
