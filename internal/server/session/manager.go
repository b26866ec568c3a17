package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/vulntracker/internal/crypto"
	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/apperror"
	"github.com/iudanet/vulntracker/internal/server/jwt"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

// EventRecorder получает исходы операций аутентификации (метрики)
type EventRecorder interface {
	AuthEvent(operation, result string)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, string) {}

// Config содержит настройки менеджера сессий
type Config struct {
	// BcryptCost work factor для новых хешей паролей
	BcryptCost int
	// RotateRefreshTokens отзывает предъявленный refresh token и выдает новый
	RotateRefreshTokens bool
}

// Tokens результат входа или обновления
type Tokens struct {
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UserID           string
	AccessToken      string
	// RefreshToken пуст, если при обновлении ротация выключена
	RefreshToken string
}

// ProfileUpdate изменяемые поля профиля; nil означает "не менять"
type ProfileUpdate struct {
	Email    *string
	Password *string
}

// Manager composes the credential verifier, the access token codec and
// the refresh token store into the session lifecycle.
type Manager struct {
	users    storage.UserStorage
	refresh  *RefreshStore
	codec    *jwt.Codec
	logger   *slog.Logger
	recorder EventRecorder
	now      func() time.Time
	cfg      Config
}

// NewManager creates a new session Manager
func NewManager(
	users storage.UserStorage,
	refresh *RefreshStore,
	codec *jwt.Codec,
	logger *slog.Logger,
	cfg Config,
) *Manager {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = crypto.DefaultPasswordCost
	}
	return &Manager{
		users:    users,
		refresh:  refresh,
		codec:    codec,
		logger:   logger,
		recorder: nopRecorder{},
		now:      time.Now,
		cfg:      cfg,
	}
}

// WithRecorder подключает сбор метрик
func (m *Manager) WithRecorder(r EventRecorder) *Manager {
	if r != nil {
		m.recorder = r
	}
	return m
}

// WithClock подменяет источник времени (для тестов)
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// AccessTTL returns access token lifetime
func (m *Manager) AccessTTL() time.Duration {
	return m.codec.TTL()
}

// RefreshTTL returns refresh token lifetime
func (m *Manager) RefreshTTL() time.Duration {
	return m.refresh.TTL()
}

// NormalizeEmail приводит email к каноническому виду для хранения и поиска
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создает пользователя с bcrypt хешем пароля
func (m *Manager) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)

	hash, err := crypto.HashPassword(password, m.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, crypto.ErrEmptyPassword) {
			return nil, apperror.NewValidationError("password", "password is required")
		}
		return nil, err
	}

	now := m.now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
	}

	// Уникальность email обеспечивает хранилище, а не проверка перед вставкой
	if err := m.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			m.recorder.AuthEvent("register", "duplicate")
			return nil, apperror.ErrUserAlreadyExists
		}
		m.recorder.AuthEvent("register", "error")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	m.recorder.AuthEvent("register", "success")
	m.logger.InfoContext(ctx, "User registered", slog.String("user_id", user.ID))

	return user, nil
}

// Login проверяет учетные данные и выдает пару токенов.
// Неизвестный email и неверный пароль неразличимы ни по ошибке, ни по времени.
func (m *Manager) Login(ctx context.Context, email, password string, client ClientMeta) (*Tokens, error) {
	user, err := m.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			crypto.BurnPasswordCheck(password)
			m.recorder.AuthEvent("login", "invalid_credentials")
			return nil, apperror.ErrInvalidCredentials
		}
		m.recorder.AuthEvent("login", "error")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !crypto.VerifyPassword(password, user.PasswordHash) {
		m.recorder.AuthEvent("login", "invalid_credentials")
		return nil, apperror.ErrInvalidCredentials
	}

	accessToken, accessExpiresAt, err := m.codec.Encode(user.ID)
	if err != nil {
		m.recorder.AuthEvent("login", "error")
		return nil, fmt.Errorf("failed to encode access token: %w", err)
	}

	raw, record, err := m.refresh.Issue(ctx, user.ID, client)
	if err != nil {
		m.recorder.AuthEvent("login", "error")
		return nil, err
	}

	// Обновление last_login не должно ломать вход
	if err := m.users.UpdateLastLogin(ctx, user.ID, m.now()); err != nil {
		m.logger.WarnContext(ctx, "Failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	m.recorder.AuthEvent("login", "success")
	m.logger.InfoContext(ctx, "User logged in", slog.String("user_id", user.ID))

	return &Tokens{
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: record.ExpiresAt,
		UserID:           user.ID,
		AccessToken:      accessToken,
		RefreshToken:     raw,
	}, nil
}

// Refresh обменивает refresh token на новый access token.
// При включенной ротации предъявленный токен отзывается и выдается новый.
func (m *Manager) Refresh(ctx context.Context, raw string, client ClientMeta) (*Tokens, error) {
	record, tokens, err := m.renew(ctx, raw, "refresh")
	if err != nil {
		return nil, err
	}

	if m.cfg.RotateRefreshTokens {
		// Отзыв условный: из параллельных обновлений одного токена проходит одно
		if err := m.refresh.Revoke(ctx, record.ID); err != nil {
			if errors.Is(err, apperror.ErrRevokedToken) {
				m.recorder.AuthEvent("refresh", refreshResult(err))
				return nil, err
			}
			m.recorder.AuthEvent("refresh", "error")
			return nil, fmt.Errorf("failed to revoke rotated token: %w", err)
		}

		newRaw, newRecord, err := m.refresh.Issue(ctx, tokens.UserID, client)
		if err != nil {
			m.recorder.AuthEvent("refresh", "error")
			return nil, err
		}
		tokens.RefreshToken = newRaw
		tokens.RefreshExpiresAt = newRecord.ExpiresAt
	}

	m.recorder.AuthEvent("refresh", "success")

	return tokens, nil
}

// RenewAccess выдает новый access token по refresh token без ротации.
// Используется gate: параллельные запросы с одними cookie не должны
// отзывать refresh token друг друга.
func (m *Manager) RenewAccess(ctx context.Context, raw string) (*Tokens, error) {
	_, tokens, err := m.renew(ctx, raw, "renew")
	if err != nil {
		return nil, err
	}

	m.recorder.AuthEvent("renew", "success")
	return tokens, nil
}

// renew проверяет refresh token и выпускает access token для владельца
func (m *Manager) renew(ctx context.Context, raw, op string) (*models.RefreshToken, *Tokens, error) {
	record, err := m.refresh.Validate(ctx, raw)
	if err != nil {
		m.recorder.AuthEvent(op, refreshResult(err))
		return nil, nil, err
	}

	user, err := m.users.GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			m.recorder.AuthEvent(op, "user_not_found")
			return nil, nil, apperror.ErrUserNotFound
		}
		m.recorder.AuthEvent(op, "error")
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	accessToken, accessExpiresAt, err := m.codec.Encode(user.ID)
	if err != nil {
		m.recorder.AuthEvent(op, "error")
		return nil, nil, fmt.Errorf("failed to encode access token: %w", err)
	}

	return record, &Tokens{
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: record.ExpiresAt,
		UserID:           user.ID,
		AccessToken:      accessToken,
	}, nil
}

// Logout отзывает refresh token. Неизвестный или уже отозванный токен не ошибка.
func (m *Manager) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}

	record, err := m.refresh.Find(ctx, raw)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find refresh token: %w", err)
	}

	err = m.refresh.Revoke(ctx, record.ID)
	if err != nil && !errors.Is(err, storage.ErrTokenNotFound) && !errors.Is(err, apperror.ErrRevokedToken) {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	m.recorder.AuthEvent("logout", "success")
	m.logger.InfoContext(ctx, "User logged out", slog.String("user_id", record.UserID))

	return nil
}

// LogoutAll отзывает все refresh token пользователя
func (m *Manager) LogoutAll(ctx context.Context, userID string) (int, error) {
	count, err := m.refresh.RevokeAllForOwner(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	m.logger.InfoContext(ctx, "Revoked all user sessions",
		slog.String("user_id", userID),
		slog.Int("count", count))

	return count, nil
}

// Authenticate проверяет access token
func (m *Manager) Authenticate(token string) (*jwt.Claims, error) {
	return m.codec.Decode(token)
}

// Sessions возвращает refresh token пользователя
func (m *Manager) Sessions(ctx context.Context, userID string) ([]*models.RefreshToken, error) {
	return m.refresh.ListForOwner(ctx, userID)
}

// PurgeExpired удаляет истекшие refresh token
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	return m.refresh.PurgeExpired(ctx)
}

// Profile возвращает пользователя по ID
func (m *Manager) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile меняет email и/или пароль пользователя
func (m *Manager) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*models.User, error) {
	if upd.Email == nil && upd.Password == nil {
		return nil, apperror.NewValidationError("", "at least one field (email or password) is required")
	}

	user, err := m.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Email != nil {
		user.Email = NormalizeEmail(*upd.Email)
	}

	if upd.Password != nil {
		hash, err := crypto.HashPassword(*upd.Password, m.cfg.BcryptCost)
		if err != nil {
			if errors.Is(err, crypto.ErrEmptyPassword) {
				return nil, apperror.NewValidationError("password", "password is required")
			}
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = m.now()

	if err := m.users.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserAlreadyExists):
			return nil, apperror.ErrUserAlreadyExists
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	m.logger.InfoContext(ctx, "Profile updated", slog.String("user_id", userID))

	return user, nil
}

func refreshResult(err error) string {
	switch {
	case errors.Is(err, apperror.ErrRevokedToken):
		return "revoked"
	case errors.Is(err, apperror.ErrExpiredToken):
		return "expired"
	case errors.Is(err, apperror.ErrInvalidToken):
		return "invalid"
	default:
		return "error"
	}
}
