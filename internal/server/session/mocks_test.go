package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

// mockUserStorage is an in-memory UserStorage for testing
type mockUserStorage struct {
	users           map[string]*models.User // email -> User
	getUserError    error
	updateLastLogin func(ctx context.Context, userID string, loginTime time.Time) error
	mu              sync.Mutex
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{users: make(map[string]*models.User)}
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return storage.ErrUserAlreadyExists
	}
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m *mockUserStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	user, ok := m.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	for _, user := range m.users {
		if user.ID == id {
			cp := *user
			return &cp, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldEmail string
	for email, u := range m.users {
		if u.ID == user.ID {
			oldEmail = email
		}
	}
	if oldEmail == "" {
		return storage.ErrUserNotFound
	}
	if other, ok := m.users[user.Email]; ok && other.ID != user.ID {
		return storage.ErrUserAlreadyExists
	}
	delete(m.users, oldEmail)
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m *mockUserStorage) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, u := range m.users {
		if u.ID == id {
			delete(m.users, email)
			return nil
		}
	}
	return storage.ErrUserNotFound
}

func (m *mockUserStorage) UpdateLastLogin(ctx context.Context, userID string, loginTime time.Time) error {
	if m.updateLastLogin != nil {
		return m.updateLastLogin(ctx, userID, loginTime)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			u.LastLogin = &loginTime
			return nil
		}
	}
	return storage.ErrUserNotFound
}

// mockTokenStorage is an in-memory TokenStorage for testing
type mockTokenStorage struct {
	tokens    map[string]*models.RefreshToken // id -> RefreshToken
	saveError error
	// beforeGet вызывается перед чтением, вне блокировки
	beforeGet func()
	mu        sync.Mutex
}

func newMockTokenStorage() *mockTokenStorage {
	return &mockTokenStorage{tokens: make(map[string]*models.RefreshToken)}
}

func (m *mockTokenStorage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *token
	m.tokens[token.ID] = &cp
	return nil
}

func (m *mockTokenStorage) GetRefreshTokenByDigest(ctx context.Context, digest string) (*models.RefreshToken, error) {
	if m.beforeGet != nil {
		m.beforeGet()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenDigest == digest {
			cp := *t
			return &cp, nil
		}
	}
	return nil, storage.ErrTokenNotFound
}

func (m *mockTokenStorage) GetUserTokens(ctx context.Context, userID string) ([]*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.RefreshToken, 0)
	for _, t := range m.tokens {
		if t.UserID == userID {
			cp := *t
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockTokenStorage) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[id]
	if !ok {
		return storage.ErrTokenNotFound
	}
	if t.RevokedAt != nil {
		return storage.ErrTokenAlreadyRevoked
	}
	t.RevokedAt = &revokedAt
	return nil
}

func (m *mockTokenStorage) RevokeUserTokens(ctx context.Context, userID string, revokedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &revokedAt
			count++
		}
	}
	return count, nil
}

func (m *mockTokenStorage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, t := range m.tokens {
		if t.IsExpired(now) {
			delete(m.tokens, id)
			count++
		}
	}
	return count, nil
}

func (m *mockTokenStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type recordedEvent struct {
	operation string
	result    string
}

type mockRecorder struct {
	events []recordedEvent
	mu     sync.Mutex
}

func (r *mockRecorder) AuthEvent(operation, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{operation: operation, result: result})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
