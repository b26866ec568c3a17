package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/vulntracker/internal/crypto"
	"github.com/iudanet/vulntracker/internal/server/jwt"
	"github.com/iudanet/vulntracker/internal/server/session"
	"github.com/iudanet/vulntracker/internal/server/storage/sqlite"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

// testEnv собирает handlers поверх sqlite в памяти и настоящего менеджера сессий
type testEnv struct {
	storage  *sqlite.Storage
	sessions *session.Manager
	auth     *AuthHandler
	profile  *ProfileHandler
	issues   *IssueHandler
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	codec, err := jwt.NewCodec(jwt.Config{Secret: []byte(testSecret), Issuer: "vulntracker-test"})
	require.NoError(t, err)

	logger := setupTestLogger()
	refresh := session.NewRefreshStore(store, crypto.NewDigester(nil), 0)
	sessions := session.NewManager(store, refresh, codec, logger, session.Config{
		BcryptCost:          4,
		RotateRefreshTokens: true,
	})

	cookies := Cookies{}

	return &testEnv{
		storage:  store,
		sessions: sessions,
		auth:     NewAuthHandler(logger, sessions, cookies),
		profile:  NewProfileHandler(logger, sessions, cookies),
		issues:   NewIssueHandler(logger, store),
	}
}

// registerAndLogin создает пользователя и возвращает его токены
func (e *testEnv) registerAndLogin(t *testing.T, email string) *session.Tokens {
	t.Helper()

	ctx := context.Background()
	_, err := e.sessions.Register(ctx, email, "password123")
	require.NoError(t, err)

	tokens, err := e.sessions.Login(ctx, email, "password123", session.ClientMeta{UserAgent: "test"})
	require.NoError(t, err)
	return tokens
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// withUser имитирует прохождение admission gate
func withUser(userID string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(WithUserID(r.Context(), userID)))
	}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func serve(h http.Handler, req *http.Request) *http.Response {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

