package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vulntracker/internal/server/ratelimit"
	"github.com/iudanet/vulntracker/pkg/api"
)

// recordingRecorder запоминает решения лимитера
type recordingRecorder struct {
	decisions map[string][]bool
	mu        sync.Mutex
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{decisions: make(map[string][]bool)}
}

func (r *recordingRecorder) RateLimitDecision(endpoint string, allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions[endpoint] = append(r.decisions[endpoint], allowed)
}

// fakeClock управляемые часы для лимитера
type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock *fakeClock) *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		Default: ratelimit.Rule{Limit: 5, Window: 10 * time.Second},
		Overrides: map[string]ratelimit.Rule{
			"/api/auth/login": {Limit: 2, Window: time.Minute},
		},
	}).WithClock(clock.Now)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock)
	recorder := newRecordingRecorder()

	handler := RateLimitMiddleware(limiter, "", logger, recorder)(okHandler())

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/issues", nil)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("headers on every allowed request", func(t *testing.T) {
		for i, wantRemaining := range []int{4, 3, 2, 1, 0} {
			w := request("10.0.0.1")
			require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
			assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, strconv.Itoa(wantRemaining), w.Header().Get("X-RateLimit-Remaining"))
			assert.Equal(t, strconv.FormatInt(clock.Now().Add(10*time.Second).Unix(), 10),
				w.Header().Get("X-RateLimit-Reset"))
		}
	})

	t.Run("sixth request rejected", func(t *testing.T) {
		clock.Advance(4 * time.Second)

		w := request("10.0.0.1")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "6", w.Header().Get("Retry-After"))
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body api.RateLimitResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.NotEmpty(t, body.Error)
		assert.Equal(t, 6, body.RetryAfter)
	})

	t.Run("other IP has its own window", func(t *testing.T) {
		w := request("10.0.0.2")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("window reset", func(t *testing.T) {
		clock.Advance(7 * time.Second)

		w := request("10.0.0.1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("decisions recorded under default label", func(t *testing.T) {
		recorder.mu.Lock()
		defer recorder.mu.Unlock()
		got := recorder.decisions["default"]
		require.Len(t, got, 8)
		assert.False(t, got[5])
	})
}

func TestRateLimitMiddleware_EndpointOverride(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(clock)

	login := RateLimitMiddleware(limiter, "/api/auth/login", logger, nil)(okHandler())
	other := RateLimitMiddleware(limiter, "", logger, nil)(okHandler())

	serveFrom := func(h http.Handler, path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serveFrom(login, "/api/auth/login"))
	assert.Equal(t, http.StatusOK, serveFrom(login, "/api/auth/login"))
	assert.Equal(t, http.StatusTooManyRequests, serveFrom(login, "/api/auth/login"))

	// Счетчик login не расходует общую квоту
	assert.Equal(t, http.StatusOK, serveFrom(other, "/api/issues"))

	stats, ok := limiter.Stats("203.0.113.7", "/api/auth/login")
	require.True(t, ok)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 2, stats.Limit)
}

func TestRateLimitMiddleware_ConcurrentExactAdmission(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.New(ratelimit.Config{
		Default: ratelimit.Rule{Limit: 20, Window: time.Minute},
	})
	handler := RateLimitMiddleware(limiter, "", logger, nil)(okHandler())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/issues", nil)
			req.Header.Set("X-Real-IP", "198.51.100.1")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code == http.StatusOK {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, allowed)
}
