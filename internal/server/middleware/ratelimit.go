package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/vulntracker/internal/server/handlers"
	"github.com/iudanet/vulntracker/internal/server/ratelimit"
	"github.com/iudanet/vulntracker/pkg/api"
)

// DecisionRecorder получает решения лимитера (метрики)
type DecisionRecorder interface {
	RateLimitDecision(endpoint string, allowed bool)
}

type nopDecisionRecorder struct{}

func (nopDecisionRecorder) RateLimitDecision(string, bool) {}

// RateLimitMiddleware ограничивает частоту запросов с одного IP к endpoint.
// Квота берется из конфигурации лимитера: для auth endpoint она строже общей.
func RateLimitMiddleware(limiter *ratelimit.Limiter, endpoint string, logger *slog.Logger, recorder DecisionRecorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = nopDecisionRecorder{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !applyRateLimit(w, r, limiter, endpoint, logger, recorder) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// applyRateLimit учитывает запрос и выставляет X-RateLimit-* заголовки.
// При отказе пишет 429 и возвращает false.
func applyRateLimit(
	w http.ResponseWriter,
	r *http.Request,
	limiter *ratelimit.Limiter,
	endpoint string,
	logger *slog.Logger,
	recorder DecisionRecorder,
) bool {
	ip := ratelimit.ClientIP(r)
	decision := limiter.Check(ip, endpoint)
	recorder.RateLimitDecision(metricEndpoint(endpoint), decision.Allowed)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

	if decision.Allowed {
		return true
	}

	retryAfter := decision.RetryAfter(limiter.Now())

	logger.WarnContext(r.Context(), "Rate limit exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("retry_after", retryAfter),
	)

	h.Set("Retry-After", strconv.Itoa(retryAfter))
	handlers.WriteJSON(logger, w, api.RateLimitResponse{
		Error:      "too many requests, please try again later",
		RetryAfter: retryAfter,
	}, http.StatusTooManyRequests)

	return false
}

// metricEndpoint не дает пустой метке попасть в метрики
func metricEndpoint(endpoint string) string {
	if endpoint == "" {
		return "default"
	}
	return endpoint
}
