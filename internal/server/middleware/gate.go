package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/vulntracker/internal/server/handlers"
	"github.com/iudanet/vulntracker/internal/server/ratelimit"
	"github.com/iudanet/vulntracker/internal/server/session"
)

// DefaultLoginPath страница входа, куда перенаправляются страничные запросы
const DefaultLoginPath = "/login"

// DefaultPublicPaths пути, доступные без аутентификации и без общего лимита.
// Auth endpoint ограничиваются отдельно RateLimitMiddleware.
var DefaultPublicPaths = []string{
	"/",
	"/login",
	"/register",
	"/api/auth/login",
	"/api/auth/register",
	"/api/auth/refresh",
	"/api/auth/logout",
	"/api/health",
	"/metrics",
	"/favicon.ico",
	"/static",
}

// GateConfig настройки admission gate
type GateConfig struct {
	// LoginPath куда перенаправлять страничные запросы без сессии
	LoginPath string
	// Endpoint ключ лимитера для защищенных запросов; пустой означает общую квоту по IP
	Endpoint string
	// PublicPaths совпадают точно или как префикс по сегментам
	PublicPaths []string
}

// Gate решает для каждого запроса: пропустить, прозрачно обновить
// учетные данные или отказать.
type Gate struct {
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	recorder DecisionRecorder
	now      func() time.Time
	cookies  handlers.Cookies
	cfg      GateConfig
}

// NewGate creates a new admission Gate
func NewGate(
	sessions *session.Manager,
	limiter *ratelimit.Limiter,
	cookies handlers.Cookies,
	logger *slog.Logger,
	cfg GateConfig,
) *Gate {
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.PublicPaths == nil {
		cfg.PublicPaths = DefaultPublicPaths
	}
	return &Gate{
		sessions: sessions,
		limiter:  limiter,
		logger:   logger,
		recorder: nopDecisionRecorder{},
		now:      time.Now,
		cookies:  cookies,
		cfg:      cfg,
	}
}

// WithRecorder подключает метрики решений лимитера
func (g *Gate) WithRecorder(r DecisionRecorder) *Gate {
	if r != nil {
		g.recorder = r
	}
	return g
}

// IsPublic reports whether path is served without authentication.
// "/static" covers "/static/app.css" but not "/staticfiles".
func (g *Gate) IsPublic(path string) bool {
	for _, p := range g.cfg.PublicPaths {
		if path == p {
			return true
		}
		if strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") && p != "/" {
			return true
		}
	}
	return false
}

// Middleware returns the gate as an http middleware
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if g.IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !applyRateLimit(w, r, g.limiter, g.cfg.Endpoint, g.logger, g.recorder) {
			return
		}

		accessToken := handlers.AccessCookie(r)
		refreshToken := handlers.RefreshCookie(r)

		if accessToken == "" && refreshToken == "" {
			g.deny(w, r, "missing credentials", false)
			return
		}

		if accessToken != "" {
			claims, err := g.sessions.Authenticate(accessToken)
			if err == nil {
				g.logger.DebugContext(ctx, "User authenticated", slog.String("user_id", claims.UserID()))
				next.ServeHTTP(w, r.WithContext(handlers.WithUserID(ctx, claims.UserID())))
				return
			}
			g.logger.DebugContext(ctx, "Access token rejected", slog.Any("error", err))
		}

		if refreshToken == "" {
			g.deny(w, r, "invalid access token", true)
			return
		}

		// Без ротации: refresh token остается прежним, обновляется только access cookie
		tokens, err := g.sessions.RenewAccess(ctx, refreshToken)
		if err != nil {
			g.logger.InfoContext(ctx, "Transparent refresh failed", slog.Any("error", err))
			g.deny(w, r, "session expired", true)
			return
		}

		g.cookies.SetTokens(w, tokens, g.now())

		g.logger.DebugContext(ctx, "Session refreshed", slog.String("user_id", tokens.UserID))
		next.ServeHTTP(w, r.WithContext(handlers.WithUserID(ctx, tokens.UserID)))
	})
}

// deny отвечает 401 JSON для API и 303 на страницу входа для остальных
func (g *Gate) deny(w http.ResponseWriter, r *http.Request, reason string, clearCookies bool) {
	if clearCookies {
		g.cookies.Clear(w)
	}

	g.logger.WarnContext(r.Context(), "Request denied",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if wantsJSON(r) {
		handlers.WriteError(g.logger, w, "authentication required", http.StatusUnauthorized)
		return
	}

	http.Redirect(w, r, g.cfg.LoginPath, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
