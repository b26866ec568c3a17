// Package router assembles the HTTP surface: public auth endpoints with
// their own rate limits, and gate-protected profile and issue routes.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/iudanet/vulntracker/internal/server/handlers"
	"github.com/iudanet/vulntracker/internal/server/middleware"
	"github.com/iudanet/vulntracker/internal/server/ratelimit"
)

// Auth endpoint, для которых лимитер держит отдельные квоты
const (
	LoginEndpoint    = "/api/auth/login"
	RegisterEndpoint = "/api/auth/register"
	RefreshEndpoint  = "/api/auth/refresh"
	LogoutEndpoint   = "/api/auth/logout"
)

// Deps зависимости роутера
type Deps struct {
	Logger         *slog.Logger
	Auth           *handlers.AuthHandler
	Profile        *handlers.ProfileHandler
	Issues         *handlers.IssueHandler
	Health         *handlers.HealthHandler
	Gate           *middleware.Gate
	Limiter        *ratelimit.Limiter
	Recorder       middleware.DecisionRecorder
	Metrics        http.Handler
	AllowedOrigins []string
}

// New builds the chi router
func New(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RecoveryMiddleware(d.Logger))
	r.Use(middleware.LoggingWithSkip(d.Logger, []string{"/api/health", "/metrics"}))
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(d.Gate.Middleware)

	limited := func(endpoint string) func(http.Handler) http.Handler {
		return middleware.RateLimitMiddleware(d.Limiter, endpoint, d.Logger, d.Recorder)
	}

	r.Get("/api/health", d.Health.Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(limited(RegisterEndpoint)).Post("/register", d.Auth.Register)
		r.With(limited(LoginEndpoint)).Post("/login", d.Auth.Login)
		r.With(limited(RefreshEndpoint)).Post("/refresh", d.Auth.Refresh)
		r.With(limited(LogoutEndpoint)).Post("/logout", d.Auth.Logout)
	})

	// Остальное уже прошло gate: user_id в контексте
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/profile", d.Profile.Get)
		r.Patch("/profile", d.Profile.Update)
		r.Get("/sessions", d.Profile.Sessions)
		r.Delete("/sessions", d.Profile.RevokeSessions)
	})

	r.Route("/api/issues", func(r chi.Router) {
		r.Get("/", d.Issues.List)
		r.Post("/", d.Issues.Create)
		r.Get("/{id}", d.Issues.Get)
		r.Patch("/{id}", d.Issues.Update)
		r.Delete("/{id}", d.Issues.Delete)
	})

	return r
}
