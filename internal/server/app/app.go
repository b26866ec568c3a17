// Package app wires configuration, storage, the session core and the HTTP
// surface into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/iudanet/vulntracker/internal/crypto"
	"github.com/iudanet/vulntracker/internal/server/config"
	"github.com/iudanet/vulntracker/internal/server/handlers"
	"github.com/iudanet/vulntracker/internal/server/jwt"
	"github.com/iudanet/vulntracker/internal/server/metrics"
	"github.com/iudanet/vulntracker/internal/server/middleware"
	"github.com/iudanet/vulntracker/internal/server/ratelimit"
	"github.com/iudanet/vulntracker/internal/server/router"
	"github.com/iudanet/vulntracker/internal/server/session"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

// App собранный сервер: все синглтоны создаются здесь один раз и внедряются
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Storage
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics
	handler  http.Handler
}

// New открывает хранилище и собирает приложение
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	a, err := NewWithStorage(cfg, logger, store, version)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return a, nil
}

// NewWithStorage собирает приложение поверх уже открытого хранилища.
// App становится владельцем store и закрывает его в Close.
func NewWithStorage(cfg *config.Config, logger *slog.Logger, store storage.Storage, version string) (*App, error) {
	codec, err := jwt.NewCodec(jwt.Config{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.AccessTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	var digestKey []byte
	if cfg.Auth.DigestKey != "" {
		digestKey = []byte(cfg.Auth.DigestKey)
	}

	m := metrics.New()

	refresh := session.NewRefreshStore(store, crypto.NewDigester(digestKey), cfg.Auth.RefreshTTL)
	sessions := session.NewManager(store, refresh, codec, logger, session.Config{
		BcryptCost:          cfg.Auth.BcryptCost,
		RotateRefreshTokens: cfg.Auth.RotateRefreshTokens,
	}).WithRecorder(m)

	limiter := ratelimit.New(LimiterConfig(cfg.RateLimit))
	m.TrackLimiterSize(limiter.Size)

	cookies := handlers.Cookies{Secure: cfg.Auth.CookieSecure}

	var publicPaths []string
	if len(cfg.Gate.PublicPaths) > 0 {
		publicPaths = cfg.Gate.PublicPaths
	}
	gate := middleware.NewGate(sessions, limiter, cookies, logger, middleware.GateConfig{
		LoginPath:   cfg.Gate.LoginPath,
		PublicPaths: publicPaths,
	}).WithRecorder(m)

	handler := router.New(router.Deps{
		Logger:         logger,
		Auth:           handlers.NewAuthHandler(logger, sessions, cookies),
		Profile:        handlers.NewProfileHandler(logger, sessions, cookies),
		Issues:         handlers.NewIssueHandler(logger, store),
		Health:         handlers.NewHealthHandler(logger, store, version),
		Gate:           gate,
		Limiter:        limiter,
		Recorder:       m,
		Metrics:        m.Handler(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		sessions: sessions,
		limiter:  limiter,
		metrics:  m,
		handler:  handler,
	}, nil
}

// LimiterConfig переводит конфигурацию в квоты лимитера
func LimiterConfig(cfg config.RateLimitConfig) ratelimit.Config {
	overrides := make(map[string]ratelimit.Rule, len(cfg.Overrides))
	for _, o := range cfg.Overrides {
		overrides[o.Endpoint] = ratelimit.Rule{Limit: o.Limit, Window: o.Window}
	}
	return ratelimit.Config{
		Default:        ratelimit.Rule{Limit: cfg.Default.Limit, Window: cfg.Default.Window},
		Overrides:      overrides,
		SweepThreshold: cfg.SweepThreshold,
	}
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Sessions returns the session manager (used by admin commands)
func (a *App) Sessions() *session.Manager {
	return a.sessions
}

// Limiter returns the rate limiter
func (a *App) Limiter() *ratelimit.Limiter {
	return a.limiter
}

// Close освобождает хранилище
func (a *App) Close() error {
	return a.store.Close()
}

// Run запускает HTTP сервер и фоновую очистку токенов.
// Возвращается после отмены ctx и graceful shutdown либо при ошибке сервера.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.PurgeLoop(loopCtx, a.cfg.Maintenance.PurgeInterval)
	}()

	a.logger.Info("Server starting",
		slog.String("addr", a.cfg.Server.Addr),
		slog.String("storage", a.cfg.Storage.Driver))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case serveErr = <-errCh:
		a.logger.Error("Server failed", slog.Any("error", serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown failed", slog.Any("error", err))
		serveErr = errors.Join(serveErr, fmt.Errorf("shutdown: %w", err))
	}

	stopLoop()
	wg.Wait()

	if err := a.Close(); err != nil {
		a.logger.Error("Storage close failed", slog.Any("error", err))
	}

	a.logger.Info("Server stopped")
	return serveErr
}

// PurgeLoop периодически удаляет истекшие refresh token до отмены ctx.
// Нулевой interval отключает очистку.
func (a *App) PurgeLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := a.sessions.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.logger.Error("Failed to purge expired tokens", slog.Any("error", err))
				continue
			}
			if count > 0 {
				a.logger.Info("Purged expired tokens", slog.Int("count", count))
			}
		}
	}
}
