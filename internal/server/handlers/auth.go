package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/vulntracker/internal/server/apperror"
	"github.com/iudanet/vulntracker/internal/server/ratelimit"
	"github.com/iudanet/vulntracker/internal/server/session"
	"github.com/iudanet/vulntracker/internal/validation"
	"github.com/iudanet/vulntracker/pkg/api"
)

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger   *slog.Logger
	sessions *session.Manager
	now      func() time.Time
	cookies  Cookies
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, sessions *session.Manager, cookies Cookies) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		sessions: sessions,
		now:      time.Now,
		cookies:  cookies,
	}
}

// ClientMeta извлекает из запроса данные клиента для записи refresh token
func ClientMeta(r *http.Request) session.ClientMeta {
	return session.ClientMeta{
		UserAgent: r.UserAgent(),
		Addr:      ratelimit.ClientIP(r),
	}
}

// Register обрабатывает POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		WriteError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.Struct(req); err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	user, err := h.sessions.Register(ctx, req.Email, req.Password)
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	resp := api.RegisterResponse{
		CreatedAt: user.CreatedAt,
		ID:        user.ID,
		Email:     user.Email,
	}

	WriteJSON(h.logger, w, resp, http.StatusCreated)
}

// Login обрабатывает POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		WriteError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.Struct(req); err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	tokens, err := h.sessions.Login(ctx, req.Email, req.Password, ClientMeta(r))
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	h.cookies.SetTokens(w, tokens, h.now())
	WriteJSON(h.logger, w, h.tokenResponse(tokens), http.StatusOK)
}

// Refresh обрабатывает POST /api/auth/refresh.
// Токен берется из тела запроса, иначе из cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode refresh request", slog.Any("error", err))
		WriteError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	raw := req.RefreshToken
	if raw == "" {
		raw = RefreshCookie(r)
	}
	if raw == "" {
		writeAppError(ctx, h.logger, w, apperror.NewValidationError("refreshToken", "is required"))
		return
	}

	tokens, err := h.sessions.Refresh(ctx, raw, ClientMeta(r))
	if err != nil {
		status, _ := ErrorStatus(err)
		if status == http.StatusUnauthorized {
			h.cookies.Clear(w)
		}
		writeAppError(ctx, h.logger, w, err)
		return
	}

	h.cookies.SetTokens(w, tokens, h.now())
	WriteJSON(h.logger, w, h.tokenResponse(tokens), http.StatusOK)
}

// Logout обрабатывает POST /api/auth/logout.
// Всегда очищает cookie; неизвестный или отозванный токен не ошибка.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LogoutRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		// тело не обязательно, токен может прийти в cookie
		h.logger.DebugContext(ctx, "ignoring malformed logout body", slog.Any("error", err))
	}

	raw := req.RefreshToken
	if raw == "" {
		raw = RefreshCookie(r)
	}

	h.cookies.Clear(w)

	if err := h.sessions.Logout(ctx, raw); err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	WriteJSON(h.logger, w, api.MessageResponse{Message: "logged out successfully"}, http.StatusOK)
}

func (h *AuthHandler) tokenResponse(tokens *session.Tokens) api.TokenResponse {
	return api.TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    int64(h.sessions.AccessTTL().Seconds()),
	}
}

// decodeOptionalJSON как decodeJSON, но пустое тело не ошибка
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := decodeJSON(w, r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
