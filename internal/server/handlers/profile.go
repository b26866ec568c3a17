package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/session"
	"github.com/iudanet/vulntracker/internal/validation"
	"github.com/iudanet/vulntracker/pkg/api"
)

// ProfileHandler обрабатывает запросы профиля текущего пользователя
type ProfileHandler struct {
	logger   *slog.Logger
	sessions *session.Manager
	now      func() time.Time
	cookies  Cookies
}

// NewProfileHandler создает новый handler профиля
func NewProfileHandler(logger *slog.Logger, sessions *session.Manager, cookies Cookies) *ProfileHandler {
	return &ProfileHandler{
		logger:   logger,
		sessions: sessions,
		now:      time.Now,
		cookies:  cookies,
	}
}

// Get обрабатывает GET /api/users/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.sessions.Profile(ctx, userID)
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	WriteJSON(h.logger, w, profileResponse(user), http.StatusOK)
}

// Update обрабатывает PATCH /api/users/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode profile update", slog.Any("error", err))
		WriteError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.Struct(req); err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	user, err := h.sessions.UpdateProfile(ctx, userID, session.ProfileUpdate{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	WriteJSON(h.logger, w, profileResponse(user), http.StatusOK)
}

// Sessions обрабатывает GET /api/users/sessions: действующие refresh token
func (h *ProfileHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	tokens, err := h.sessions.Sessions(ctx, userID)
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	now := h.now()
	resp := api.SessionListResponse{Sessions: make([]api.SessionResponse, 0, len(tokens))}
	for _, t := range tokens {
		if !t.Usable(now) {
			continue
		}
		resp.Sessions = append(resp.Sessions, api.SessionResponse{
			CreatedAt:  t.CreatedAt,
			ExpiresAt:  t.ExpiresAt,
			ID:         t.ID,
			UserAgent:  t.UserAgent,
			OriginAddr: t.OriginAddr,
		})
	}
	resp.Count = len(resp.Sessions)

	WriteJSON(h.logger, w, resp, http.StatusOK)
}

// RevokeSessions обрабатывает DELETE /api/users/sessions: выход на всех устройствах
func (h *ProfileHandler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	count, err := h.sessions.LogoutAll(ctx, userID)
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	h.cookies.Clear(w)
	WriteJSON(h.logger, w, api.RevokeSessionsResponse{Revoked: count}, http.StatusOK)
}

func profileResponse(user *models.User) api.ProfileResponse {
	return api.ProfileResponse{
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
		LastLogin: user.LastLogin,
		ID:        user.ID,
		Email:     user.Email,
	}
}
