package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/apperror"
	"github.com/iudanet/vulntracker/internal/server/storage"
	"github.com/iudanet/vulntracker/internal/validation"
	"github.com/iudanet/vulntracker/pkg/api"
)

// IssueHandler обрабатывает CRUD находок текущего пользователя
type IssueHandler struct {
	logger *slog.Logger
	issues storage.IssueStorage
	now    func() time.Time
}

// NewIssueHandler создает новый handler находок
func NewIssueHandler(logger *slog.Logger, issues storage.IssueStorage) *IssueHandler {
	return &IssueHandler{
		logger: logger,
		issues: issues,
		now:    time.Now,
	}
}

// List обрабатывает GET /api/issues[?type=...]
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var issueType models.IssueType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t, valid := models.ParseIssueType(raw)
		if !valid {
			writeAppError(ctx, h.logger, w, apperror.NewValidationError("type", "invalid issue type"))
			return
		}
		issueType = t
	}

	issues, err := h.issues.GetUserIssues(ctx, userID, issueType)
	if err != nil {
		writeAppError(ctx, h.logger, w, fmt.Errorf("failed to list issues: %w", err))
		return
	}

	resp := api.IssueListResponse{
		Issues: make([]api.IssueResponse, 0, len(issues)),
		Count:  len(issues),
	}
	for _, issue := range issues {
		resp.Issues = append(resp.Issues, issueResponse(issue))
	}

	WriteJSON(h.logger, w, resp, http.StatusOK)
}

// Create обрабатывает POST /api/issues
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CreateIssueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode issue request", slog.Any("error", err))
		WriteError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	issue, err := buildIssue(req)
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	now := h.now()
	issue.ID = uuid.New().String()
	issue.UserID = userID
	issue.CreatedAt = now
	issue.UpdatedAt = now

	if err := h.issues.CreateIssue(ctx, issue); err != nil {
		writeAppError(ctx, h.logger, w, fmt.Errorf("failed to create issue: %w", err))
		return
	}

	h.logger.InfoContext(ctx, "issue created",
		slog.String("issue_id", issue.ID),
		slog.String("user_id", userID),
		slog.String("type", string(issue.Type)))

	WriteJSON(h.logger, w, issueResponse(issue), http.StatusCreated)
}

// Get обрабатывает GET /api/issues/{id}
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	issue, err := h.ownedIssue(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	WriteJSON(h.logger, w, issueResponse(issue), http.StatusOK)
}

// Update обрабатывает PATCH /api/issues/{id}
func (h *IssueHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.UpdateIssueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode issue update", slog.Any("error", err))
		WriteError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.Struct(req); err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	issue, err := h.ownedIssue(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	if err := applyIssueUpdate(issue, req); err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}
	issue.UpdatedAt = h.now()

	if err := h.issues.UpdateIssue(ctx, issue); err != nil {
		if errors.Is(err, storage.ErrIssueNotFound) {
			err = apperror.ErrIssueNotFound
		}
		writeAppError(ctx, h.logger, w, err)
		return
	}

	WriteJSON(h.logger, w, issueResponse(issue), http.StatusOK)
}

// Delete обрабатывает DELETE /api/issues/{id}
func (h *IssueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		WriteError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	issue, err := h.ownedIssue(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(ctx, h.logger, w, err)
		return
	}

	if err := h.issues.DeleteIssue(ctx, issue.ID); err != nil {
		if errors.Is(err, storage.ErrIssueNotFound) {
			err = apperror.ErrIssueNotFound
		}
		writeAppError(ctx, h.logger, w, err)
		return
	}

	h.logger.InfoContext(ctx, "issue deleted",
		slog.String("issue_id", issue.ID),
		slog.String("user_id", userID))

	WriteJSON(h.logger, w, api.MessageResponse{Message: "issue deleted successfully"}, http.StatusOK)
}

// ownedIssue загружает находку и проверяет владельца.
// Чужая находка неотличима от отсутствующей.
func (h *IssueHandler) ownedIssue(ctx context.Context, userID, id string) (*models.Issue, error) {
	if id == "" {
		return nil, apperror.ErrIssueNotFound
	}

	issue, err := h.issues.GetIssue(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrIssueNotFound) {
			return nil, apperror.ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	if issue.UserID != userID {
		h.logger.WarnContext(ctx, "issue access denied",
			slog.String("issue_id", id),
			slog.String("user_id", userID))
		return nil, apperror.ErrIssueNotFound
	}

	return issue, nil
}

func buildIssue(req api.CreateIssueRequest) (*models.Issue, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	issueType, err := validation.IssueType(req.Type)
	if err != nil {
		return nil, err
	}
	title, err := validation.NonBlank("title", req.Title)
	if err != nil {
		return nil, err
	}
	description, err := validation.NonBlank("description", req.Description)
	if err != nil {
		return nil, err
	}
	priority, err := validation.IssuePriority(req.Priority)
	if err != nil {
		return nil, err
	}
	status, err := validation.IssueStatus(req.Status)
	if err != nil {
		return nil, err
	}

	return &models.Issue{
		Type:        issueType,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      status,
	}, nil
}

func applyIssueUpdate(issue *models.Issue, req api.UpdateIssueRequest) error {
	if req.Type != nil {
		t, err := validation.IssueType(*req.Type)
		if err != nil {
			return err
		}
		issue.Type = t
	}
	if req.Title != nil {
		title, err := validation.NonBlank("title", *req.Title)
		if err != nil {
			return err
		}
		issue.Title = title
	}
	if req.Description != nil {
		description, err := validation.NonBlank("description", *req.Description)
		if err != nil {
			return err
		}
		issue.Description = description
	}
	// пустые priority/status в PATCH означают "не менять", а не значения по умолчанию
	if req.Priority != nil && *req.Priority != "" {
		p, err := validation.IssuePriority(*req.Priority)
		if err != nil {
			return err
		}
		issue.Priority = p
	}
	if req.Status != nil && *req.Status != "" {
		s, err := validation.IssueStatus(*req.Status)
		if err != nil {
			return err
		}
		issue.Status = s
	}
	return nil
}

func issueResponse(issue *models.Issue) api.IssueResponse {
	return api.IssueResponse{
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
		ID:          issue.ID,
		UserID:      issue.UserID,
		Type:        string(issue.Type),
		Title:       issue.Title,
		Description: issue.Description,
		Priority:    string(issue.Priority),
		Status:      string(issue.Status),
	}
}
