package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/vulntracker/internal/server/apperror"
)

// errorMapping связывает вид ошибки со статусом и публичным сообщением
type errorMapping struct {
	kind    error
	message string
	status  int
}

// Сообщения для ошибок учетных данных и токенов намеренно общие:
// ответ не должен выдавать, существует ли email.
var errorTable = []errorMapping{
	{kind: apperror.ErrValidation, status: http.StatusBadRequest},
	{kind: apperror.ErrUserAlreadyExists, status: http.StatusBadRequest, message: "user already exists"},
	{kind: apperror.ErrInvalidCredentials, status: http.StatusUnauthorized, message: "invalid email or password"},
	{kind: apperror.ErrRevokedToken, status: http.StatusUnauthorized, message: "token has been revoked"},
	{kind: apperror.ErrExpiredToken, status: http.StatusUnauthorized, message: "token has expired"},
	{kind: apperror.ErrInvalidToken, status: http.StatusUnauthorized, message: "invalid or expired token"},
	{kind: apperror.ErrUserNotFound, status: http.StatusUnauthorized, message: "invalid or expired token"},
	{kind: apperror.ErrIssueNotFound, status: http.StatusNotFound, message: "issue not found"},
	{kind: apperror.ErrRateLimitExceeded, status: http.StatusTooManyRequests, message: "rate limit exceeded"},
}

// ErrorStatus returns the HTTP status and public message for err.
// Unknown errors map to 500 with a generic message.
func ErrorStatus(err error) (int, string) {
	for _, m := range errorTable {
		if !errors.Is(err, m.kind) {
			continue
		}
		if m.kind == apperror.ErrValidation {
			var verr *apperror.ValidationError
			if errors.As(err, &verr) {
				return m.status, verr.Error()
			}
			return m.status, apperror.ErrValidation.Error()
		}
		return m.status, m.message
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeAppError переводит ошибку сервиса в JSON ответ.
// Неожиданные ошибки логируются, клиент получает только общий текст.
func writeAppError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	status, message := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
	}
	WriteError(logger, w, message, status)
}
