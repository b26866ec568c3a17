package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/vulntracker/pkg/api"
)

// WriteJSON отправляет JSON ответ
func WriteJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// WriteError отправляет JSON ответ с ошибкой
func WriteError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	WriteJSON(logger, w, resp, statusCode)
}

// decodeJSON читает тело запроса. Неизвестные поля игнорируются.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

const maxBodyBytes = 1 << 20
