package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     NewValidationError("email", "must be a valid email address"),
			wantMsg: "validation error: email: must be a valid email address",
		},
		{
			name:    "without field",
			err:     NewValidationError("", "request body is required"),
			wantMsg: "validation error: request body is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrValidation)

			// Оборачивание сохраняет вид ошибки и поле
			wrapped := fmt.Errorf("register: %w", tt.err)
			assert.ErrorIs(t, wrapped, ErrValidation)

			var ve *ValidationError
			assert.True(t, errors.As(wrapped, &ve))
			assert.Equal(t, tt.err.Field, ve.Field)
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	all := []error{
		ErrInvalidCredentials, ErrUserAlreadyExists, ErrInvalidToken, ErrExpiredToken,
		ErrRevokedToken, ErrUserNotFound, ErrRateLimitExceeded, ErrValidation, ErrIssueNotFound,
	}

	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}
