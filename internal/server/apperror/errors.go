// Package apperror defines the error kinds shared by the session core and
// the HTTP layer. Handlers translate them into status codes with an explicit
// table; nothing inspects error strings.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials unknown email or wrong password, indistinguishable on purpose
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserAlreadyExists registration with an email that is already taken
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidToken malformed, forged, unknown or expired access token; unknown refresh token
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken refresh token past its expiry
	ErrExpiredToken = errors.New("token expired")

	// ErrRevokedToken refresh token that was revoked
	ErrRevokedToken = errors.New("token revoked")

	// ErrUserNotFound token owner no longer exists
	ErrUserNotFound = errors.New("user not found")

	// ErrRateLimitExceeded request rejected by the rate limiter
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrValidation malformed request input
	ErrValidation = errors.New("validation error")

	// ErrIssueNotFound issue does not exist or belongs to another user
	ErrIssueNotFound = errors.New("issue not found")
)

// ValidationError describes which input field was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrValidation)
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
