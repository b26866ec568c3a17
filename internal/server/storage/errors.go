package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrTokenNotFound indicates that refresh token was not found
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrTokenAlreadyRevoked indicates that refresh token was revoked earlier
	ErrTokenAlreadyRevoked = errors.New("refresh token already revoked")

	// ErrIssueNotFound indicates that issue was not found
	ErrIssueNotFound = errors.New("issue not found")
)
