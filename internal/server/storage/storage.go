package storage

import "context"

// Storage aggregates every persistence concern of the server.
// Implemented by the sqlite, postgres and boltdb packages.
type Storage interface {
	UserStorage
	TokenStorage
	IssueStorage

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the backend resources
	Close() error
}
