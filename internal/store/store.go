// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/attune-labs/attune/internal/domain"
)

// Repository defines the interface for persisting session state. Save and
// Load are whole-record operations: the engine owns the state in memory and
// the store never mutates individual fields.
type Repository interface {
	// SaveSession creates or replaces the stored record for a session.
	SaveSession(ctx context.Context, state *domain.SessionState) error

	// LoadSession retrieves a session by id. Returns (nil, nil) when the
	// session does not exist.
	LoadSession(ctx context.Context, sessionID string) (*domain.SessionState, error)

	// DeleteSession removes a session record.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListSessionIDs returns the ids of all stored sessions.
	ListSessionIDs(ctx context.Context) ([]string, error)

	// CleanupExpiredSessions removes sessions idle longer than ttl.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
