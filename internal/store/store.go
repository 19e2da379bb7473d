// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/naicoco/guestbook/internal/domain"
)

// Repository defines the interface for persisting guest sessions. Sessions
// survive sequential page re-renders (and server restarts) within their TTL.
type Repository interface {
	// GetSession retrieves a guest session by its session ID.
	// Returns (nil, nil) when no session exists.
	GetSession(ctx context.Context, sessionID string) (*domain.GuestSession, error)

	// UpsertSession creates or updates a guest session record.
	UpsertSession(ctx context.Context, sess *domain.GuestSession) error

	// DeleteExpired removes sessions idle for longer than ttl and returns
	// the number deleted.
	DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
