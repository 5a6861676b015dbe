package api

import (
	"context"

	"github.com/neexbeast/destination-search/internal/session"
)

// SessionStore defines the session registry operations needed by handlers.
type SessionStore interface {
	Create(page string) (*session.Session, error)
	Get(id string) (*session.Session, bool)
	Delete(id string) bool
}

// Pinger is a dependency the health endpoint checks.
type Pinger interface {
	Ping(ctx context.Context) error
}
