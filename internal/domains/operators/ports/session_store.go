package ports

import (
	"context"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
)

// SessionStore tracks issued sessions so logout can revoke a still-valid token.
type SessionStore interface {
	Save(ctx context.Context, session domain.Session) error
	// Exists reports whether the session is known and not expired.
	Exists(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) error
	// PurgeExpired removes expired sessions and returns how many were dropped.
	PurgeExpired(ctx context.Context) (int64, error)
}
