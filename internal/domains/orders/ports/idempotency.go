package ports

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict indicates the same key was reused with a different order payload.
var ErrIdempotencyConflict = errors.New("idempotency conflict")

// IdempotencyRecord associates a client-supplied key with the order it created.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	OrderID     int64
	CreatedAt   time.Time
}

// IdempotencyStore remembers create keys so retried submissions replay the first result.
type IdempotencyStore interface {
	// Get returns the stored record for the key, or nil when unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Save persists the record. An existing key with the same hash returns the stored record;
	// a different hash returns ErrIdempotencyConflict together with the stored record.
	Save(ctx context.Context, record IdempotencyRecord) (*IdempotencyRecord, error)
}
