package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// DefaultKeyRetention covers a client retrying a submission across a working day.
const DefaultKeyRetention = 24 * time.Hour

// IdempotencyStore remembers order create keys in process memory. Keys expire after
// the retention window and are then treated as unknown.
type IdempotencyStore struct {
	mu        sync.Mutex
	byKey     map[string]ports.IdempotencyRecord
	retention time.Duration
	clock     func() time.Time
}

type IdempotencyOption func(*IdempotencyStore)

// WithKeyRetention sets how long a key replays its order. Zero or less keeps keys forever.
func WithKeyRetention(d time.Duration) IdempotencyOption {
	return func(s *IdempotencyStore) { s.retention = d }
}

// WithIdempotencyClock replaces time.Now.
func WithIdempotencyClock(clock func() time.Time) IdempotencyOption {
	return func(s *IdempotencyStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewIdempotencyStore returns an empty store with DefaultKeyRetention.
func NewIdempotencyStore(opts ...IdempotencyOption) *IdempotencyStore {
	s := &IdempotencyStore{
		byKey:     map[string]ports.IdempotencyRecord{},
		retention: DefaultKeyRetention,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.lookup(strings.TrimSpace(key))
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Save records the order a key created. A live key with another payload hash is a conflict.
func (s *IdempotencyStore) Save(_ context.Context, record ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	record.Key = strings.TrimSpace(record.Key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.lookup(record.Key); ok {
		if existing.RequestHash != record.RequestHash {
			return &existing, ports.ErrIdempotencyConflict
		}
		return &existing, nil
	}
	record.CreatedAt = s.clock().UTC()
	s.byKey[record.Key] = record
	return &record, nil
}

// lookup drops the record when it has outlived the retention window. Callers hold mu.
func (s *IdempotencyStore) lookup(key string) (ports.IdempotencyRecord, bool) {
	record, ok := s.byKey[key]
	if !ok {
		return ports.IdempotencyRecord{}, false
	}
	if s.retention > 0 && s.clock().Sub(record.CreatedAt) >= s.retention {
		delete(s.byKey, key)
		return ports.IdempotencyRecord{}, false
	}
	return record, true
}
