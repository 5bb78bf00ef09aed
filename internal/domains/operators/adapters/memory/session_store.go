package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
	"github.com/Apurer/bakery-orders/internal/domains/operators/ports"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory SessionStore implementation.
type SessionStore struct {
	sessions sync.Map
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{now: time.Now}
}

// WithClock overrides the time source for deterministic testing.
func (s *SessionStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *SessionStore) Save(_ context.Context, session domain.Session) error {
	s.sessions.Store(session.ID, session.ExpiresAt)
	return nil
}

func (s *SessionStore) Exists(_ context.Context, sessionID string) (bool, error) {
	v, ok := s.sessions.Load(sessionID)
	if !ok {
		return false, nil
	}
	expires := v.(time.Time)
	return expires.IsZero() || s.now().Before(expires), nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.sessions.Delete(sessionID)
	return nil
}

func (s *SessionStore) PurgeExpired(_ context.Context) (int64, error) {
	now := s.now()
	var purged int64
	s.sessions.Range(func(key, value any) bool {
		expires := value.(time.Time)
		if !expires.IsZero() && !now.Before(expires) {
			s.sessions.Delete(key)
			purged++
		}
		return true
	})
	return purged, nil
}
