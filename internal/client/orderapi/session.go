package orderapi

import (
	"sync"
	"time"

	operatorhttpmapper "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/http/mapper"
)

// Session holds the bearer token of the logged-in operator. Safe for concurrent use.
type Session struct {
	mu          sync.RWMutex
	token       string
	username    string
	displayName string
	expiresAt   time.Time
	now         func() time.Time
}

// NewSession restores a session from a previously issued token.
func NewSession(token, username string, expiresAt time.Time) *Session {
	return &Session{token: token, username: username, expiresAt: expiresAt}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}

// Authenticated reports whether a token is held and has not expired. A zero expiry never expires.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return false
	}
	if s.expiresAt.IsZero() {
		return true
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return now().Before(s.expiresAt)
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.username, s.displayName = "", "", ""
	s.expiresAt = time.Time{}
}

func (s *Session) set(issued operatorhttpmapper.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = issued.Token
	s.username = issued.Username
	s.displayName = issued.DisplayName
	s.expiresAt = issued.ExpiresAt
}
