package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
	"github.com/Apurer/bakery-orders/internal/domains/operators/ports"
)

// Service exposes operator login and session use cases.
type Service struct {
	repo     ports.Repository
	sessions ports.SessionStore
	tokens   *TokenIssuer
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo ports.Repository, sessions ports.SessionStore, tokens *TokenIssuer, opts ...Option) *Service {
	s := &Service{repo: repo, sessions: sessions, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register creates or replaces the operator with the given username.
func (s *Service) Register(ctx context.Context, username, displayName, password string) (*domain.Operator, error) {
	op, err := domain.NewOperator(username, displayName, password)
	if err != nil {
		return nil, mapError(err)
	}
	return s.repo.Save(ctx, op)
}

func (s *Service) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, mapError(ports.ErrInvalidCredentials)
	}
	op, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, mapError(ports.ErrInvalidCredentials)
		}
		return nil, err
	}
	if !op.CheckPassword(password) {
		return nil, mapError(ports.ErrInvalidCredentials)
	}
	session, err := s.tokens.Issue(op, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, *session); err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes the session behind token. Unknown or expired tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	session, err := s.tokens.Verify(token, s.now())
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, session.ID)
}

func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, mapError(ErrInvalidToken)
	}
	session, err := s.tokens.Verify(token, s.now())
	if err != nil {
		return nil, mapError(err)
	}
	ok, err := s.sessions.Exists(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, mapError(ErrSessionRevoked)
	}
	return &domain.Principal{
		OperatorID:  session.OperatorID,
		Username:    session.Username,
		DisplayName: session.DisplayName,
		SessionID:   session.ID,
	}, nil
}

var _ ports.Service = (*Service)(nil)
