package ports

import (
	"context"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
)

// Service exposes operator use cases to adapters.
type Service interface {
	Register(ctx context.Context, username, displayName, password string) (*domain.Operator, error)
	Login(ctx context.Context, username, password string) (*domain.Session, error)
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a bearer token into the calling operator.
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}
