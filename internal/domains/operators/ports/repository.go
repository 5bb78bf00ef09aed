package ports

import (
	"context"
	"errors"

	"github.com/Apurer/bakery-orders/internal/domains/operators/domain"
)

var (
	ErrNotFound           = errors.New("operator not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Repository persists operator accounts keyed by username.
type Repository interface {
	Save(ctx context.Context, operator *domain.Operator) (*domain.Operator, error)
	GetByUsername(ctx context.Context, username string) (*domain.Operator, error)
	List(ctx context.Context) ([]*domain.Operator, error)
}
