package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

var ErrNotFound = errors.New("order not found")

// Repository persists orders.
type Repository interface {
	Save(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Delete(ctx context.Context, id int64) error
	// ListPickups returns orders with a pickup in [from, to), ordered by pickup time.
	// A zero to means no upper bound.
	ListPickups(ctx context.Context, from, to time.Time) ([]*domain.Order, error)
}

// ProductCatalog exposes the products order lines can reference.
type ProductCatalog interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}
