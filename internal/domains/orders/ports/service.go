package ports

import (
	"context"
	"time"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

// LineProgress carries a fulfillment toggle for one order line; nil fields are left unchanged.
type LineProgress struct {
	InProgress *bool
	Complete   *bool
}

// Service exposes order use cases to adapters.
type Service interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	UpdateLineProgress(ctx context.Context, orderID, lineID int64, progress LineProgress) (*domain.Order, error)
	// OrdersForDay returns the orders picked up on the calendar day of day.
	OrdersForDay(ctx context.Context, day time.Time) ([]*domain.Order, error)
	// UpcomingByDay groups orders picked up from the day of since onward, one group per day.
	UpcomingByDay(ctx context.Context, since time.Time) ([][]*domain.Order, error)
	Products(ctx context.Context) ([]domain.Product, error)
}
