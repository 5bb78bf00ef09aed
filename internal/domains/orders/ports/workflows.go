package ports

import (
	"context"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

// CreateOrderInput is the durable create command. IdempotencyKey is optional.
type CreateOrderInput struct {
	Order          *domain.Order
	IdempotencyKey string
}

// WorkflowOrchestrator runs order creation either durably or inline.
type WorkflowOrchestrator interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
}
