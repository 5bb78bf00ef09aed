package ports

import (
	"context"

	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
)

// ChangeNotifier announces persisted order changes to connected clients.
type ChangeNotifier interface {
	OrdersChanged(ctx context.Context, event domain.OrdersChanged)
}

// NoopNotifier is a safe default when nothing listens for changes.
var NoopNotifier ChangeNotifier = noopNotifier{}

type noopNotifier struct{}

func (noopNotifier) OrdersChanged(context.Context, domain.OrdersChanged) {}
