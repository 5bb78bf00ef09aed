package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	ordersapp "github.com/Apurer/bakery-orders/internal/domains/orders/application"
	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	ordersports "github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

const (
	// PersistOrderActivityName stores a new order through the application service.
	PersistOrderActivityName = "orders.activities.PersistOrder"
	// RecordIdempotencyKeyActivityName remembers which order a create key produced.
	RecordIdempotencyKeyActivityName = "orders.activities.RecordIdempotencyKey"

	// InvalidOrderErrorType tags validation failures so they are not retried.
	InvalidOrderErrorType = "InvalidOrder"
)

// RecordKeyInput binds a create key and request fingerprint to the persisted order.
type RecordKeyInput struct {
	Key         string
	RequestHash string
	OrderID     int64
}

// Activities groups the activities operating on the orders bounded context.
type Activities struct {
	service     ordersports.Service
	idempotency ordersports.IdempotencyStore
}

// NewActivities wires orders collaborators into the Temporal activities bundle.
// idempotency may be nil when keys are not tracked outside Temporal.
func NewActivities(service ordersports.Service, idempotency ordersports.IdempotencyStore) *Activities {
	return &Activities{service: service, idempotency: idempotency}
}

// PersistOrder stores a new order and returns the saved aggregate.
func (a *Activities) PersistOrder(ctx context.Context, order *ordersdomain.Order) (*ordersdomain.Order, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("order persist activity not initialized")
		return nil, errors.New("order persist activity not initialized")
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	logger.Info("PersistOrder activity started", "lines", len(order.Lines))
	saved, err := a.service.CreateOrder(ctx, order)
	if err != nil {
		logger.Error("PersistOrder activity failed", "error", err)
		if errors.Is(err, ordersapp.ErrInvalidInput) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), InvalidOrderErrorType, err)
		}
		return nil, err
	}
	logger.Info("PersistOrder activity completed", "orderId", saved.ID)
	return saved, nil
}

// RecordIdempotencyKey stores the key so inline retries after a worker outage replay too.
func (a *Activities) RecordIdempotencyKey(ctx context.Context, input RecordKeyInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.idempotency == nil {
		logger.Info("idempotency store not configured; skipping", "orderId", input.OrderID)
		return nil
	}
	_, err := a.idempotency.Save(ctx, ordersports.IdempotencyRecord{
		Key:         input.Key,
		RequestHash: input.RequestHash,
		OrderID:     input.OrderID,
	})
	if err != nil {
		logger.Error("RecordIdempotencyKey failed", "orderId", input.OrderID, "error", err)
		return err
	}
	return nil
}
