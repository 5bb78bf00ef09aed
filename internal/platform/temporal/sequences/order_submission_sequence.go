package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	orderactivities "github.com/Apurer/bakery-orders/internal/platform/temporal/activities/orders"
)

// SubmissionInput is the command the submission sequence persists.
type SubmissionInput struct {
	Order          *ordersdomain.Order
	IdempotencyKey string
	RequestHash    string
}

// RunOrderSubmissionSequence persists a new order, then records its idempotency key.
func RunOrderSubmissionSequence(ctx workflow.Context, input SubmissionInput) (*ordersdomain.Order, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order submission sequence started")
	persistOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        10 * time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{orderactivities.InvalidOrderErrorType},
		},
	}
	recordOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    5 * time.Second,
			MaximumAttempts:    3,
		},
	}

	var saved ordersdomain.Order
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, persistOptions), orderactivities.PersistOrderActivityName, input.Order).Get(ctx, &saved)
	if err != nil {
		logger.Error("order submission sequence failed", "error", err)
		return nil, err
	}
	logger.Info("order submission sequence persisted", "orderId", saved.ID)

	if input.IdempotencyKey != "" {
		record := orderactivities.RecordKeyInput{Key: input.IdempotencyKey, RequestHash: input.RequestHash, OrderID: saved.ID}
		if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, recordOptions), orderactivities.RecordIdempotencyKeyActivityName, record).Get(ctx, nil); err != nil {
			logger.Error("order submission sequence could not record key", "orderId", saved.ID, "error", err)
			return &saved, err
		}
	}
	return &saved, nil
}
