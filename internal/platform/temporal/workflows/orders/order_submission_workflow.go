package orders

import (
	"go.temporal.io/sdk/workflow"

	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	"github.com/Apurer/bakery-orders/internal/platform/temporal/sequences"
)

const (
	// OrderSubmissionWorkflowName is the public identifier for registering the workflow.
	OrderSubmissionWorkflowName = "orders.workflows.Submission"
	// OrderSubmissionTaskQueue is the queue consumed by the worker processing order workflows.
	OrderSubmissionTaskQueue = "ORDER_SUBMISSION"
)

// OrderSubmissionWorkflowInput carries a create command and the caller's trace id.
type OrderSubmissionWorkflowInput struct {
	Command sequences.SubmissionInput
	TraceID string
}

// OrderSubmissionWorkflow durably creates an order.
func OrderSubmissionWorkflow(ctx workflow.Context, input OrderSubmissionWorkflowInput) (*ordersdomain.Order, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("OrderSubmissionWorkflow started", withTraceID(input.TraceID)...)
	saved, err := sequences.RunOrderSubmissionSequence(ctx, input.Command)
	if err != nil {
		logger.Error("OrderSubmissionWorkflow failed", withTraceID(input.TraceID, "error", err)...)
		return nil, err
	}
	logger.Info("OrderSubmissionWorkflow completed", withTraceID(input.TraceID, "orderId", saved.ID)...)
	return saved, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
