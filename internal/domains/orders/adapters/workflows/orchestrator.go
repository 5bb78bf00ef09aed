package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/bakery-orders/internal/domains/orders/application"
	"github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	"github.com/Apurer/bakery-orders/internal/domains/orders/ports"
	orderactivities "github.com/Apurer/bakery-orders/internal/platform/temporal/activities/orders"
	"github.com/Apurer/bakery-orders/internal/platform/temporal/sequences"
	orderworkflows "github.com/Apurer/bakery-orders/internal/platform/temporal/workflows/orders"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalOrderWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineOrderWorkflows)(nil)
)

// TemporalOrderWorkflows starts order submission workflows on a Temporal cluster.
type TemporalOrderWorkflows struct {
	client      client.Client
	taskQueue   string
	notifier    ports.ChangeNotifier
	idempotency ports.IdempotencyStore
	orders      OrderReader
}

// OrderReader loads the order an earlier submission created.
type OrderReader interface {
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
}

type TemporalOption func(*TemporalOrderWorkflows)

// WithIdempotencyReplay answers retried keys from the store the worker records into,
// without starting a workflow. Both arguments are required.
func WithIdempotencyReplay(store ports.IdempotencyStore, orders OrderReader) TemporalOption {
	return func(o *TemporalOrderWorkflows) {
		if store != nil && orders != nil {
			o.idempotency, o.orders = store, orders
		}
	}
}

// WithCreatedNotifier announces orders persisted by the worker to clients of this process.
func WithCreatedNotifier(n ports.ChangeNotifier) TemporalOption {
	return func(o *TemporalOrderWorkflows) {
		if n != nil {
			o.notifier = n
		}
	}
}

// NewTemporalOrderWorkflows submits on the order submission task queue of c.
func NewTemporalOrderWorkflows(c client.Client, opts ...TemporalOption) *TemporalOrderWorkflows {
	o := &TemporalOrderWorkflows{client: c, taskQueue: orderworkflows.OrderSubmissionTaskQueue, notifier: ports.NoopNotifier}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateOrder runs the submission workflow and waits for the saved order.
// A known idempotency key replays the stored order, or fails with ErrIdempotencyConflict
// when the payload differs. Workflow ids derived from a key are never reused, so a retry
// racing the first run attaches to it instead of saving a second order.
func (o *TemporalOrderWorkflows) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal order workflows not configured")
	}
	if input.Order == nil {
		return nil, errors.New("order is nil")
	}
	hash, err := application.FingerprintOrder(input.Order)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if replayed, err := o.replay(ctx, key, hash); replayed != nil || err != nil {
		return replayed, err
	}

	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildSubmissionWorkflowID(input, traceComponent)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	if key != "" {
		options.WorkflowIDReusePolicy = enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE
	}
	command := sequences.SubmissionInput{
		Order:          input.Order,
		IdempotencyKey: key,
		RequestHash:    hash,
	}
	started := true
	run, err := o.client.ExecuteWorkflow(ctx, options, orderworkflows.OrderSubmissionWorkflow,
		orderworkflows.OrderSubmissionWorkflowInput{Command: command, TraceID: traceComponent})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) || key == "" {
			return nil, err
		}
		started = false
		run = o.client.GetWorkflow(ctx, workflowID, "")
	}
	var saved domain.Order
	if err := run.Get(ctx, &saved); err != nil {
		return nil, unwrapWorkflowError(err)
	}
	if started {
		o.notifier.OrdersChanged(ctx, domain.OrdersChanged{OrderID: saved.ID, Kind: domain.ChangeCreated, Timestamp: time.Now().UTC()})
	}
	return &saved, nil
}

func (o *TemporalOrderWorkflows) replay(ctx context.Context, key, hash string) (*domain.Order, error) {
	if key == "" || o.idempotency == nil {
		return nil, nil
	}
	existing, err := o.idempotency.Get(ctx, key)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.RequestHash != hash {
		return nil, ports.ErrIdempotencyConflict
	}
	return o.orders.GetOrder(ctx, existing.OrderID)
}

// InlineOrderWorkflows executes creation directly without Temporal, for tests and dev fallbacks.
type InlineOrderWorkflows struct {
	service     ports.Service
	idempotency ports.IdempotencyStore
}

// NewInlineOrderWorkflows wraps the orders service; idempotency may be nil.
func NewInlineOrderWorkflows(service ports.Service, idempotency ports.IdempotencyStore) *InlineOrderWorkflows {
	return &InlineOrderWorkflows{service: service, idempotency: idempotency}
}

// CreateOrder persists through the service, replaying earlier results for a known key.
func (o *InlineOrderWorkflows) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline order workflows not configured")
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" || o.idempotency == nil || input.Order == nil {
		return o.service.CreateOrder(ctx, input.Order)
	}
	hash, err := application.FingerprintOrder(input.Order)
	if err != nil {
		return nil, err
	}
	existing, err := o.idempotency.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.RequestHash != hash {
			return nil, ports.ErrIdempotencyConflict
		}
		return o.service.GetOrder(ctx, existing.OrderID)
	}
	saved, err := o.service.CreateOrder(ctx, input.Order)
	if err != nil {
		return nil, err
	}
	if _, err := o.idempotency.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: hash, OrderID: saved.ID}); err != nil {
		return nil, err
	}
	return saved, nil
}

func unwrapWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() == orderactivities.InvalidOrderErrorType {
		return fmt.Errorf("%w: %s", application.ErrInvalidInput, appErr.Message())
	}
	return err
}

func buildSubmissionWorkflowID(input ports.CreateOrderInput, traceComponent string) string {
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		return fmt.Sprintf("order-submission-idem-%s", hashIdempotencyKey(key))
	}
	return fmt.Sprintf("order-submission-%d-%s", time.Now().UnixNano(), traceComponent)
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func workflowTraceComponent(ctx context.Context) string {
	if traceID := workflowTraceID(ctx); traceID != "" {
		return traceID
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
