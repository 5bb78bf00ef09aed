package observability

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	ordersdomain "github.com/Apurer/bakery-orders/internal/domains/orders/domain"
	ordersports "github.com/Apurer/bakery-orders/internal/domains/orders/ports"
)

const tracerName = "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/observability/service"

// Service decorates the orders service with tracing, logging, and metrics.
type Service struct {
	inner   ordersports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core orders service.
func New(inner ordersports.Service, opts ...Option) ordersports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, order *ordersdomain.Order) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.CreateOrder",
		trace.WithAttributes(attribute.Int("order.lines", len(order.Lines))))
	defer span.End()

	s.logInfo(ctx, "creating order", slog.Int("order.lines", len(order.Lines)), slog.Time("order.pickup_at", order.PickupAt))
	result, err := s.inner.CreateOrder(ctx, order)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create order")
	}
	span.SetAttributes(attribute.Int64("order.id", result.ID))
	s.metrics.recordSaved(ctx, ordersdomain.ChangeCreated)
	s.logInfo(ctx, "order created", slog.Int64("order.id", result.ID))
	return result, nil
}

func (s *Service) UpdateOrder(ctx context.Context, order *ordersdomain.Order) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.UpdateOrder", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	s.logInfo(ctx, "updating order", slog.Int64("order.id", order.ID))
	result, err := s.inner.UpdateOrder(ctx, order)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update order", slog.Int64("order.id", order.ID))
	}
	s.metrics.recordSaved(ctx, ordersdomain.ChangeUpdated)
	s.logInfo(ctx, "order updated", slog.Int64("order.id", result.ID))
	return result, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.GetOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := s.inner.GetOrder(ctx, id)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.Int64("order.id", id))
	}
	return result, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "OrdersService.DeleteOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	s.logInfo(ctx, "deleting order", slog.Int64("order.id", id))
	if err := s.inner.DeleteOrder(ctx, id); err != nil {
		return s.handleError(ctx, span, err, "failed to delete order", slog.Int64("order.id", id))
	}
	s.metrics.recordDeleted(ctx)
	s.logInfo(ctx, "order deleted", slog.Int64("order.id", id))
	return nil
}

func (s *Service) UpdateLineProgress(ctx context.Context, orderID, lineID int64, progress ordersports.LineProgress) (*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.UpdateLineProgress",
		trace.WithAttributes(attribute.Int64("order.id", orderID), attribute.Int64("order.line_id", lineID)))
	defer span.End()

	result, err := s.inner.UpdateLineProgress(ctx, orderID, lineID, progress)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update line progress",
			slog.Int64("order.id", orderID), slog.Int64("order.line_id", lineID))
	}
	s.logInfo(ctx, "line progress updated", slog.Int64("order.id", orderID), slog.Int64("order.line_id", lineID))
	return result, nil
}

func (s *Service) OrdersForDay(ctx context.Context, day time.Time) ([]*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.OrdersForDay", trace.WithAttributes(attribute.String("order.day", day.Format(time.DateOnly))))
	defer span.End()

	result, err := s.inner.OrdersForDay(ctx, day)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list orders for day", slog.String("order.day", day.Format(time.DateOnly)))
	}
	span.SetAttributes(attribute.Int("order.count", len(result)))
	return result, nil
}

func (s *Service) UpcomingByDay(ctx context.Context, since time.Time) ([][]*ordersdomain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.UpcomingByDay")
	defer span.End()

	result, err := s.inner.UpcomingByDay(ctx, since)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list upcoming orders")
	}
	span.SetAttributes(attribute.Int("order.days", len(result)))
	return result, nil
}

func (s *Service) Products(ctx context.Context) ([]ordersdomain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "OrdersService.Products")
	defer span.End()

	result, err := s.inner.Products(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list products")
	}
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	ordersSaved   metric.Int64Counter
	ordersDeleted metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	ordersSaved, _ := m.Int64Counter("orders.service.orders_saved", metric.WithDescription("Number of orders created or updated"))
	ordersDeleted, _ := m.Int64Counter("orders.service.orders_deleted", metric.WithDescription("Number of orders deleted"))
	return serviceMetrics{ordersSaved: ordersSaved, ordersDeleted: ordersDeleted}
}

func (m serviceMetrics) recordSaved(ctx context.Context, kind ordersdomain.ChangeKind) {
	if m.ordersSaved != nil {
		m.ordersSaved.Add(ctx, 1, metric.WithAttributes(attribute.String("order.change", string(kind))))
	}
}

func (m serviceMetrics) recordDeleted(ctx context.Context) {
	if m.ordersDeleted != nil {
		m.ordersDeleted.Add(ctx, 1)
	}
}

var _ ordersports.Service = (*Service)(nil)
