package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	operatordomain "github.com/Apurer/bakery-orders/internal/domains/operators/domain"
	operatorports "github.com/Apurer/bakery-orders/internal/domains/operators/ports"
)

const tracerName = "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/observability/service"

// Service decorates the operator service with tracing, logging, and metrics.
type Service struct {
	inner   operatorports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.metrics = newServiceMetrics(m) }
}

// New wraps the core operator service.
func New(inner operatorports.Service, opts ...Option) operatorports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
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
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

func (s *Service) Register(ctx context.Context, username, displayName, password string) (*operatordomain.Operator, error) {
	ctx, span := s.tracer.Start(ctx, "OperatorService.Register", trace.WithAttributes(attribute.String("operator.username", username)))
	defer span.End()
	op, err := s.inner.Register(ctx, username, displayName, password)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to register operator", slog.String("username", username))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "operator registered", slog.String("username", op.Username), slog.Int64("operator.id", op.ID))
	return op, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*operatordomain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "OperatorService.Login", trace.WithAttributes(attribute.String("operator.username", username)))
	defer span.End()
	session, err := s.inner.Login(ctx, username, password)
	if err != nil {
		s.metrics.recordLogin(ctx, false)
		return nil, s.handleError(ctx, span, err, "login failed", slog.String("username", username))
	}
	s.metrics.recordLogin(ctx, true)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "operator logged in", slog.String("username", session.Username), slog.String("session.id", session.ID))
	return session, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "OperatorService.Logout")
	defer span.End()
	if err := s.inner.Logout(ctx, token); err != nil {
		return s.handleError(ctx, span, err, "logout failed")
	}
	return nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (*operatordomain.Principal, error) {
	ctx, span := s.tracer.Start(ctx, "OperatorService.Authenticate")
	defer span.End()
	principal, err := s.inner.Authenticate(ctx, token)
	if err != nil {
		s.metrics.recordRejected(ctx)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("operator.id", principal.OperatorID))
	return principal, nil
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
	return err
}

type serviceMetrics struct {
	logins   metric.Int64Counter
	rejected metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	logins, _ := m.Int64Counter("operators.service.logins", metric.WithDescription("Login attempts by outcome"))
	rejected, _ := m.Int64Counter("operators.service.rejected_tokens", metric.WithDescription("Requests carrying an unusable session token"))
	return serviceMetrics{logins: logins, rejected: rejected}
}

func (m serviceMetrics) recordLogin(ctx context.Context, ok bool) {
	if m.logins != nil {
		m.logins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("login.success", ok)))
	}
}

func (m serviceMetrics) recordRejected(ctx context.Context) {
	if m.rejected != nil {
		m.rejected.Add(ctx, 1)
	}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ operatorports.Service = (*Service)(nil)
