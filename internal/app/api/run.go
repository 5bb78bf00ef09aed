package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	bakeryserver "github.com/Apurer/bakery-orders/go"
	operatorsmemory "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/memory"
	operatorsobs "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/observability"
	operatorspg "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/persistence/postgres"
	operatorsapp "github.com/Apurer/bakery-orders/internal/domains/operators/application"
	operatorsports "github.com/Apurer/bakery-orders/internal/domains/operators/ports"
	ordersmemory "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/observability"
	orderspg "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/persistence/postgres"
	ordersworkflows "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/Apurer/bakery-orders/internal/domains/orders/application"
	ordersports "github.com/Apurer/bakery-orders/internal/domains/orders/ports"
	"github.com/Apurer/bakery-orders/internal/platform/migrations"
	platformobservability "github.com/Apurer/bakery-orders/internal/platform/observability"
	platformpostgres "github.com/Apurer/bakery-orders/internal/platform/postgres"
	"github.com/Apurer/bakery-orders/internal/platform/realtime"
	platformtemporal "github.com/Apurer/bakery-orders/internal/platform/temporal"
)

const serviceName = "bakery-orders-api"

// Run boots the bakery orders HTTP API with observability, repositories, the sync hub, and workflows wired.
// It returns when ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg Config) error {
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.Options{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		LogLevel:     cfg.LogLevel,
		OTLPEndpoint: cfg.OTLPEndpoint,
		OTLPInsecure: cfg.OTLPInsecure,
		TextLogs:     cfg.TextLogs,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	db, cleanupDB := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	defer cleanupDB()
	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	hub := realtime.NewHub(realtime.WithLogger(logger))
	defer hub.Close()
	attachRelay(cfg, hub, logger)

	stores, err := buildStores(ctx, db)
	if err != nil {
		return err
	}

	orderService := ordersobs.New(
		ordersapp.NewService(stores.orders, stores.catalog, ordersapp.WithNotifier(hub)),
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	var orderWorkflows ordersports.WorkflowOrchestrator = ordersworkflows.NewInlineOrderWorkflows(orderService, stores.idempotency)
	temporalClient, err := platformtemporal.Dial(platformtemporal.DialConfig{
		Address:   cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Disabled:  cfg.TemporalDisabled,
	}, instruments.Tracer("temporal-client"), logger)
	if err != nil {
		logger.Warn("Temporal workflows unavailable, creating orders inline", slog.String("error", err.Error()))
	} else {
		defer temporalClient.Close()
		orderWorkflows = ordersworkflows.NewTemporalOrderWorkflows(temporalClient,
			ordersworkflows.WithCreatedNotifier(hub),
			ordersworkflows.WithIdempotencyReplay(stores.idempotency, orderService))
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	issuer, err := operatorsapp.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return err
	}
	operatorService := operatorsobs.New(
		operatorsapp.NewService(stores.operators, stores.sessions, issuer),
		operatorsobs.WithLogger(logger),
		operatorsobs.WithTracer(instruments.Tracer("internal.operators.application")),
		operatorsobs.WithMeter(instruments.Meter("internal.operators.application")),
	)
	if cfg.SeedUsername != "" {
		if _, err := operatorService.Register(ctx, cfg.SeedUsername, "", cfg.SeedPassword); err != nil {
			return fmt.Errorf("failed to seed operator: %w", err)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	router = bakeryserver.NewRouterWithGinEngine(router, bakeryserver.ApiHandleFunctions{
		OrdersAPI:    bakeryserver.NewOrdersAPI(orderService, orderWorkflows, bakeryserver.WithLocation(cfg.TimeZone)),
		OperatorsAPI: bakeryserver.NewOperatorsAPI(operatorService),
		EventsAPI:    bakeryserver.NewEventsAPI(hub),
	})

	server := &http.Server{Addr: cfg.Addr(), Handler: router, ReadHeaderTimeout: 10 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("bakery orders API listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("bakery orders API exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

type stores struct {
	orders      ordersports.Repository
	catalog     ordersports.ProductCatalog
	idempotency ordersports.IdempotencyStore
	operators   operatorsports.Repository
	sessions    operatorsports.SessionStore
}

// buildStores selects PostgreSQL adapters when db is set and in-memory ones otherwise.
func buildStores(ctx context.Context, db *gorm.DB) (stores, error) {
	if db == nil {
		return stores{
			orders:      ordersmemory.NewRepository(),
			catalog:     ordersmemory.NewCatalog(ordersmemory.DefaultProducts()...),
			idempotency: ordersmemory.NewIdempotencyStore(),
			operators:   operatorsmemory.NewRepository(),
			sessions:    operatorsmemory.NewSessionStore(),
		}, nil
	}
	catalog := orderspg.NewCatalog(db)
	existing, err := catalog.List(ctx)
	if err != nil {
		return stores{}, err
	}
	if len(existing) == 0 {
		if err := catalog.Seed(ctx, ordersmemory.DefaultProducts()); err != nil {
			return stores{}, fmt.Errorf("failed to seed product catalog: %w", err)
		}
	}
	return stores{
		orders:      orderspg.NewRepository(db),
		catalog:     catalog,
		idempotency: orderspg.NewIdempotencyStore(db),
		operators:   operatorspg.NewRepository(db),
		sessions:    operatorspg.NewSessionStore(db),
	}, nil
}

func attachRelay(cfg Config, hub *realtime.Hub, logger *slog.Logger) {
	if cfg.NATSURL == "" {
		logger.Info("NATS_URL not set, order changes stay within this instance")
		return
	}
	relay, err := realtime.ConnectNATS(cfg.NATSURL, cfg.NATSSubject, logger)
	if err != nil {
		logger.Warn("failed to connect NATS relay", slog.String("error", err.Error()))
		return
	}
	if err := hub.AttachRelay(relay); err != nil {
		logger.Warn("failed to subscribe NATS relay", slog.String("error", err.Error()))
		relay.Close()
		return
	}
	logger.Info("NATS relay attached", slog.String("subject", cfg.NATSSubject))
}
