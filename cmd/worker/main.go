package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"gorm.io/gorm"

	ordersmemory "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/observability"
	orderspg "github.com/Apurer/bakery-orders/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/Apurer/bakery-orders/internal/domains/orders/application"
	ordersports "github.com/Apurer/bakery-orders/internal/domains/orders/ports"
	"github.com/Apurer/bakery-orders/internal/platform/migrations"
	platformobservability "github.com/Apurer/bakery-orders/internal/platform/observability"
	platformpostgres "github.com/Apurer/bakery-orders/internal/platform/postgres"
	platformtemporal "github.com/Apurer/bakery-orders/internal/platform/temporal"
	orderactivities "github.com/Apurer/bakery-orders/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/bakery-orders/internal/platform/temporal/workflows/orders"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()
	const serviceName = "bakery-orders-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, platformobservability.Options{
		ServiceName:  serviceName,
		Environment:  envOrDefault("APP_ENV", "local"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	})
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	db, cleanupDB := platformpostgres.ConnectOrFallback(ctx, os.Getenv("POSTGRES_DSN"), logger)
	defer cleanupDB()
	if err := migrations.Run(db); err != nil {
		logger.Error("failed to migrate schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	repo, catalog, idempotency := buildStores(db)

	// Clients of the API process are notified by the orchestrator once the workflow returns.
	orderService := ordersobs.New(
		ordersapp.NewService(repo, catalog),
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	activities := orderactivities.NewActivities(orderService, idempotency)

	namespace := envOrDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace)
	temporalClient, err := platformtemporal.Dial(platformtemporal.DialConfig{
		Address:   envOrDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		Namespace: namespace,
	}, instruments.Tracer("temporal-worker"), logger)
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, orderworkflows.OrderSubmissionTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(orderworkflows.OrderSubmissionWorkflow, workflow.RegisterOptions{Name: orderworkflows.OrderSubmissionWorkflowName})
	w.RegisterActivityWithOptions(activities.PersistOrder, activity.RegisterOptions{Name: orderactivities.PersistOrderActivityName})
	w.RegisterActivityWithOptions(activities.RecordIdempotencyKey, activity.RegisterOptions{Name: orderactivities.RecordIdempotencyKeyActivityName})

	logger.Info("worker listening", slog.String("taskQueue", orderworkflows.OrderSubmissionTaskQueue), slog.String("namespace", namespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}

func buildStores(db *gorm.DB) (ordersports.Repository, ordersports.ProductCatalog, ordersports.IdempotencyStore) {
	if db == nil {
		return ordersmemory.NewRepository(), ordersmemory.NewCatalog(ordersmemory.DefaultProducts()...), ordersmemory.NewIdempotencyStore()
	}
	return orderspg.NewRepository(db), orderspg.NewCatalog(db), orderspg.NewIdempotencyStore(db)
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
