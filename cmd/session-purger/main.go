package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	operatorspg "github.com/Apurer/bakery-orders/internal/domains/operators/adapters/persistence/postgres"
	platformobservability "github.com/Apurer/bakery-orders/internal/platform/observability"
	platformpostgres "github.com/Apurer/bakery-orders/internal/platform/postgres"
)

func main() {
	_ = godotenv.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := platformobservability.NewLogger(platformobservability.Options{
		ServiceName: "bakery-session-purger",
		LogLevel:    os.Getenv("LOG_LEVEL"),
		TextLogs:    true,
	})
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, os.Getenv("POSTGRES_DSN"), logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot purge sessions")
	}

	purged, err := operatorspg.NewSessionStore(db).PurgeExpired(ctx)
	if err != nil {
		log.Fatalf("failed to purge sessions: %v", err)
	}
	logger.Info("session purge completed", slog.Int64("purged", purged))
}
