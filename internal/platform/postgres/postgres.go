package postgres

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

var ErrEmptyDSN = errors.New("postgres DSN is empty")

// Connect opens the orders database and waits for it to answer a ping.
// The ping is retried with exponential backoff for up to wait; a zero wait pings once.
func Connect(ctx context.Context, dsn string, wait time.Duration) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrEmptyDSN
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = wait
	var retry backoff.BackOff = policy
	if wait <= 0 {
		retry = &backoff.StopBackOff{}
	}
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return sqlDB.PingContext(pingCtx)
	}
	if err := backoff.Retry(ping, backoff.WithContext(retry, ctx)); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// ConnectOrFallback returns the database plus a cleanup function, or nil when dsn is
// empty or unreachable so callers fall back to in-memory adapters.
func ConnectOrFallback(ctx context.Context, dsn string, logger *slog.Logger) (*gorm.DB, func()) {
	noop := func() {}
	if strings.TrimSpace(dsn) == "" {
		logger.Warn("POSTGRES_DSN not set, using in-memory repositories")
		return nil, noop
	}
	db, err := Connect(ctx, dsn, 20*time.Second)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "postgres unreachable, using in-memory repositories", slog.String("error", err.Error()))
		return nil, noop
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "postgres handle unavailable, using in-memory repositories", slog.String("error", err.Error()))
		return nil, noop
	}
	logger.Info("postgres connection established")
	return db, func() { _ = sqlDB.Close() }
}
