package api

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"

	operatorsapp "github.com/Apurer/bakery-orders/internal/domains/operators/application"
	"github.com/Apurer/bakery-orders/internal/platform/realtime"
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port        string
	PostgresDSN string
	// TimeZone is the bakery's zone; order days are cut at its midnight.
	TimeZone *time.Location

	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool

	JWTSecret  []byte
	SessionTTL time.Duration
	// SeedOperator is created on start when both fields are set.
	SeedUsername string
	SeedPassword string

	NATSURL     string
	NATSSubject string

	LogLevel     string
	TextLogs     bool
	Environment  string
	OTLPEndpoint string
	OTLPInsecure bool
}

// LoadConfig reads .env (if present) and the environment, applies defaults, and validates.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		JWTSecret:         []byte(strings.TrimSpace(os.Getenv("JWT_SECRET"))),
		SessionTTL:        operatorsapp.DefaultSessionTTL,
		SeedUsername:      strings.TrimSpace(os.Getenv("SEED_OPERATOR_USERNAME")),
		SeedPassword:      os.Getenv("SEED_OPERATOR_PASSWORD"),
		NATSURL:           strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSSubject:       envDefault("NATS_SUBJECT", realtime.DefaultSubject),
		LogLevel:          envDefault("LOG_LEVEL", "info"),
		TextLogs:          isTruthy(os.Getenv("LOG_TEXT")),
		Environment:       envDefault("APP_ENV", "local"),
		OTLPEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTLPInsecure:      isTruthy(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")),
	}

	loc, err := time.LoadLocation(envDefault("BAKERY_TIMEZONE", "Europe/Sofia"))
	if err != nil {
		return Config{}, fmt.Errorf("BAKERY_TIMEZONE: %w", err)
	}
	cfg.TimeZone = loc

	if raw := strings.TrimSpace(os.Getenv("SESSION_TTL_HOURS")); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return Config{}, errors.New("SESSION_TTL_HOURS must be a positive integer")
		}
		cfg.SessionTTL = time.Duration(hours) * time.Hour
	}
	if len(cfg.JWTSecret) == 0 {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if (cfg.SeedUsername == "") != (cfg.SeedPassword == "") {
		return Config{}, errors.New("SEED_OPERATOR_USERNAME and SEED_OPERATOR_PASSWORD must be set together")
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
