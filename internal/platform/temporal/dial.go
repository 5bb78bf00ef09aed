// Package temporal connects processes to the Temporal cluster that runs durable order submission.
package temporal

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
)

// ErrDisabled is returned by Dial when Temporal is switched off by configuration.
var ErrDisabled = errors.New("temporal disabled by configuration")

type DialConfig struct {
	Address   string
	Namespace string
	Disabled  bool
}

// Dial opens a client with OpenTelemetry tracing and slog-backed logging.
func Dial(cfg DialConfig, tracer trace.Tracer, logger *slog.Logger) (client.Client, error) {
	if cfg.Disabled {
		return nil, ErrDisabled
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{Tracer: tracer})
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
	}
	if options.HostPort == "" {
		options.HostPort = client.DefaultHostPort
	}
	if options.Namespace == "" {
		options.Namespace = client.DefaultNamespace
	}
	if logger != nil {
		options.Logger = workerlog.NewStructuredLogger(logger)
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}
