// Package observability provides structured logging with trace-context
// injection, OpenTelemetry tracer/meter initialization, and the run metrics
// of the history engine.
package observability

import "log/slog"

// Default shutdown timeout in seconds for flushing telemetry.
const defaultShutdownTimeoutSec = 10

// Config controls telemetry and logging initialization.
type Config struct {
	// Service is the service.name resource attribute.
	Service string

	// Env is the deployment environment attribute; empty omits it.
	Env string

	// OTLPEndpoint is the OTLP gRPC collector endpoint. Empty disables
	// export entirely: no-op providers with zero overhead.
	OTLPEndpoint string

	// PrometheusListen is the address for the /metrics HTTP listener.
	// Empty disables the Prometheus exporter.
	PrometheusListen string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFormat is "text" or "json".
	LogFormat string

	// ShutdownTimeoutSec bounds the telemetry flush on shutdown.
	ShutdownTimeoutSec int
}

// slogLevel maps the configured level name to a slog.Level.
func (c Config) slogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
