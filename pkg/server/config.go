package server

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teslashibe/go-jarvis/internal/metrics"
)

// HealthCheck probes one collaborator for /health?deep=1.
type HealthCheck func(ctx context.Context) error

// Config holds server configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	Version        string
	AllowedOrigins []string
	Debug          bool

	// SendBuffer bounds queued outbound messages per connection.
	SendBuffer int

	// MaxMessageSize bounds one inbound websocket message.
	MaxMessageSize int64

	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Checks map[string]HealthCheck
}

// Option is a functional option for configuring the server.
type Option func(*Config)

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(c *Config) {
		c.Version = v
	}
}

// WithAllowedOrigins sets the CORS origin list.
func WithAllowedOrigins(origins ...string) Option {
	return func(c *Config) {
		c.AllowedOrigins = origins
	}
}

// WithDebug enables request logging.
func WithDebug(debug bool) Option {
	return func(c *Config) {
		c.Debug = debug
	}
}

// WithSendBuffer sets the per-connection outbound queue length.
func WithSendBuffer(n int) Option {
	return func(c *Config) {
		c.SendBuffer = n
	}
}

// WithMaxMessageSize sets the inbound websocket message limit.
func WithMaxMessageSize(n int64) Option {
	return func(c *Config) {
		c.MaxMessageSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics records transport metrics into m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(c *Config) {
		c.Metrics = m
		c.Gatherer = g
	}
}

// WithHealthCheck adds a collaborator probe to /health?deep=1.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(c *Config) {
		if c.Checks == nil {
			c.Checks = make(map[string]HealthCheck)
		}
		c.Checks[name] = check
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:        "dev",
		AllowedOrigins: []string{"http://localhost:3000"},
		SendBuffer:     256,
		MaxMessageSize: 16 << 20, // one recorded utterance, base64 encoded
		Logger:         slog.Default(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
