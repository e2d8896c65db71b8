package stt

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds STT provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Credentials
	CredentialsFile string
	CredentialsJSON []byte
	APIKey          string

	// Endpoint overrides the service base URL.
	Endpoint string

	// HTTPClient bypasses credential resolution entirely.
	HTTPClient *http.Client

	// Model selects a recognition model ("latest_short", "command_and_search").
	Model string

	Timeout time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring STT providers.
type Option func(*Config)

// WithCredentialsFile reads a service account key from path.
func WithCredentialsFile(path string) Option {
	return func(c *Config) {
		c.CredentialsFile = path
	}
}

// WithCredentialsJSON uses an in-memory service account key.
func WithCredentialsJSON(data []byte) Option {
	return func(c *Config) {
		c.CredentialsJSON = data
	}
}

// WithAPIKey authenticates with an API key instead of a service account.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEndpoint overrides the default API base URL.
func WithEndpoint(url string) Option {
	return func(c *Config) {
		c.Endpoint = url
	}
}

// WithHTTPClient sets a preauthorized HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithModel sets the recognition model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout bounds each recognition request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
		Logger:  slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
