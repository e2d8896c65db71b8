package inference

import (
	"log/slog"
	"time"
)

// Config holds provider configuration. Zero request fields in a
// ChatRequest fall back to MaxTokens and Temperature here.
type Config struct {
	BaseURL string
	APIKey  string // optional for local servers such as Ollama
	Model   string

	MaxTokens   int
	Temperature float64

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration // multiplied by the attempt number

	Logger *slog.Logger
}

// Option configures a provider.
type Option func(*Config)

// WithBaseURL sets the API base URL, e.g. "http://localhost:11434/v1".
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithTimeout bounds each HTTP round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry retries 429 and 5xx answers up to maxRetries times.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig targets OpenAI with short, conversational replies.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		MaxTokens:   256,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
		MaxRetries:  2,
		RetryDelay:  200 * time.Millisecond,
		Logger:      slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Model == "" {
		return ErrNoModel
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}
