package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-jarvis/internal/metrics"
	"github.com/teslashibe/go-jarvis/pkg/stt"
	"github.com/teslashibe/go-jarvis/pkg/transcode"
)

// DefaultStageTimeout bounds each stage attempt unless overridden.
const DefaultStageTimeout = 20 * time.Second

// Config holds orchestrator configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Delivery of overlapping utterances
	Policy      Policy
	MaxInFlight int // concurrent utterances per session under PolicyReorder

	// Stage timeouts. Stages missing from StageTimeouts use StageTimeout.
	StageTimeout    time.Duration
	StageTimeouts   map[Stage]time.Duration
	GreetingTimeout time.Duration

	// Audio handed to the recognizer
	PCM          transcode.Spec
	LanguageCode string

	// Clock drives the greeting's part of day.
	Clock func() time.Time

	// Observability
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Latency *LatencyCollector

	// OnTerminal, when set, observes every utterance that reaches
	// Delivered or Failed.
	OnTerminal func(Outcome)
}

// Option is a functional option for configuring the orchestrator.
type Option func(*Config)

// WithPolicy selects how overlapping utterances are delivered.
func WithPolicy(p Policy) Option {
	return func(c *Config) {
		c.Policy = p
	}
}

// WithMaxInFlight bounds concurrent utterances per session.
func WithMaxInFlight(n int) Option {
	return func(c *Config) {
		c.MaxInFlight = n
	}
}

// WithStageTimeout sets the timeout applied to every stage.
func WithStageTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.StageTimeout = d
	}
}

// WithTimeoutFor overrides the timeout of a single stage.
func WithTimeoutFor(stage Stage, d time.Duration) Option {
	return func(c *Config) {
		if c.StageTimeouts == nil {
			c.StageTimeouts = make(map[Stage]time.Duration)
		}
		c.StageTimeouts[stage] = d
	}
}

// WithGreetingTimeout bounds the greeting synthesis.
func WithGreetingTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.GreetingTimeout = d
	}
}

// WithPCM sets the PCM layout the transcoder produces for the recognizer.
func WithPCM(spec transcode.Spec) Option {
	return func(c *Config) {
		c.PCM = spec
	}
}

// WithLanguage sets the recognition language code.
func WithLanguage(code string) Option {
	return func(c *Config) {
		c.LanguageCode = code
	}
}

// WithClock replaces time.Now for greetings.
func WithClock(clock func() time.Time) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics records Prometheus metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithLatency shares a latency collector.
func WithLatency(l *LatencyCollector) Option {
	return func(c *Config) {
		c.Latency = l
	}
}

// WithOnTerminal registers an observer for finished utterances.
func WithOnTerminal(fn func(Outcome)) Option {
	return func(c *Config) {
		c.OnTerminal = fn
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Policy:          PolicyReorder,
		MaxInFlight:     4,
		StageTimeout:    DefaultStageTimeout,
		GreetingTimeout: DefaultStageTimeout,
		PCM:             transcode.DefaultSpec(),
		LanguageCode:    stt.DefaultSpec().LanguageCode,
		Clock:           time.Now,
		Logger:          slog.Default(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for errors. An empty policy is
// normalised to the default.
func (c *Config) Validate() error {
	policy, ok := ParsePolicy(string(c.Policy))
	if !ok {
		return fmt.Errorf("pipeline: unknown policy %q", c.Policy)
	}
	c.Policy = policy
	if c.MaxInFlight < 1 {
		return errors.New("pipeline: max in flight must be at least 1")
	}
	if c.StageTimeout <= 0 {
		return errors.New("pipeline: stage timeout must be positive")
	}
	if c.GreetingTimeout <= 0 {
		return errors.New("pipeline: greeting timeout must be positive")
	}
	for stage, d := range c.StageTimeouts {
		if d <= 0 {
			return fmt.Errorf("pipeline: %s timeout must be positive", stage)
		}
	}
	if err := c.PCM.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *Config) timeout(stage Stage) time.Duration {
	if d, ok := c.StageTimeouts[stage]; ok {
		return d
	}
	return c.StageTimeout
}

// recognitionSpec describes the transcoded PCM to the recognizer.
func (c *Config) recognitionSpec() stt.Spec {
	spec := stt.DefaultSpec()
	spec.SampleRate = c.PCM.SampleRate
	spec.Channels = c.PCM.Channels
	spec.LanguageCode = c.LanguageCode
	return spec
}
