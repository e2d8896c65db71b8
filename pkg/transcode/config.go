package transcode

import (
	"log/slog"
	"time"
)

type config struct {
	ffmpegPath    string
	ffmpegTimeout time.Duration
	logger        *slog.Logger
}

// Option configures a transcoder.
type Option func(*config)

// WithFFmpegPath sets the ffmpeg binary used by the FFmpeg backend.
func WithFFmpegPath(path string) Option {
	return func(c *config) { c.ffmpegPath = path }
}

// WithFFmpegTimeout bounds a single ffmpeg invocation.
func WithFFmpegTimeout(d time.Duration) Option {
	return func(c *config) { c.ffmpegTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

func defaultConfig() *config {
	return &config{
		ffmpegPath:    "ffmpeg",
		ffmpegTimeout: 30 * time.Second,
		logger:        slog.Default(),
	}
}

func (c *config) apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
