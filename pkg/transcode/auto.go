package transcode

import (
	"context"
	"log/slog"
)

// Auto routes each buffer to the native decoder when it can handle the
// container and to ffmpeg otherwise.
type Auto struct {
	native *Native
	ffmpeg *FFmpeg
	logger *slog.Logger
}

// NewAuto creates a transcoder that prefers in-process decoding.
func NewAuto(opts ...Option) *Auto {
	cfg := defaultConfig()
	cfg.apply(opts...)
	return &Auto{
		native: NewNative(opts...),
		ffmpeg: NewFFmpeg(opts...),
		logger: cfg.logger.With("component", "transcode.auto"),
	}
}

// Transcode picks a backend from the declared or sniffed format.
func (a *Auto) Transcode(ctx context.Context, data []byte, source Format, target Spec) ([]byte, error) {
	format := source
	if format == FormatAuto {
		format = Detect(data)
	}

	if a.native.Supports(format) {
		return a.native.Transcode(ctx, data, format, target)
	}

	a.logger.Debug("falling back to ffmpeg", "format", format)
	return a.ffmpeg.Transcode(ctx, data, format, target)
}

// New builds a transcoder by backend name: "native", "ffmpeg" or "auto".
func New(backend string, opts ...Option) Transcoder {
	switch backend {
	case "native":
		return NewNative(opts...)
	case "ffmpeg":
		return NewFFmpeg(opts...)
	default:
		return NewAuto(opts...)
	}
}

var _ Transcoder = (*Auto)(nil)
