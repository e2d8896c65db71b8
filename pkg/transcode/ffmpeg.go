package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const backendFFmpeg = "ffmpeg"

// ffmpegDemuxers maps source formats to ffmpeg input format names.
var ffmpegDemuxers = map[Format]string{
	FormatWebM: "matroska",
	FormatWAV:  "wav",
	FormatOgg:  "ogg",
	FormatMP3:  "mp3",
}

// ErrFFmpegNotFound is returned when the ffmpeg binary cannot be located.
var ErrFFmpegNotFound = errors.New("transcode: ffmpeg not found")

// FFmpeg decodes any container ffmpeg understands. Input is piped through
// stdin and raw PCM is read from stdout, so no temporary files are written.
type FFmpeg struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFmpeg creates an ffmpeg-backed transcoder.
func NewFFmpeg(opts ...Option) *FFmpeg {
	cfg := defaultConfig()
	cfg.apply(opts...)
	return &FFmpeg{
		path:    cfg.ffmpegPath,
		timeout: cfg.ffmpegTimeout,
		logger:  cfg.logger.With("component", "transcode.ffmpeg"),
	}
}

// Available reports whether the configured binary is on PATH.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.path)
	return err == nil
}

// Transcode runs ffmpeg over data and returns s16le PCM matching target.
func (f *FFmpeg) Transcode(ctx context.Context, data []byte, source Format, target Spec) ([]byte, error) {
	if source == FormatAuto {
		source = Detect(data)
	}
	if len(data) == 0 {
		return nil, decodeError(backendFFmpeg, source, ErrEmptyInput)
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if !f.Available() {
		return nil, decodeError(backendFFmpeg, source, ErrFFmpegNotFound)
	}

	runCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := f.buildArgs(source, target)

	//nolint:gosec // G204: path is operator configuration, not client input
	cmd := exec.CommandContext(runCtx, f.path, args...)
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, decodeError(backendFFmpeg, source, fmt.Errorf("timed out after %s", f.timeout))
		}
		return nil, decodeError(backendFFmpeg, source, fmt.Errorf("%w: %s", err, lastLine(stderr.String())))
	}

	if stdout.Len() == 0 {
		return nil, decodeError(backendFFmpeg, source, ErrNoAudio)
	}

	f.logger.Debug("transcoded audio",
		"format", source,
		"in_bytes", len(data),
		"out_bytes", stdout.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return stdout.Bytes(), nil
}

// buildArgs constructs ffmpeg arguments for pipe-to-pipe conversion.
func (f *FFmpeg) buildArgs(source Format, target Spec) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		// Fail on corrupt input instead of emitting partial audio.
		"-xerror",
	}
	if demuxer, ok := ffmpegDemuxers[source]; ok {
		args = append(args, "-f", demuxer)
	}
	args = append(args,
		"-i", "pipe:0",
		"-vn",
		"-ar", strconv.Itoa(target.SampleRate),
		"-ac", strconv.Itoa(target.Channels),
		"-acodec", "pcm_s16le",
		"-f", "s16le",
		"pipe:1",
	)
	return args
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

var _ Transcoder = (*FFmpeg)(nil)
