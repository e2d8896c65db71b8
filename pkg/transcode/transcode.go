// Package transcode turns a compressed, client-streamed audio container into
// fixed-format linear PCM suitable for speech recognition.
//
// Every backend works on an in-memory buffer and writes nothing to shared
// storage. Input that is not a complete, decodable stream fails with a
// *DecodeError.
//
// Example usage:
//
//	tc := transcode.NewAuto()
//	pcm, err := tc.Transcode(ctx, webmBytes, transcode.FormatAuto, transcode.DefaultSpec())
//	var decErr *transcode.DecodeError
//	if errors.As(err, &decErr) {
//	    // malformed or truncated audio
//	}
package transcode

import (
	"context"
	"errors"
	"fmt"
)

// Transcoder converts a compressed audio buffer to PCM.
type Transcoder interface {
	// Transcode decodes compressed audio in the given source format and
	// returns interleaved PCM matching target.
	Transcode(ctx context.Context, compressed []byte, source Format, target Spec) ([]byte, error)
}

// Format names a source container.
type Format string

const (
	FormatAuto Format = "auto" // Sniff the container from its magic bytes
	FormatWebM Format = "webm" // Matroska/WebM, Opus audio (browser MediaRecorder)
	FormatWAV  Format = "wav"  // RIFF PCM16
	FormatOgg  Format = "ogg"  // Ogg container (Opus or Vorbis)
	FormatMP3  Format = "mp3"  // MPEG layer III
)

// ParseFormat maps a client-supplied format name, or MIME type, to a Format.
// Unknown or empty names map to FormatAuto.
func ParseFormat(name string) Format {
	switch name {
	case "webm", "audio/webm", "audio/webm;codecs=opus", "audio/webm; codecs=opus":
		return FormatWebM
	case "wav", "wave", "audio/wav", "audio/x-wav", "audio/wave":
		return FormatWAV
	case "ogg", "opus", "audio/ogg", "audio/ogg;codecs=opus", "audio/ogg; codecs=opus":
		return FormatOgg
	case "mp3", "audio/mpeg", "audio/mp3":
		return FormatMP3
	default:
		return FormatAuto
	}
}

// Encoding names a PCM sample encoding.
type Encoding string

// EncodingLinear16 is signed 16-bit little-endian PCM.
const EncodingLinear16 Encoding = "LINEAR16"

// Spec describes the PCM a transcoder must produce.
type Spec struct {
	SampleRate int
	Encoding   Encoding
	Channels   int
}

// DefaultSpec is 48 kHz mono LINEAR16, the recognition input format.
func DefaultSpec() Spec {
	return Spec{
		SampleRate: 48000,
		Encoding:   EncodingLinear16,
		Channels:   1,
	}
}

// Validate checks that the spec can be produced.
func (s Spec) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedTarget, s.SampleRate)
	}
	if s.Channels <= 0 || s.Channels > 2 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedTarget, s.Channels)
	}
	if s.Encoding != EncodingLinear16 && s.Encoding != "" {
		return fmt.Errorf("%w: encoding %s", ErrUnsupportedTarget, s.Encoding)
	}
	return nil
}

// Sentinel errors.
var (
	// ErrEmptyInput is returned for a zero-length buffer.
	ErrEmptyInput = errors.New("transcode: empty input")

	// ErrUnsupportedFormat is returned when no backend can decode the container.
	ErrUnsupportedFormat = errors.New("transcode: unsupported format")

	// ErrUnsupportedTarget is returned for an output spec that cannot be produced.
	ErrUnsupportedTarget = errors.New("transcode: unsupported target spec")

	// ErrNoAudio is returned when a container holds no decodable audio frames.
	ErrNoAudio = errors.New("transcode: no audio frames")
)

// DecodeError reports malformed, truncated or undecodable input.
type DecodeError struct {
	// Format is the container that was being decoded.
	Format Format

	// Backend identifies which transcoder failed ("native", "ffmpeg").
	Backend string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("transcode [%s/%s]: %v", e.Backend, e.Format, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeError(backend string, format Format, err error) error {
	return &DecodeError{Format: format, Backend: backend, Err: err}
}
