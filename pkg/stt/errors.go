package stt

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrEmptyAudio is returned when Transcribe is called without samples.
	ErrEmptyAudio = errors.New("stt: empty audio")

	// ErrNoTranscript is wrapped by KindNoSpeechDetected errors.
	ErrNoTranscript = errors.New("stt: results contained no transcript")
)

// Kind classifies a recognition failure.
type Kind int

const (
	// KindUnavailable covers network failures, quota and server errors.
	KindUnavailable Kind = iota

	// KindInvalidAudio means the service rejected the audio or its config.
	KindInvalidAudio

	// KindNoSpeechDetected means results came back without any transcript.
	KindNoSpeechDetected
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindInvalidAudio:
		return "invalid_audio"
	case KindNoSpeechDetected:
		return "no_speech"
	default:
		return "unknown"
	}
}

// RecognitionError is returned by every Provider on failure.
type RecognitionError struct {
	Kind     Kind
	Provider string

	// StatusCode is the upstream HTTP status, zero when none was received.
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *RecognitionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("stt [%s]: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("stt [%s]: %s: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the same request may succeed later.
func (e *RecognitionError) IsRetryable() bool {
	return e.Kind == KindUnavailable
}

// IsKind reports whether err is a RecognitionError of the given kind.
func IsKind(err error, kind Kind) bool {
	var re *RecognitionError
	return errors.As(err, &re) && re.Kind == kind
}

// ProviderError wraps a construction error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("stt [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
