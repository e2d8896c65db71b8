package tts

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-jarvis/internal/httpc"
)

// Sentinel errors.
var (
	ErrNoAPIKey            = errors.New("tts: API key required")
	ErrEmptyText           = errors.New("tts: empty text")
	ErrEmptyAudio          = errors.New("tts: empty audio")
	ErrProviderUnavailable = errors.New("tts: no providers available")
	ErrAllProvidersFailed  = errors.New("tts: all providers failed")
)

// APIError is a non-success answer from a synthesis API.
type APIError struct {
	httpc.StatusError
	Provider string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tts [%s]: %s", e.Provider, e.StatusError.Error())
}

// ProviderError wraps a failure that carries no HTTP status.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError tags err with the provider; nil stays nil and HTTP status
// failures become *APIError.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var se *httpc.StatusError
	if errors.As(err, &se) {
		return &APIError{StatusError: *se, Provider: provider}
	}
	return &ProviderError{Provider: provider, Err: err}
}

// SynthesisError reports that a reply could not be voiced.
type SynthesisError struct {
	Chars int
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts: synthesize %d chars: %v", e.Chars, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
