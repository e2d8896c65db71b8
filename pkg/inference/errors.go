package inference

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-jarvis/internal/httpc"
)

// Sentinel errors.
var (
	ErrNoAPIKey            = errors.New("inference: API key required")
	ErrNoModel             = errors.New("inference: model required")
	ErrProviderUnavailable = errors.New("inference: provider unavailable")
	ErrAllProvidersFailed  = errors.New("inference: all providers failed")

	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("inference: empty response")
)

// APIError is a non-success answer from a chat completion endpoint.
// Retry predicates come from the embedded status.
type APIError struct {
	httpc.StatusError
	Provider string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference [%s]: %s", e.Provider, e.StatusError.Error())
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps err with provider context; nil stays nil. HTTP status
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
