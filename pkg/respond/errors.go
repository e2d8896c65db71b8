package respond

import "fmt"

// LocalStatError reports a failed local system sample.
type LocalStatError struct {
	Stat string
	Err  error
}

// Error implements the error interface.
func (e *LocalStatError) Error() string {
	return fmt.Sprintf("respond: sample %s: %v", e.Stat, e.Err)
}

// Unwrap returns the underlying error.
func (e *LocalStatError) Unwrap() error {
	return e.Err
}

// GenerationError reports a failed language model call.
type GenerationError struct {
	Err     error
	Timeout bool
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("respond: generation timed out: %v", e.Err)
	}
	return fmt.Sprintf("respond: generation failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}
