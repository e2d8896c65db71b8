package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrSessionClosed is returned when submitting to a closed session.
	ErrSessionClosed = errors.New("pipeline: session closed")

	// ErrEmptyAudio is returned for a zero-length submission.
	ErrEmptyAudio = errors.New("pipeline: empty audio")

	// ErrMissingCollaborator is returned by New when a dependency is nil.
	ErrMissingCollaborator = errors.New("pipeline: missing collaborator")
)

// Client-safe messages. Collaborator errors are logged, never forwarded.
const (
	MsgTranscodeFailed = "Error converting audio"
	MsgResponseFailed  = "Error during speech recognition or fetching data from Open AI"
	MsgSynthesisFailed = "Error generating TTS for response"
	MsgGreetingFailed  = "Error generating greeting"
)

// clientMessage returns the fixed error text shown for a failure at stage.
func clientMessage(stage Stage) string {
	switch stage {
	case StageTranscoding:
		return MsgTranscodeFailed
	case StageSynthesizing:
		return MsgSynthesisFailed
	default:
		return MsgResponseFailed
	}
}

// StageError records which stage of an utterance failed.
type StageError struct {
	Stage Stage
	Seq   uint64
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: utterance %d failed at %s: %v", e.Seq, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
