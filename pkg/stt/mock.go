package stt

import (
	"context"
	"time"

	"github.com/teslashibe/go-jarvis/internal/calllog"
)

// Mock implements Provider for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, returns an empty transcript.
	TranscribeFunc func(ctx context.Context, pcm []byte, spec Spec) (string, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	log calllog.Log[MockCall]
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Bytes  int
	Spec   Spec
	Time   time.Time
}

func (c MockCall) CallName() string { return c.Method }

// NewMock creates a mock that always returns text.
func NewMock(text string) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, pcm []byte, spec Spec) (string, error) {
			return text, nil
		},
	}
}

// Transcribe calls TranscribeFunc and records the call.
func (m *Mock) Transcribe(ctx context.Context, pcm []byte, spec Spec) (string, error) {
	m.record(MockCall{Method: "Transcribe", Bytes: len(pcm), Spec: spec})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, pcm, spec)
	}
	return "", nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record(MockCall{Method: "Close"})
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) record(c MockCall) {
	c.Time = time.Now()
	m.log.Add(c)
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall { return m.log.All() }

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int { return m.log.Count(method) }

// LastCall returns the most recent call, or nil.
func (m *Mock) LastCall() *MockCall { return m.log.Last() }

// Reset clears all recorded calls.
func (m *Mock) Reset() { m.log.Reset() }

// WithError configures the mock to return a recognition error of kind.
func (m *Mock) WithError(kind Kind, err error) *Mock {
	m.TranscribeFunc = func(ctx context.Context, pcm []byte, spec Spec) (string, error) {
		return "", &RecognitionError{Kind: kind, Provider: "mock", Err: err}
	}
	return m
}

// WithLatency wraps TranscribeFunc with a cancellable delay.
func (m *Mock) WithLatency(d time.Duration) *Mock {
	next := m.TranscribeFunc
	m.TranscribeFunc = func(ctx context.Context, pcm []byte, spec Spec) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d):
		}
		if next != nil {
			return next(ctx, pcm, spec)
		}
		return "", nil
	}
	return m
}

var _ Provider = (*Mock)(nil)
