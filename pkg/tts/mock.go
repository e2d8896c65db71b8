package tts

import (
	"context"
	"time"

	"github.com/teslashibe/go-jarvis/internal/calllog"
)

// Mock implements Provider for testing. A nil SynthesizeFunc fails; nil
// HealthFunc and CloseFunc succeed.
type Mock struct {
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)
	HealthFunc     func(ctx context.Context) error
	CloseFunc      func() error

	log calllog.Log[MockCall]
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
	Time   time.Time
}

func (c MockCall) CallName() string { return c.Method }

// MockAudio is the clip NewMock returns for text. It embeds the text so
// tests can tell which reply produced which clip.
func MockAudio(text string) []byte {
	return []byte("ID3mock:" + text)
}

// NewMock creates a new mock provider with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*AudioResult, error) {
			return &AudioResult{
				Audio: MockAudio(text),
				Format: AudioFormat{
					Encoding:   EncodingMP3,
					SampleRate: 24000,
					Channels:   1,
				},
				CharCount: len(text),
				LatencyMs: 1,
				Duration:  time.Duration(len(text)) * 60 * time.Millisecond,
			}, nil
		},
	}
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.recordCall("Synthesize", text)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", "")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", "")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) recordCall(method, text string) {
	m.log.Add(MockCall{Method: method, Text: text, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall { return m.log.All() }

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int { return m.log.Count(method) }

// LastCall returns the most recent call, or nil if no calls.
func (m *Mock) LastCall() *MockCall { return m.log.Last() }

// Reset clears all recorded calls.
func (m *Mock) Reset() { m.log.Reset() }

// WithError returns a mock that always returns the given error.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, text string) (*AudioResult, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// WithLatency delays every Synthesize call by delay, honouring cancellation.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	next := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, text string) (*AudioResult, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if next == nil {
			return nil, WrapError("mock", ErrProviderUnavailable)
		}
		return next(ctx, text)
	}
	return m
}

var _ Provider = (*Mock)(nil)
