package inference

import (
	"context"
	"time"

	"github.com/teslashibe/go-jarvis/internal/calllog"
)

// Mock implements Provider for testing.
type Mock struct {
	ChatFunc   func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	HealthFunc func(ctx context.Context) error
	CloseFunc  func() error

	log calllog.Log[MockCall]
}

// MockCall records a method invocation.
type MockCall struct {
	Method  string
	Request *ChatRequest
	Time    time.Time
}

func (c MockCall) CallName() string { return c.Method }

// NewMock creates a new mock provider with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		ChatFunc: func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			return &ChatResponse{
				Message:      NewAssistantMessage("Mock response"),
				FinishReason: "stop",
				Usage:        Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// NewMockReply creates a mock that always answers with text.
func NewMockReply(text string) *Mock {
	m := NewMock()
	m.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{Message: NewAssistantMessage(text), FinishReason: "stop"}, nil
	}
	return m
}

// Chat calls ChatFunc and records the call.
func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.record("Chat", req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", nil)
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close", nil)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) record(method string, req *ChatRequest) {
	m.log.Add(MockCall{Method: method, Request: req, Time: time.Now()})
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall { return m.log.All() }

// CallCount returns how many times method was called.
func (m *Mock) CallCount(method string) int { return m.log.Count(method) }

// LastCall returns the most recent call, or nil.
func (m *Mock) LastCall() *MockCall { return m.log.Last() }

// Reset clears recorded calls.
func (m *Mock) Reset() { m.log.Reset() }

// WithError returns a mock whose every method fails with err.
func WithError(err error) *Mock {
	return &Mock{
		ChatFunc: func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// WithLatency delays every Chat call by d, honouring cancellation.
func WithLatency(m *Mock, d time.Duration) *Mock {
	next := m.ChatFunc
	m.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
		return next(ctx, req)
	}
	return m
}

var _ Provider = (*Mock)(nil)
