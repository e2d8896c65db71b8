package inference

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChainFallback(t *testing.T) {
	ctx := context.Background()

	failing := WithError(errors.New("provider 1 failed"))
	working := NewMockReply("From working provider")

	chain, err := NewChain(failing, working)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}
	defer chain.Close()

	resp, err := chain.Chat(ctx, &ChatRequest{
		Messages: []Message{NewUserMessage("test")},
	})
	if err != nil {
		t.Fatalf("Chain chat failed: %v", err)
	}

	if resp.Message.Content != "From working provider" {
		t.Errorf("Unexpected response: %s", resp.Message.Content)
	}
}

func TestChainAllFail(t *testing.T) {
	ctx := context.Background()

	p1 := WithError(errors.New("provider 1 failed"))
	p2 := WithError(errors.New("provider 2 failed"))

	chain, _ := NewChain(p1, p2)
	defer chain.Close()

	_, err := chain.Chat(ctx, &ChatRequest{
		Messages: []Message{NewUserMessage("test")},
	})

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("Expected ChainError, got %T", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(chainErr.Errors))
	}
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Error("Expected ErrAllProvidersFailed in chain")
	}
}

func TestChainStopsOnCancel(t *testing.T) {
	slow := WithLatency(NewMock(), time.Second)
	next := NewMock()

	chain, _ := NewChain(slow, next)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := chain.Chat(ctx, &ChatRequest{Messages: []Message{NewUserMessage("hi")}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if next.CallCount("Chat") != 0 {
		t.Error("Cancelled chain should not try the next provider")
	}
}

func TestChainHealth(t *testing.T) {
	chain, _ := NewChain(WithError(errors.New("down")), NewMock())
	if err := chain.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy chain, got %v", err)
	}
}

func TestChainHealthAllUnhealthy(t *testing.T) {
	chain, _ := NewChain(WithError(errors.New("down")), WithError(errors.New("also down")))
	if err := chain.Health(context.Background()); err == nil {
		t.Error("Expected error when all providers are unhealthy")
	}
}

func TestChainEmpty(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}
}

func TestMockTracking(t *testing.T) {
	m := NewMock()
	req := &ChatRequest{Messages: []Message{NewUserMessage("hi")}}
	_, _ = m.Chat(context.Background(), req)
	_ = m.Health(context.Background())

	if m.CallCount("Chat") != 1 || m.CallCount("Health") != 1 {
		t.Errorf("Unexpected calls: %+v", m.Calls())
	}
	if last := m.LastCall(); last == nil || last.Method != "Health" {
		t.Errorf("Unexpected last call: %+v", last)
	}
	if first := m.Calls()[0]; first.Request != req {
		t.Error("Expected request to be recorded")
	}

	m.Reset()
	if m.LastCall() != nil {
		t.Error("Expected no calls after reset")
	}
}
