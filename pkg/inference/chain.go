package inference

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-jarvis/internal/fallback"
)

// ChainError aggregates the errors of every provider a Chain tried.
// errors.Is reports ErrAllProvidersFailed for it.
type ChainError = fallback.Error

// Chain answers with the first provider that succeeds, e.g. OpenAI with a
// Gemini fallback.
type Chain struct {
	chain *fallback.Chain[Provider]
}

// NewChain creates a provider chain. At least one provider is required.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(slog.Default(), providers...)
}

// NewChainWithLogger creates a provider chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	return &Chain{chain: fallback.New("inference", ErrAllProvidersFailed, logger, providers)}, nil
}

// Chat tries each provider until one answers.
func (c *Chain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return fallback.Do(ctx, c.chain, func(ctx context.Context, p Provider) (*ChatResponse, error) {
		return p.Chat(ctx, req)
	})
}

// Health fails only when no provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	return WrapError("chain", c.chain.Check(ctx, func(ctx context.Context, p Provider) error {
		return p.Health(ctx)
	}))
}

// Close closes every provider.
func (c *Chain) Close() error {
	return c.chain.Each(Provider.Close)
}

// Providers returns the providers in try order.
func (c *Chain) Providers() []Provider {
	return c.chain.Backends()
}

var _ Provider = (*Chain)(nil)
