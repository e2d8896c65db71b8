package tts

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-jarvis/internal/fallback"
)

// ChainError aggregates the errors of every provider a Chain tried.
// errors.Is reports ErrAllProvidersFailed for it.
type ChainError = fallback.Error

// Chain implements Provider by trying providers in order, so a Google
// outage can fall back to OpenAI speech.
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
	return &Chain{chain: fallback.New("tts", ErrAllProvidersFailed, logger, providers)}, nil
}

// Synthesize returns the first clip any provider produces. Providers may
// differ in encoding; callers read it from the result's Format.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return fallback.Do(ctx, c.chain, func(ctx context.Context, p Provider) (*AudioResult, error) {
		return p.Synthesize(ctx, text)
	})
}

// Health fails only when no provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	return c.chain.Check(ctx, func(ctx context.Context, p Provider) error {
		return p.Health(ctx)
	})
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
