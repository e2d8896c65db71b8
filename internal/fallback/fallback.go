// Package fallback runs calls against an ordered list of backends, returning
// the first success.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Error aggregates the failures of every backend that was tried.
type Error struct {
	Scope  string
	Errors []error

	// sentinel is matched by errors.Is for any exhausted chain.
	sentinel error
}

func (e *Error) Error() string {
	switch len(e.Errors) {
	case 0:
		return e.Scope + " chain: no errors recorded"
	case 1:
		return fmt.Sprintf("%s chain: %v", e.Scope, e.Errors[0])
	default:
		return fmt.Sprintf("%s chain: all %d providers failed, last error: %v",
			e.Scope, len(e.Errors), e.Errors[len(e.Errors)-1])
	}
}

// Unwrap exposes every backend error to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return e.Errors
}

// Is matches the chain's sentinel.
func (e *Error) Is(target error) bool {
	return e.sentinel != nil && target == e.sentinel
}

// Chain is an ordered list of interchangeable backends.
type Chain[P any] struct {
	scope    string
	sentinel error
	backends []P
	logger   *slog.Logger
}

// New builds a chain. exhausted is reported through errors.Is when every
// backend fails.
func New[P any](scope string, exhausted error, logger *slog.Logger, backends []P) *Chain[P] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain[P]{
		scope:    scope,
		sentinel: exhausted,
		backends: backends,
		logger:   logger.With("component", scope+".chain"),
	}
}

// Backends returns the backends in try order.
func (c *Chain[P]) Backends() []P {
	return c.backends
}

// Do calls each backend in order until one succeeds. A cancelled context
// stops the walk and returns ctx.Err().
func Do[P, R any](ctx context.Context, c *Chain[P], call func(context.Context, P) (R, error)) (R, error) {
	var (
		zero R
		errs []error
	)

	for i, b := range c.backends {
		res, err := call(ctx, b)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded", "provider_index", i)
			}
			return res, nil
		}

		errs = append(errs, err)
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		c.logger.Warn("provider failed, trying next",
			"provider_index", i,
			"error", err,
		)
	}

	return zero, &Error{Scope: c.scope, Errors: errs, sentinel: c.sentinel}
}

// Check runs check on every backend and fails only when none is healthy.
func (c *Chain[P]) Check(ctx context.Context, check func(context.Context, P) error) error {
	var (
		healthy int
		lastErr error
	)
	for _, b := range c.backends {
		if err := check(ctx, b); err != nil {
			lastErr = err
			continue
		}
		healthy++
	}

	if healthy == 0 && len(c.backends) > 0 {
		return fmt.Errorf("all %d providers unhealthy: %w", len(c.backends), lastErr)
	}

	c.logger.Debug("health check complete", "healthy", healthy, "total", len(c.backends))
	return nil
}

// Each applies fn to every backend and joins the errors.
func (c *Chain[P]) Each(fn func(P) error) error {
	var errs []error
	for _, b := range c.backends {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
