package fallback

import (
	"context"
	"errors"
	"testing"
)

var errExhausted = errors.New("all failed")

type backend struct {
	name  string
	err   error
	calls int
}

func call(ctx context.Context, b *backend) (string, error) {
	b.calls++
	if b.err != nil {
		return "", b.err
	}
	return b.name, nil
}

func TestDoFallsThrough(t *testing.T) {
	first := &backend{name: "a", err: errors.New("down")}
	second := &backend{name: "b"}
	third := &backend{name: "c"}
	c := New("test", errExhausted, nil, []*backend{first, second, third})

	got, err := Do(context.Background(), c, call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "b" {
		t.Errorf("got %q, want b", got)
	}
	if third.calls != 0 {
		t.Error("expected the walk to stop at the first success")
	}
}

func TestDoExhausted(t *testing.T) {
	inner := errors.New("quota")
	c := New("test", errExhausted, nil, []*backend{
		{err: errors.New("down")},
		{err: inner},
	})

	_, err := Do(context.Background(), c, call)

	var fe *Error
	if !errors.As(err, &fe) || len(fe.Errors) != 2 {
		t.Fatalf("expected *Error with 2 entries, got %v", err)
	}
	if !errors.Is(err, errExhausted) {
		t.Error("expected the exhausted sentinel")
	}
	if !errors.Is(err, inner) {
		t.Error("expected backend errors to be reachable")
	}
}

func TestDoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	next := &backend{name: "b"}
	c := New("test", errExhausted, nil, []*backend{{err: errors.New("down")}, next})

	cancelling := func(ctx context.Context, b *backend) (string, error) {
		cancel()
		return call(ctx, b)
	}
	if _, err := Do(ctx, c, cancelling); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if next.calls != 0 {
		t.Error("cancelled chain should not try the next backend")
	}
}

func TestCheck(t *testing.T) {
	health := func(ctx context.Context, b *backend) error { return b.err }

	mixed := New("test", nil, nil, []*backend{{err: errors.New("down")}, {}})
	if err := mixed.Check(context.Background(), health); err != nil {
		t.Errorf("expected healthy chain, got %v", err)
	}

	down := New("test", nil, nil, []*backend{{err: errors.New("down")}, {err: errors.New("also down")}})
	if err := down.Check(context.Background(), health); err == nil {
		t.Error("expected error when every backend is unhealthy")
	}
}

func TestEachJoinsErrors(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	c := New("test", nil, nil, []*backend{{err: a}, {}, {err: b}})

	err := c.Each(func(x *backend) error { return x.err })
	if !errors.Is(err, a) || !errors.Is(err, b) {
		t.Errorf("expected both errors joined, got %v", err)
	}
}
