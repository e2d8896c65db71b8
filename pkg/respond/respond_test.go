package respond

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/inference"
	"github.com/teslashibe/go-jarvis/pkg/intent"
)

func fixedClock() Clock {
	return func() time.Time {
		return time.Date(2024, time.March, 7, 15, 45, 2, 0, time.UTC)
	}
}

func newTestGenerator(llm inference.Provider, opts ...Option) *Generator {
	base := []Option{
		WithClock(fixedClock()),
		WithLocation(time.UTC),
		WithStats(StatsFunc(func(ctx context.Context) (float64, error) { return 12.5, nil })),
	}
	return NewGenerator(llm, append(base, opts...)...)
}

func TestGenerateLocalIntents(t *testing.T) {
	g := newTestGenerator(nil, WithJokes([]string{"only joke"}))

	tests := []struct {
		kind intent.Kind
		want string
	}{
		{intent.TimeQuery, "The current time is 3:45:02 PM."},
		{intent.DateQuery, "The current date is 3/7/2024."},
		{intent.SystemStatsQuery, "CPU Usage is at 12.5%."},
		{intent.JokeRequest, "only joke"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := g.Generate(context.Background(), intent.Intent{Kind: tt.kind})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateStatsFailureDegrades(t *testing.T) {
	g := newTestGenerator(nil, WithStats(StatsFunc(func(ctx context.Context) (float64, error) {
		return 0, errors.New("no /proc")
	})))

	got, err := g.Generate(context.Background(), intent.Intent{Kind: intent.SystemStatsQuery})
	if err != nil {
		t.Fatalf("stat failure must not abort: %v", err)
	}
	if got != StatsApology {
		t.Errorf("expected apology, got %q", got)
	}
}

func TestGenerateJokeFromTable(t *testing.T) {
	g := newTestGenerator(nil, WithPicker(func(n int) int { return n - 1 }))

	got, _ := g.Generate(context.Background(), intent.Intent{Kind: intent.JokeRequest})
	if got != Jokes[len(Jokes)-1] {
		t.Errorf("expected last joke, got %q", got)
	}
}

func TestGenerateOpenDomain(t *testing.T) {
	llm := inference.NewMockReply("Shakespeare wrote Hamlet.")
	g := newTestGenerator(llm)

	got, err := g.Generate(context.Background(), intent.Intent{Kind: intent.OpenDomain, Text: "who wrote hamlet"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Shakespeare wrote Hamlet." {
		t.Errorf("unexpected reply %q", got)
	}

	req := llm.LastCall().Request
	if len(req.Messages) != 2 {
		t.Fatalf("expected system and user turns, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != inference.RoleSystem || req.Messages[0].Content != SystemPrompt {
		t.Errorf("unexpected system turn: %+v", req.Messages[0])
	}
	if req.Messages[1].Content != "who wrote hamlet" {
		t.Errorf("unexpected user turn: %+v", req.Messages[1])
	}
	if req.Model != "" {
		t.Errorf("model should be left to the provider, got %q", req.Model)
	}
}

func TestGenerateOpenDomainFailure(t *testing.T) {
	g := newTestGenerator(inference.WithError(errors.New("quota exceeded")))

	_, err := g.Generate(context.Background(), intent.Intent{Kind: intent.OpenDomain, Text: "hi"})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
	if genErr.Timeout {
		t.Error("quota failure is not a timeout")
	}
}

func TestGenerateOpenDomainTimeout(t *testing.T) {
	g := newTestGenerator(inference.WithLatency(inference.NewMock(), time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Generate(ctx, intent.Intent{Kind: intent.OpenDomain, Text: "hi"})
	var genErr *GenerationError
	if !errors.As(err, &genErr) || !genErr.Timeout {
		t.Fatalf("expected timed out generation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestGenerateWithoutProvider(t *testing.T) {
	g := newTestGenerator(nil)
	if _, err := g.Generate(context.Background(), intent.Intent{Kind: intent.OpenDomain}); err == nil {
		t.Error("expected error without a language model")
	}
}

func TestFormatPercent(t *testing.T) {
	tests := map[float64]string{
		12.5:     "12.5",
		3.14159:  "3.14",
		100:      "100",
		0:        "0",
		99.999:   "100",
		42.10001: "42.1",
	}
	for in, want := range tests {
		if got := formatPercent(in); got != want {
			t.Errorf("formatPercent(%v) = %q, want %q", in, got, want)
		}
	}
}
