// Package respond turns routed intents into reply text.
//
// Local intents (time, date, CPU load, jokes) are answered in-process. Open
// domain requests go to a language model with a fixed system prompt and the
// transcript as the only user turn; replies carry no memory between utterances.
package respond

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/inference"
	"github.com/teslashibe/go-jarvis/pkg/intent"
)

// SystemPrompt frames every open-domain request.
const SystemPrompt = "You are a friendly and conversational AI assistant. Keep your responses concise and natural."

// StatsApology replaces the CPU reply when the sample cannot be taken.
const StatsApology = "Sorry, I couldn't read the CPU usage right now."

const (
	timeLayout = "3:04:05 PM"
	dateLayout = "1/2/2006"
)

// Clock supplies wall time. Tests substitute a fixed clock.
type Clock func() time.Time

// Generator answers intents. It is safe for concurrent use.
type Generator struct {
	llm      inference.Provider
	stats    StatsProvider
	clock    Clock
	location *time.Location
	jokes    []string
	pick     func(n int) int
	model    string
	logger   *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithStats sets the CPU sampler.
func WithStats(s StatsProvider) Option {
	return func(g *Generator) { g.stats = s }
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithLocation formats times in loc instead of the server's zone.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) { g.location = loc }
}

// WithJokes replaces the joke table. An empty table is ignored.
func WithJokes(jokes []string) Option {
	return func(g *Generator) {
		if len(jokes) > 0 {
			g.jokes = jokes
		}
	}
}

// WithPicker sets the random index source used for jokes.
func WithPicker(pick func(n int) int) Option {
	return func(g *Generator) { g.pick = pick }
}

// WithModel forces one model name on every request. Leave it unset when the
// provider is a chain of different vendors.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a generator backed by llm for open-domain requests.
func NewGenerator(llm inference.Provider, opts ...Option) *Generator {
	g := &Generator{
		llm:      llm,
		stats:    NewCPUStats(),
		clock:    time.Now,
		location: time.Local,
		jokes:    Jokes,
		pick:     rand.IntN,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "respond")
	return g
}

// Generate produces the reply for in. Only OpenDomain can fail with a
// *GenerationError; local stat failures degrade to an apology.
func (g *Generator) Generate(ctx context.Context, in intent.Intent) (string, error) {
	switch in.Kind {
	case intent.TimeQuery:
		return fmt.Sprintf("The current time is %s.", g.now().Format(timeLayout)), nil

	case intent.DateQuery:
		return fmt.Sprintf("The current date is %s.", g.now().Format(dateLayout)), nil

	case intent.SystemStatsQuery:
		return g.cpuReply(ctx), nil

	case intent.JokeRequest:
		return g.jokes[g.pick(len(g.jokes))], nil

	default:
		return g.complete(ctx, in.Text)
	}
}

func (g *Generator) now() time.Time {
	return g.clock().In(g.location)
}

func (g *Generator) cpuReply(ctx context.Context) string {
	pct, err := g.stats.CPUPercent(ctx)
	if err != nil {
		statErr := &LocalStatError{Stat: "cpu", Err: err}
		g.logger.Warn("cpu sample failed", "error", statErr)
		return StatsApology
	}
	return fmt.Sprintf("CPU Usage is at %s%%.", formatPercent(pct))
}

// formatPercent rounds to two decimals and drops trailing zeros.
func formatPercent(p float64) string {
	rounded := float64(int64(p*100+0.5)) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

func (g *Generator) complete(ctx context.Context, transcript string) (string, error) {
	if g.llm == nil {
		return "", &GenerationError{Err: inference.ErrProviderUnavailable}
	}

	resp, err := g.llm.Chat(ctx, &inference.ChatRequest{
		Model:    g.model,
		Messages: inference.SingleTurn(SystemPrompt, transcript),
	})
	if err != nil {
		return "", &GenerationError{Err: err, Timeout: errors.Is(err, context.DeadlineExceeded)}
	}
	reply := resp.Text()
	if reply == "" {
		return "", &GenerationError{Err: inference.ErrEmptyResponse}
	}
	return reply, nil
}
