package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/semaphore"

	"github.com/teslashibe/go-jarvis/internal/metrics"
	"github.com/teslashibe/go-jarvis/pkg/artifact"
	"github.com/teslashibe/go-jarvis/pkg/intent"
	"github.com/teslashibe/go-jarvis/pkg/stt"
	"github.com/teslashibe/go-jarvis/pkg/transcode"
	"github.com/teslashibe/go-jarvis/pkg/tts"
)

const scopeName = "github.com/teslashibe/go-jarvis/pkg/pipeline"

var tracer = otel.Tracer(scopeName)

// Router classifies a transcript.
type Router interface {
	Route(transcript string) intent.Intent
}

// Responder produces the reply text for a routed intent.
type Responder interface {
	Generate(ctx context.Context, in intent.Intent) (string, error)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Transcoder  transcode.Transcoder
	Recognizer  stt.Provider
	Router      Router // defaults to intent.NewRouter()
	Responder   Responder
	Synthesizer tts.Provider
	Artifacts   artifact.Store // defaults to an in-memory store
}

// Orchestrator owns the collaborators and opens sessions over them.
type Orchestrator struct {
	deps    Deps
	cfg     *Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	latency *LatencyCollector
	steps   []step

	mu       sync.RWMutex
	sessions map[string]*Session

	opened    atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// New validates deps and the configuration and returns an orchestrator.
func New(deps Deps, opts ...Option) (*Orchestrator, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case deps.Transcoder == nil:
		return nil, fmt.Errorf("%w: transcoder", ErrMissingCollaborator)
	case deps.Recognizer == nil:
		return nil, fmt.Errorf("%w: recognizer", ErrMissingCollaborator)
	case deps.Responder == nil:
		return nil, fmt.Errorf("%w: responder", ErrMissingCollaborator)
	case deps.Synthesizer == nil:
		return nil, fmt.Errorf("%w: synthesizer", ErrMissingCollaborator)
	}
	if deps.Router == nil {
		deps.Router = intent.NewRouter()
	}
	if deps.Artifacts == nil {
		deps.Artifacts = artifact.NewMemory(artifact.DefaultTTL)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if cfg.Latency == nil {
		cfg.Latency = NewLatencyCollector()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	o := &Orchestrator{
		deps:     deps,
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "pipeline"),
		metrics:  cfg.Metrics,
		latency:  cfg.Latency,
		sessions: make(map[string]*Session),
	}
	o.steps = o.pipeline()
	return o, nil
}

// Open starts a session that emits to em. The session ends when Close is
// called or ctx is cancelled.
func (o *Orchestrator) Open(ctx context.Context, em Emitter) *Session {
	id := uuid.NewString()
	sctx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:       id,
		created:  time.Now(),
		o:        o,
		ctx:      sctx,
		cancel:   cancel,
		emitter:  em,
		logger:   o.logger.With("session_id", id),
		sem:      semaphore.NewWeighted(int64(o.cfg.MaxInFlight)),
		inflight: make(map[uint64]Stage),
	}
	s.seqr = newSequencer(1, s.send)

	o.mu.Lock()
	o.sessions[id] = s
	o.mu.Unlock()

	o.opened.Add(1)
	o.metrics.RecordSessionOpened()
	s.logger.Info("session opened", "policy", o.cfg.Policy)

	// A cancelled parent tears the session down like a disconnect.
	context.AfterFunc(sctx, s.Close)

	return s
}

// Session returns an open session by id.
func (o *Orchestrator) Session(id string) (*Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[id]
	return s, ok
}

// Sessions returns a snapshot of every open session, oldest first.
func (o *Orchestrator) Sessions() []SessionInfo {
	o.mu.RLock()
	infos := make([]SessionInfo, 0, len(o.sessions))
	for _, s := range o.sessions {
		infos = append(infos, s.Info())
	}
	o.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Stats aggregates orchestrator counters.
type Stats struct {
	ActiveSessions int     `json:"active_sessions"`
	TotalSessions  uint64  `json:"total_sessions"`
	Delivered      uint64  `json:"delivered"`
	Failed         uint64  `json:"failed"`
	Policy         Policy  `json:"policy"`
	MaxInFlight    int     `json:"max_in_flight"`
	AvgLatency     Latency `json:"-"`
	AvgLatencyText string  `json:"avg_latency"`
}

// Stats returns aggregate counters and average stage latency.
func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	active := len(o.sessions)
	o.mu.RUnlock()

	avg := o.latency.Average()
	return Stats{
		ActiveSessions: active,
		TotalSessions:  o.opened.Load(),
		Delivered:      o.delivered.Load(),
		Failed:         o.failed.Load(),
		Policy:         o.cfg.Policy,
		MaxInFlight:    o.cfg.MaxInFlight,
		AvgLatency:     avg,
		AvgLatencyText: avg.FormatLatency(),
	}
}

// Latency returns the shared latency collector.
func (o *Orchestrator) Latency() *LatencyCollector {
	return o.latency
}

// Shutdown closes every open session.
func (o *Orchestrator) Shutdown() {
	o.mu.RLock()
	open := make([]*Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		open = append(open, s)
	}
	o.mu.RUnlock()

	for _, s := range open {
		s.Close()
	}
}

func (o *Orchestrator) remove(id string) {
	o.mu.Lock()
	delete(o.sessions, id)
	o.mu.Unlock()
}
