package pipeline

import (
	"sync"
	"time"
)

// historySize bounds how many utterances Average looks back over.
const historySize = 100

// Latency records how long each stage of one utterance took.
// Durations are zero for stages the utterance never entered.
type Latency struct {
	Seq      uint64
	Received time.Time

	Transcode  time.Duration
	Transcribe time.Duration
	Route      time.Duration
	Generate   time.Duration
	Synthesize time.Duration
	Total      time.Duration

	Outcome Stage // Delivered or Failed
}

func (l *Latency) record(stage Stage, d time.Duration) {
	switch stage {
	case StageTranscoding:
		l.Transcode = d
	case StageTranscribing:
		l.Transcribe = d
	case StageRouting:
		l.Route = d
	case StageGenerating:
		l.Generate = d
	case StageSynthesizing:
		l.Synthesize = d
	}
}

// LatencyCollector keeps recent utterance latencies.
// It is goroutine-safe and shared by every session of an orchestrator.
type LatencyCollector struct {
	mu      sync.Mutex
	history []Latency
	count   int

	onUpdate func(Latency)
}

// NewLatencyCollector creates an empty collector.
func NewLatencyCollector() *LatencyCollector {
	return &LatencyCollector{
		history: make([]Latency, 0, historySize),
	}
}

// OnUpdate sets a callback that fires for every finished utterance.
func (c *LatencyCollector) OnUpdate(fn func(Latency)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// Add archives a finished utterance.
func (c *LatencyCollector) Add(l Latency) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, l)
	if len(c.history) > historySize {
		c.history = c.history[1:]
	}
	c.count++
	if c.onUpdate != nil {
		go c.onUpdate(l)
	}
}

// Count returns how many utterances were ever added.
func (c *LatencyCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Last returns the most recent utterance, if any.
func (c *LatencyCollector) Last() (Latency, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return Latency{}, false
	}
	return c.history[len(c.history)-1], true
}

// Average returns mean stage latencies over recent utterances.
func (c *LatencyCollector) Average() Latency {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.history) == 0 {
		return Latency{}
	}

	var avg Latency
	for _, h := range c.history {
		avg.Transcode += h.Transcode
		avg.Transcribe += h.Transcribe
		avg.Route += h.Route
		avg.Generate += h.Generate
		avg.Synthesize += h.Synthesize
		avg.Total += h.Total
	}

	n := time.Duration(len(c.history))
	avg.Transcode /= n
	avg.Transcribe /= n
	avg.Route /= n
	avg.Generate /= n
	avg.Synthesize /= n
	avg.Total /= n

	return avg
}

// FormatLatency returns a one-line breakdown for logs.
func (l Latency) FormatLatency() string {
	return formatDuration(l.Transcode) + " DEC | " +
		formatDuration(l.Transcribe) + " STT | " +
		formatDuration(l.Route) + " ROUTE | " +
		formatDuration(l.Generate) + " LLM | " +
		formatDuration(l.Synthesize) + " TTS | " +
		formatDuration(l.Total) + " TOTAL"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}
