package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/teslashibe/go-jarvis/pkg/artifact"
	"github.com/teslashibe/go-jarvis/pkg/transcode"
)

// Session is one connected client. All methods are safe for concurrent use.
type Session struct {
	id      string
	created time.Time
	o       *Orchestrator

	ctx     context.Context
	cancel  context.CancelFunc
	emitter Emitter
	logger  *slog.Logger

	seqr *sequencer
	sem  *semaphore.Weighted
	wg   sync.WaitGroup

	// greetings numbers greeting artifacts so concurrent requests never share a key.
	greetings atomic.Uint64

	mu        sync.Mutex
	closed    bool
	nextSeq   uint64
	tail      chan struct{} // done channel of the newest utterance
	inflight  map[uint64]Stage
	submitted int
	delivered int
	nFailed   int
}

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	State     string    `json:"state"`
	Lifecycle string    `json:"lifecycle"`
	InFlight  int       `json:"in_flight"`
	Submitted int       `json:"submitted"`
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time {
	return s.created
}

// State returns the stage of the most advanced in-flight utterance.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	top := Idle
	for _, stage := range s.inflight {
		if st := stateOf(stage); st > top {
			top = st
		}
	}
	return top
}

// Lifecycle reports whether the session is still connected.
func (s *Session) Lifecycle() Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Closed
	}
	return Connected
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	lc := Connected
	if s.closed {
		lc = Closed
	}
	return SessionInfo{
		ID:        s.id,
		CreatedAt: s.created,
		State:     s.stateLocked().String(),
		Lifecycle: lc.String(),
		InFlight:  len(s.inflight),
		Submitted: s.submitted,
		Delivered: s.delivered,
		Failed:    s.nFailed,
	}
}

// Submit starts a new utterance for one complete recording whose container
// is sniffed from its bytes. It returns the utterance sequence number
// without waiting for the pipeline.
func (s *Session) Submit(audio []byte) (uint64, error) {
	return s.SubmitFormat(audio, transcode.FormatAuto)
}

// SubmitFormat is Submit with an explicit source container.
func (s *Session) SubmitFormat(audio []byte, format transcode.Format) (uint64, error) {
	if len(audio) == 0 {
		return 0, ErrEmptyAudio
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrSessionClosed
	}
	s.nextSeq++
	u := &utterance{
		seq:      s.nextSeq,
		audio:    append([]byte(nil), audio...),
		format:   format,
		received: time.Now(),
		prev:     s.tail,
		done:     make(chan struct{}),
	}
	s.tail = u.done
	s.inflight[u.seq] = StageReceived
	s.submitted++
	s.wg.Add(1)
	s.mu.Unlock()

	s.o.metrics.RecordUtteranceReceived()
	s.logger.Debug("utterance received", "seq", u.seq, "bytes", len(audio), "format", format)

	go s.run(u)
	return u.seq, nil
}

// Wait blocks until every submitted utterance is terminal or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Greet synthesizes the personalised greeting and emits it. It does not
// touch utterance state.
func (s *Session) Greet(ctx context.Context, userName string) error {
	if s.Lifecycle() == Closed {
		return ErrSessionClosed
	}

	ctx, cancel := context.WithTimeout(ctx, s.o.cfg.GreetingTimeout)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	ctx, span := tracer.Start(ctx, "greeting")
	defer span.End()

	text := GreetingText(userName, s.o.cfg.Clock())
	key := artifact.Key{SessionID: s.id, Seq: s.greetings.Add(1), Kind: artifact.KindGreeting}
	defer s.drop(key)

	audio, mime, err := s.voice(ctx, key, text)
	if err != nil {
		recordSpanError(span, err)
		if s.ctx.Err() == nil {
			s.logger.Warn("greeting failed", "error", err)
			s.seqr.direct(Event{Type: EventError, Text: MsgGreetingFailed})
		}
		return fmt.Errorf("pipeline: greeting: %w", err)
	}

	s.seqr.direct(Event{Type: EventGreeting, Audio: audio, MIMEType: mime})
	s.logger.Debug("greeting sent", "bytes", len(audio))
	return nil
}

// Close ends the session. In-flight stages are cancelled, nothing more is
// emitted, and the session's artifacts are deleted. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := len(s.inflight)
	s.mu.Unlock()

	s.seqr.close()
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.o.deps.Artifacts.DeleteSession(ctx, s.id); err != nil {
		s.logger.Warn("failed to delete session artifacts", "error", err)
	}

	s.o.remove(s.id)
	s.o.metrics.RecordSessionClosed(time.Since(s.created).Seconds())
	s.logger.Info("session closed", "in_flight", pending)
}

// send writes one event to the client. Called with the sequencer lock held.
func (s *Session) send(ev Event) {
	if err := s.emitter.Emit(ev); err != nil {
		s.o.metrics.RecordMessageDropped()
		s.logger.Warn("failed to emit event", "type", ev.Type, "seq", ev.Seq, "error", err)
	}
}

func (s *Session) setStage(seq uint64, stage Stage) {
	s.mu.Lock()
	if _, ok := s.inflight[seq]; ok {
		s.inflight[seq] = stage
	}
	s.mu.Unlock()
}

// drop deletes an artifact regardless of the caller's context.
func (s *Session) drop(key artifact.Key) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.o.deps.Artifacts.Delete(ctx, key); err != nil && !errors.Is(err, artifact.ErrNotFound) {
		s.logger.Warn("failed to delete artifact", "key", key.String(), "error", err)
	}
}
