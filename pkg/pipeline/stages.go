package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/teslashibe/go-jarvis/pkg/artifact"
	"github.com/teslashibe/go-jarvis/pkg/intent"
	"github.com/teslashibe/go-jarvis/pkg/stt"
	"github.com/teslashibe/go-jarvis/pkg/transcode"
	"github.com/teslashibe/go-jarvis/pkg/tts"
)

// utterance carries one submission through the stages. Each derived field
// is written by exactly one stage.
type utterance struct {
	seq      uint64
	audio    []byte
	format   transcode.Format
	received time.Time

	prev <-chan struct{} // closed when the previous utterance is terminal
	done chan struct{}

	transcript string
	intent     intent.Intent
	reply      string
	mimeType   string

	// halt ends the pipeline early without an error.
	halt bool

	// slot is set while u holds a concurrency slot.
	slot bool

	latency Latency
}

// Outcome describes a terminal utterance.
type Outcome struct {
	SessionID string
	Seq       uint64

	// Stage is StageDelivered or StageFailed.
	Stage Stage

	// FailedAt is the stage that failed. Only set when Stage is StageFailed.
	FailedAt Stage

	// Empty is true when the transcript was silence and nothing was emitted.
	Empty bool

	// Cancelled is true when the session closed before the utterance finished.
	Cancelled bool

	Err     error
	Latency Latency
}

// stageFunc is one pipeline step. Returning an error fails the utterance at
// that stage.
type stageFunc func(ctx context.Context, s *Session, u *utterance) error

type step struct {
	stage Stage
	run   stageFunc
	skip  func(u *utterance) bool
}

// pipeline lists the stages every utterance runs in order.
func (o *Orchestrator) pipeline() []step {
	return []step{
		{stage: StageTranscoding, run: transcodeStage},
		{stage: StageTranscribing, run: transcribeStage},
		{stage: StageRouting, run: routeStage},
		{stage: StageGenerating, run: generateStage, skip: func(u *utterance) bool { return u.reply != "" }},
		{stage: StageSynthesizing, run: synthesizeStage},
	}
}

func (s *Session) key(seq uint64, kind artifact.Kind) artifact.Key {
	return artifact.Key{SessionID: s.id, Seq: seq, Kind: kind}
}

// run drives one utterance from Received to a terminal stage.
func (s *Session) run(u *utterance) {
	defer s.wg.Done()
	defer close(u.done)

	out := s.admit(u)
	if out == nil {
		out = s.process(u)
	}
	s.finish(u, out)
}

// admit waits for the delivery policy to let u start. A non-nil outcome
// means the session closed while waiting.
func (s *Session) admit(u *utterance) *Outcome {
	if s.o.cfg.Policy == PolicyStrict {
		if u.prev == nil {
			return nil
		}
		select {
		case <-u.prev:
			return nil
		case <-s.ctx.Done():
			return s.cancelled(u, StageReceived)
		}
	}

	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return s.cancelled(u, StageReceived)
	}
	u.slot = true
	return nil
}

func (s *Session) process(u *utterance) *Outcome {
	if u.slot {
		defer s.sem.Release(1)
	}

	ctx, span := tracer.Start(s.ctx, "utterance", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.Int64("utterance.seq", int64(u.seq)),
	))
	defer span.End()

	defer s.drop(s.key(u.seq, artifact.KindPCM))
	defer s.drop(s.key(u.seq, artifact.KindSpeech))

	for _, st := range s.o.steps {
		if u.halt {
			break
		}
		if st.skip != nil && st.skip(u) {
			continue
		}
		if err := s.runStep(ctx, u, st); err != nil {
			recordSpanError(span, err)
			return s.failed(u, st.stage, err)
		}
	}

	if u.halt {
		return &Outcome{Stage: StageDelivered, Empty: true}
	}

	if err := s.deliverAudio(ctx, u); err != nil {
		recordSpanError(span, err)
		return s.failed(u, StageSynthesizing, err)
	}
	return &Outcome{Stage: StageDelivered}
}

// runStep attempts one stage once under its own timeout.
func (s *Session) runStep(ctx context.Context, u *utterance, st step) error {
	s.setStage(u.seq, st.stage)

	ctx, cancel := context.WithTimeout(ctx, s.o.cfg.timeout(st.stage))
	defer cancel()
	ctx, span := tracer.Start(ctx, st.stage.String())
	defer span.End()

	start := time.Now()
	err := st.run(ctx, s, u)
	elapsed := time.Since(start)

	u.latency.record(st.stage, elapsed)
	s.o.metrics.RecordStage(st.stage.String(), err == nil, elapsed.Seconds())
	if err != nil {
		recordSpanError(span, err)
	}
	return err
}

func transcodeStage(ctx context.Context, s *Session, u *utterance) error {
	pcm, err := s.o.deps.Transcoder.Transcode(ctx, u.audio, u.format, s.o.cfg.PCM)
	if err != nil {
		return err
	}
	u.audio = nil
	return s.o.deps.Artifacts.Put(ctx, s.key(u.seq, artifact.KindPCM), pcm)
}

func transcribeStage(ctx context.Context, s *Session, u *utterance) error {
	pcm, err := s.o.deps.Artifacts.Get(ctx, s.key(u.seq, artifact.KindPCM))
	if err != nil {
		return err
	}

	text, err := s.o.deps.Recognizer.Transcribe(ctx, pcm, s.o.cfg.recognitionSpec())
	if stt.IsKind(err, stt.KindNoSpeechDetected) {
		text, err = "", nil
	}
	if err != nil {
		return err
	}

	u.transcript = strings.TrimSpace(text)
	if u.transcript == "" {
		u.halt = true
		return nil
	}
	s.seqr.push(u.seq, Event{Type: EventTranscription, Seq: u.seq, Text: u.transcript})
	return nil
}

// routeStage classifies the transcript and answers local intents directly.
func routeStage(ctx context.Context, s *Session, u *utterance) error {
	u.intent = s.o.deps.Router.Route(u.transcript)
	s.o.metrics.RecordIntent(u.intent.Kind.String())
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("intent.kind", u.intent.Kind.String()))

	if u.intent.Kind == intent.OpenDomain {
		return nil
	}
	return s.reply(ctx, u)
}

func generateStage(ctx context.Context, s *Session, u *utterance) error {
	return s.reply(ctx, u)
}

func (s *Session) reply(ctx context.Context, u *utterance) error {
	text, err := s.o.deps.Responder.Generate(ctx, u.intent)
	if err != nil {
		return err
	}
	u.reply = strings.TrimSpace(text)
	if u.reply == "" {
		return errors.New("pipeline: empty reply")
	}
	s.seqr.push(u.seq, Event{Type: EventResponse, Seq: u.seq, Text: u.reply})
	return nil
}

func synthesizeStage(ctx context.Context, s *Session, u *utterance) error {
	res, err := s.o.deps.Synthesizer.Synthesize(ctx, u.reply)
	if err != nil {
		return &tts.SynthesisError{Chars: len(u.reply), Err: err}
	}
	if len(res.Audio) == 0 {
		return &tts.SynthesisError{Chars: len(u.reply), Err: tts.ErrEmptyAudio}
	}
	u.mimeType = res.Format.Encoding.MIMEType()
	return s.o.deps.Artifacts.Put(ctx, s.key(u.seq, artifact.KindSpeech), res.Audio)
}

// deliverAudio emits the stored reply audio. It is the last event of an
// utterance.
func (s *Session) deliverAudio(ctx context.Context, u *utterance) error {
	audio, err := s.o.deps.Artifacts.Get(ctx, s.key(u.seq, artifact.KindSpeech))
	if err != nil {
		return err
	}
	s.seqr.push(u.seq, Event{Type: EventAudio, Seq: u.seq, Audio: audio, MIMEType: u.mimeType})
	return nil
}

// voice synthesizes text through the artifact store and returns the audio.
func (s *Session) voice(ctx context.Context, key artifact.Key, text string) ([]byte, string, error) {
	res, err := s.o.deps.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		return nil, "", &tts.SynthesisError{Chars: len(text), Err: err}
	}
	if err := s.o.deps.Artifacts.Put(ctx, key, res.Audio); err != nil {
		return nil, "", err
	}
	audio, err := s.o.deps.Artifacts.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return audio, res.Format.Encoding.MIMEType(), nil
}

// failed converts a stage error into a single client-safe error event.
func (s *Session) failed(u *utterance, stage Stage, err error) *Outcome {
	if s.ctx.Err() != nil {
		return s.cancelled(u, stage)
	}

	s.logger.Warn("utterance failed",
		"seq", u.seq,
		"stage", stage.String(),
		"error", err,
	)
	s.seqr.push(u.seq, Event{Type: EventError, Seq: u.seq, Text: clientMessage(stage)})
	return &Outcome{
		Stage:    StageFailed,
		FailedAt: stage,
		Err:      &StageError{Stage: stage, Seq: u.seq, Err: err},
	}
}

func (s *Session) cancelled(u *utterance, stage Stage) *Outcome {
	return &Outcome{
		Stage:     StageFailed,
		FailedAt:  stage,
		Cancelled: true,
		Err:       &StageError{Stage: stage, Seq: u.seq, Err: context.Canceled},
	}
}

// finish records the outcome and releases events held behind u.
func (s *Session) finish(u *utterance, out *Outcome) {
	s.seqr.finish(u.seq)

	out.SessionID = s.id
	out.Seq = u.seq
	u.latency.Seq = u.seq
	u.latency.Received = u.received
	u.latency.Total = time.Since(u.received)
	u.latency.Outcome = out.Stage
	out.Latency = u.latency

	s.mu.Lock()
	delete(s.inflight, u.seq)
	switch {
	case out.Cancelled:
	case out.Stage == StageDelivered:
		s.delivered++
	default:
		s.nFailed++
	}
	s.mu.Unlock()

	m := s.o.metrics
	switch {
	case out.Cancelled:
		m.RecordUtteranceCancelled()
		s.logger.Debug("utterance cancelled", "seq", u.seq, "stage", out.FailedAt.String())
	case out.Stage == StageDelivered:
		s.o.delivered.Add(1)
		m.RecordUtteranceDelivered(out.Empty, u.latency.Total.Seconds())
		s.o.latency.Add(u.latency)
		s.logger.Info("utterance delivered",
			"seq", u.seq,
			"empty", out.Empty,
			"latency", u.latency.FormatLatency(),
		)
	default:
		s.o.failed.Add(1)
		m.RecordUtteranceFailed(out.FailedAt.String(), u.latency.Total.Seconds())
		s.o.latency.Add(u.latency)
	}

	if s.o.cfg.OnTerminal != nil {
		s.o.cfg.OnTerminal(*out)
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
