// Package pipeline runs the per-session voice assistant pipeline.
//
// Each websocket connection opens one Session on an Orchestrator. Every audio
// submission becomes an utterance with its own sequence number that passes
// through a fixed series of stages:
//
//	Received → Transcoding → Transcribing → Routing → (Generating) → Synthesizing → Delivered
//
// Any stage may end the utterance in Failed, which emits a single client-safe
// error event and leaves the session usable. Events for one utterance are never
// interleaved with events of a later one; see Policy for the two ways this is
// enforced.
//
// Usage:
//
//	orch, err := pipeline.New(pipeline.Deps{
//	    Transcoder:  transcode.NewAuto(),
//	    Recognizer:  recognizer,
//	    Responder:   respond.NewGenerator(llm),
//	    Synthesizer: synth,
//	})
//	session := orch.Open(ctx, emitter)
//	defer session.Close()
//	seq, err := session.Submit(audio)
package pipeline
