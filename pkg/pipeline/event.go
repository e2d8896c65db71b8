package pipeline

// EventType names an outbound client event.
type EventType string

const (
	EventGreeting      EventType = "greeting"
	EventTranscription EventType = "transcription"
	EventResponse      EventType = "gptResponse"
	EventAudio         EventType = "gpt"
	EventError         EventType = "error"
)

// Event is one message for the client. Seq is zero for session-level events
// such as the greeting.
type Event struct {
	Type EventType
	Seq  uint64

	// Text carries the transcript, reply text or error message.
	Text string

	// Audio and MIMEType carry synthesized speech.
	Audio    []byte
	MIMEType string
}

// Emitter delivers events to one client. Emit must not block for long; the
// websocket emitter queues into a bounded buffer and reports overflow.
type Emitter interface {
	Emit(ev Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ev Event) error

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev Event) error {
	return f(ev)
}
