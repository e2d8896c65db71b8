package pipeline

// Stage is the position of one utterance in the pipeline.
type Stage int

const (
	StageReceived Stage = iota
	StageTranscoding
	StageTranscribing
	StageRouting
	StageGenerating
	StageSynthesizing
	StageDelivered
	StageFailed
)

// String returns the stage name used in logs and metric labels.
func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageTranscoding:
		return "transcoding"
	case StageTranscribing:
		return "transcribing"
	case StageRouting:
		return "routing"
	case StageGenerating:
		return "generating"
	case StageSynthesizing:
		return "synthesizing"
	case StageDelivered:
		return "delivered"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageDelivered || s == StageFailed
}

// State is the pipeline state of a session: the stage of its most advanced
// in-flight utterance, or Idle.
type State int

const (
	Idle State = iota
	Transcoding
	Transcribing
	Routing
	Generating
	Synthesizing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Transcoding:
		return "transcoding"
	case Transcribing:
		return "transcribing"
	case Routing:
		return "routing"
	case Generating:
		return "generating"
	case Synthesizing:
		return "synthesizing"
	default:
		return "unknown"
	}
}

// stateOf maps an in-flight stage to the session state it implies.
func stateOf(s Stage) State {
	switch s {
	case StageTranscoding:
		return Transcoding
	case StageTranscribing:
		return Transcribing
	case StageRouting:
		return Routing
	case StageGenerating:
		return Generating
	case StageSynthesizing:
		return Synthesizing
	default:
		return Idle
	}
}

// Lifecycle reports whether a session still accepts work.
type Lifecycle int

const (
	Connected Lifecycle = iota
	Closed
)

// String returns the lifecycle name.
func (l Lifecycle) String() string {
	if l == Closed {
		return "closed"
	}
	return "connected"
}

// Policy selects how overlapping utterances of one session are delivered.
type Policy string

const (
	// PolicyStrict starts utterance N+1 only after N is Delivered or Failed.
	PolicyStrict Policy = "strict"

	// PolicyReorder runs up to MaxInFlight utterances concurrently and holds
	// back events of later utterances until every earlier one is terminal.
	PolicyReorder Policy = "reorder"
)

// ParsePolicy maps a config value to a Policy. Unknown values return false.
func ParsePolicy(name string) (Policy, bool) {
	switch Policy(name) {
	case PolicyStrict:
		return PolicyStrict, true
	case PolicyReorder, "":
		return PolicyReorder, true
	default:
		return "", false
	}
}
