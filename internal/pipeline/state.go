package pipeline

// State is a stage of one request's trip through the pipeline.
type State int

const (
	StateValidating State = iota
	StateSessionOpen
	StateInputsPersisted
	StateSubtitlesAttempted
	StateTranscoding
	StateArtifactExtracted
	StateReleased
	StateFailed
)

var stateNames = [...]string{
	StateValidating:         "validating",
	StateSessionOpen:        "session_open",
	StateInputsPersisted:    "inputs_persisted",
	StateSubtitlesAttempted: "subtitles_attempted",
	StateTranscoding:        "transcoding",
	StateArtifactExtracted:  "artifact_extracted",
	StateReleased:           "released",
	StateFailed:             "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// TransitionHook observes state changes. sessionID is empty while the
// request is still being validated.
type TransitionHook func(sessionID string, from, to State)
