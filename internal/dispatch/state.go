package dispatch

// State is the dispatcher's position in its run.
type State int32

const (
	StateIdle State = iota
	StatePresenting
	StateAwaiting
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePresenting:
		return "presenting"
	case StateAwaiting:
		return "awaiting"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateAborted
}
