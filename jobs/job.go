package jobs

// JobFunc is a type for job function that will be executed by the scheduler.
type JobFunc func()

// State is the stage a PresenceJob is in.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StatePublishing
	StateStopped // terminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePublishing:
		return "publishing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
