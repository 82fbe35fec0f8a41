package stability

// State is the tracker's lock state.
type State int

const (
	// Searching means no quad is currently tracked.
	Searching State = iota
	// Acquiring means a quad is present but has not been stable long enough.
	Acquiring
	// Locked means the quad has been stable for the lock duration.
	Locked
	// Cooldown follows a capture; locking is suppressed until it expires.
	Cooldown
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Acquiring:
		return "acquiring"
	case Locked:
		return "locked"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}
