package game

// Session statuses. Transitions are monotonic: once a session reaches
// completed or cancelled it never leaves that state.
const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var transitions = map[string]map[string]bool{
	StatusWaiting: {
		StatusActive:    true,
		StatusCancelled: true,
	},
	StatusActive: {
		StatusPaused:    true,
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusPaused: {
		StatusActive:    true,
		StatusCancelled: true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

func CanTransition(from, to string) bool {
	allowed, ok := transitions[from]
	return ok && allowed[to]
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}
