package game

import "errors"

var (
	ErrVersionConflict     = errors.New("stale board version")
	ErrAlreadyMarked       = errors.New("cell is already marked")
	ErrNotMarked           = errors.New("cell is not marked")
	ErrInvalidPosition     = errors.New("cell position out of range")
	ErrNotHost             = errors.New("only the host can perform this action")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrSessionPaused       = errors.New("session is paused")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionTerminal     = errors.New("session has already ended")
	ErrInvalidTransition   = errors.New("invalid session status transition")
	ErrRateLimited         = errors.New("too many requests")
)

// ValidationError reports which structural invariant a board violated.
type ValidationError struct {
	Invariant string
}

func (e *ValidationError) Error() string {
	return "board validation failed: " + e.Invariant
}
