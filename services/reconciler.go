package services

import (
	"log"
	"sync"
	"time"

	"arcadia/game"
	"arcadia/models"
)

// Reconciler keeps a local session snapshot consistent with the sequenced
// event stream. Events apply strictly in order; an out-of-order delivery is
// buffered until the gap fills, and a resync is requested so the gap cannot
// stall the client forever. Redelivered events are ignored.
type Reconciler struct {
	mu           sync.Mutex
	state        *SessionState
	buffer       map[int64]*models.SessionEvent
	predicted    map[int]uint
	resyncNeeded bool

	// requestResync is invoked at most once per gap; it should trigger a
	// state_sync fetch and eventually a Reset call.
	requestResync func()
}

func NewReconciler(state *SessionState, requestResync func()) *Reconciler {
	return &Reconciler{
		state:         state,
		buffer:        make(map[int64]*models.SessionEvent),
		predicted:     make(map[int]uint),
		requestResync: requestResync,
	}
}

// Apply ingests one event. Returns true if the event (and any buffered
// successors it unblocked) mutated the snapshot.
func (r *Reconciler) Apply(event *models.SessionEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Sequence <= r.state.LastSequence {
		// Redelivery of an already-applied event.
		return false
	}

	if event.Sequence > r.state.LastSequence+1 {
		r.buffer[event.Sequence] = event
		if !r.resyncNeeded {
			r.resyncNeeded = true
			log.Printf("Sequence gap in session %s: have %d, got %d - requesting resync", r.state.Code, r.state.LastSequence, event.Sequence)
			if r.requestResync != nil {
				go r.requestResync()
			}
		}
		return false
	}

	r.applyLocked(event)

	// The arrival may have filled the gap in front of buffered events.
	for {
		next, ok := r.buffer[r.state.LastSequence+1]
		if !ok {
			break
		}
		delete(r.buffer, next.Sequence)
		r.applyLocked(next)
	}

	if len(r.buffer) == 0 {
		r.resyncNeeded = false
	}
	return true
}

// PredictMark applies an optimistic local mark before the server confirms
// it, so the UI updates without a round trip. The mark stays predicted until
// the matching cell_marked event arrives, or rolls back when the server
// reports a conflict for the position.
func (r *Reconciler) PredictMark(position int, playerID uint, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Grid == nil || position < 0 || position >= len(r.state.Grid.Cells) {
		return false
	}
	cell := &r.state.Grid.Cells[position]
	if cell.Marked {
		return false
	}

	markedAt := at
	player := playerID
	cell.Marked = true
	cell.MarkedBy = &player
	cell.MarkedAt = &markedAt
	r.predicted[position] = playerID
	return true
}

// Reset replaces the snapshot with an authoritative one, typically the
// response to a resync request. Buffered events newer than the snapshot
// replay on top; the rest are discarded.
func (r *Reconciler) Reset(state *SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = state
	r.predicted = make(map[int]uint)
	r.resyncNeeded = false

	for seq := range r.buffer {
		if seq <= state.LastSequence {
			delete(r.buffer, seq)
		}
	}
	for {
		next, ok := r.buffer[r.state.LastSequence+1]
		if !ok {
			break
		}
		delete(r.buffer, next.Sequence)
		r.applyLocked(next)
	}
}

// State returns a copy of the current snapshot.
func (r *Reconciler) State() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := *r.state
	if r.state.Grid != nil {
		grid := *r.state.Grid
		grid.Cells = append([]game.Cell(nil), r.state.Grid.Cells...)
		state.Grid = &grid
	}
	state.Players = append([]SessionPlayer(nil), r.state.Players...)
	return state
}

// Pending reports how many events are buffered behind a gap.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

func (r *Reconciler) applyLocked(event *models.SessionEvent) {
	payload, err := event.DecodePayload()
	if err != nil {
		log.Printf("Skipping undecodable event %d in session %s: %v", event.Sequence, r.state.Code, err)
		r.state.LastSequence = event.Sequence
		return
	}

	switch p := payload.(type) {
	case *models.PlayerJoinedPayload:
		r.state.Players = append(r.state.Players, SessionPlayer{
			UserID:           p.PlayerID,
			DisplayName:      p.DisplayName,
			Color:            p.Color,
			Position:         p.Position,
			ConnectionStatus: models.ConnectionConnected,
		})

	case *models.PlayerLeftPayload:
		for i, player := range r.state.Players {
			if player.UserID == p.PlayerID {
				r.state.Players = append(r.state.Players[:i], r.state.Players[i+1:]...)
				break
			}
		}

	case *models.PlayerConnectionPayload:
		for i := range r.state.Players {
			if r.state.Players[i].UserID == p.PlayerID {
				r.state.Players[i].ConnectionStatus = p.Status
				break
			}
		}

	case *models.GameStartedPayload:
		r.state.Status = game.StatusActive

	case *models.GamePausedPayload:
		r.state.Status = game.StatusPaused

	case *models.GameResumedPayload:
		r.state.Status = game.StatusActive

	case *models.GameEndedPayload:
		r.state.Status = p.Status
		r.state.WinnerID = p.WinnerID

	case *models.CellMarkedPayload:
		// The confirmed mark supersedes any local prediction at the
		// position, whoever it belongs to.
		delete(r.predicted, p.Position)
		if r.state.Grid != nil && p.Position >= 0 && p.Position < len(r.state.Grid.Cells) {
			markedAt := p.MarkedAt
			playerID := p.PlayerID
			cell := &r.state.Grid.Cells[p.Position]
			cell.Marked = true
			cell.MarkedBy = &playerID
			cell.MarkedAt = &markedAt
			cell.LastModifiedBy = &playerID
			cell.Version++
			r.state.Grid.Version = p.Version
		}
		for i := range r.state.Players {
			if r.state.Players[i].UserID == p.PlayerID {
				r.state.Players[i].Score++
				break
			}
		}

	case *models.CellUnmarkedPayload:
		if r.state.Grid != nil && p.Position >= 0 && p.Position < len(r.state.Grid.Cells) {
			playerID := p.PlayerID
			cell := &r.state.Grid.Cells[p.Position]
			cell.Marked = false
			cell.MarkedBy = nil
			cell.MarkedAt = nil
			cell.LastModifiedBy = &playerID
			cell.Version++
			r.state.Grid.Version = p.Version
		}

	case *models.WinDetectedPayload:
		winnerID := p.WinnerID
		r.state.WinnerID = &winnerID

	case *models.HostChangedPayload:
		for i := range r.state.Players {
			r.state.Players[i].IsHost = r.state.Players[i].UserID == p.NewHostID
		}

	case *models.ConflictDetectedPayload:
		// Roll back our prediction if the server rejected it; the winning
		// cell_marked event carries the authoritative state.
		if owner, ok := r.predicted[p.Position]; ok && owner == p.PlayerID {
			delete(r.predicted, p.Position)
			if r.state.Grid != nil && p.Position >= 0 && p.Position < len(r.state.Grid.Cells) {
				cell := &r.state.Grid.Cells[p.Position]
				cell.Marked = false
				cell.MarkedBy = nil
				cell.MarkedAt = nil
			}
		}
	}

	r.state.LastSequence = event.Sequence
}
