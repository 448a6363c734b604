package services

import (
	"testing"
	"time"

	"arcadia/game"
	"arcadia/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(lastSequence int64) *SessionState {
	return &SessionState{
		SessionID:    1,
		BoardID:      1,
		Code:         "abc123",
		Status:       game.StatusActive,
		Grid:         game.NewBoard(3, nil),
		LastSequence: lastSequence,
		Players: []SessionPlayer{
			{UserID: 1, DisplayName: "alice", IsHost: true},
			{UserID: 2, DisplayName: "bob"},
		},
	}
}

func markEvent(sequence int64, position int, playerID uint, version int) *models.SessionEvent {
	playerRef := playerID
	event, err := models.NewSessionEvent(1, models.EventCellMarked, &playerRef, models.CellMarkedPayload{
		Position: position,
		PlayerID: playerID,
		MarkedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(sequence) * time.Second),
		Version:  version,
	})
	if err != nil {
		panic(err)
	}
	event.Sequence = sequence
	return event
}

func TestReconcilerAppliesInOrder(t *testing.T) {
	r := NewReconciler(newTestState(0), nil)

	assert.True(t, r.Apply(markEvent(1, 0, 1, 1)))
	assert.True(t, r.Apply(markEvent(2, 1, 2, 2)))

	state := r.State()
	assert.Equal(t, int64(2), state.LastSequence)
	assert.True(t, state.Grid.Cells[0].Marked)
	assert.True(t, state.Grid.Cells[1].Marked)
	assert.Equal(t, 2, state.Grid.Version)
	assert.Equal(t, 1, state.Players[0].Score)
	assert.Equal(t, 1, state.Players[1].Score)
}

func TestReconcilerIgnoresRedelivery(t *testing.T) {
	r := NewReconciler(newTestState(0), nil)

	require.True(t, r.Apply(markEvent(1, 0, 1, 1)))

	// Same event delivered twice: second apply is a no-op.
	assert.False(t, r.Apply(markEvent(1, 0, 1, 1)))

	state := r.State()
	assert.Equal(t, int64(1), state.LastSequence)
	assert.Equal(t, 1, state.Players[0].Score)
}

func TestReconcilerBuffersGapAndRequestsResync(t *testing.T) {
	resync := make(chan struct{}, 1)
	r := NewReconciler(newTestState(0), func() {
		resync <- struct{}{}
	})

	require.True(t, r.Apply(markEvent(1, 0, 1, 1)))
	require.True(t, r.Apply(markEvent(2, 1, 1, 2)))

	// Sequence 4 arrives before 3: buffered, not applied, resync requested.
	assert.False(t, r.Apply(markEvent(4, 3, 2, 4)))
	assert.Equal(t, 1, r.Pending())

	select {
	case <-resync:
	case <-time.After(time.Second):
		t.Fatal("expected a resync request")
	}

	state := r.State()
	assert.Equal(t, int64(2), state.LastSequence)
	assert.False(t, state.Grid.Cells[3].Marked)

	// The missing event arrives: both it and the buffered one apply.
	assert.True(t, r.Apply(markEvent(3, 2, 2, 3)))

	state = r.State()
	assert.Equal(t, int64(4), state.LastSequence)
	assert.True(t, state.Grid.Cells[2].Marked)
	assert.True(t, state.Grid.Cells[3].Marked)
	assert.Equal(t, 0, r.Pending())
}

func TestReconcilerResetReplaysNewerBufferedEvents(t *testing.T) {
	r := NewReconciler(newTestState(0), nil)

	// Events 3 and 5 are stuck behind a gap.
	r.Apply(markEvent(3, 2, 1, 3))
	r.Apply(markEvent(5, 4, 1, 5))
	assert.Equal(t, 2, r.Pending())

	// Authoritative snapshot at sequence 3: event 3 is stale and dropped,
	// event 5 stays buffered because 4 is still missing.
	fresh := newTestState(3)
	r.Reset(fresh)

	state := r.State()
	assert.Equal(t, int64(3), state.LastSequence)
	assert.Equal(t, 1, r.Pending())

	// Snapshot at sequence 4 unblocks the buffered event 5.
	r.Reset(newTestState(4))
	state = r.State()
	assert.Equal(t, int64(5), state.LastSequence)
	assert.True(t, state.Grid.Cells[4].Marked)
	assert.Equal(t, 0, r.Pending())
}

func TestReconcilerLifecycleEvents(t *testing.T) {
	state := newTestState(0)
	state.Status = game.StatusWaiting
	r := NewReconciler(state, nil)

	joined, err := models.NewSessionEvent(1, models.EventPlayerJoined, nil, models.PlayerJoinedPayload{
		PlayerID:    3,
		DisplayName: "carol",
		Color:       "#10B981",
		Position:    2,
	})
	require.NoError(t, err)
	joined.Sequence = 1
	require.True(t, r.Apply(joined))
	assert.Len(t, r.State().Players, 3)

	started, err := models.NewSessionEvent(1, models.EventGameStarted, nil, models.GameStartedPayload{
		StartedAt:   time.Now().UTC(),
		PlayerCount: 3,
	})
	require.NoError(t, err)
	started.Sequence = 2
	require.True(t, r.Apply(started))
	assert.Equal(t, game.StatusActive, r.State().Status)

	winnerID := uint(1)
	ended, err := models.NewSessionEvent(1, models.EventGameEnded, nil, models.GameEndedPayload{
		Status:   game.StatusCompleted,
		WinnerID: &winnerID,
		EndedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	ended.Sequence = 3
	require.True(t, r.Apply(ended))

	final := r.State()
	assert.Equal(t, game.StatusCompleted, final.Status)
	require.NotNil(t, final.WinnerID)
	assert.Equal(t, winnerID, *final.WinnerID)
}

func TestReconcilerPredictionConfirmed(t *testing.T) {
	r := NewReconciler(newTestState(0), nil)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.True(t, r.PredictMark(0, 1, at))
	assert.True(t, r.State().Grid.Cells[0].Marked)

	// Predicting an already-marked cell fails.
	assert.False(t, r.PredictMark(0, 2, at))

	// The server confirms: the cell stays marked, now authoritative.
	require.True(t, r.Apply(markEvent(1, 0, 1, 1)))
	state := r.State()
	assert.True(t, state.Grid.Cells[0].Marked)
	assert.Equal(t, 1, state.Grid.Version)
}

func TestReconcilerPredictionRolledBackOnConflict(t *testing.T) {
	r := NewReconciler(newTestState(0), nil)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.True(t, r.PredictMark(4, 1, at))

	playerRef := uint(1)
	conflict, err := models.NewSessionEvent(1, models.EventConflictDetected, &playerRef, models.ConflictDetectedPayload{
		Position:        4,
		PlayerID:        1,
		ExpectedVersion: 0,
		ActualVersion:   2,
	})
	require.NoError(t, err)
	conflict.Sequence = 1
	require.True(t, r.Apply(conflict))

	cell := r.State().Grid.Cells[4]
	assert.False(t, cell.Marked)
	assert.Nil(t, cell.MarkedBy)
	assert.Nil(t, cell.MarkedAt)
}

func TestReconcilerHostChange(t *testing.T) {
	r := NewReconciler(newTestState(0), nil)

	event, err := models.NewSessionEvent(1, models.EventHostChanged, nil, models.HostChangedPayload{
		OldHostID: 1,
		NewHostID: 2,
	})
	require.NoError(t, err)
	event.Sequence = 1
	require.True(t, r.Apply(event))

	state := r.State()
	assert.False(t, state.Players[0].IsHost)
	assert.True(t, state.Players[1].IsHost)
}
