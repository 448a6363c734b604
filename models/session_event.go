package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SessionEvent types. Every mutation of a session appends exactly one event
// with the next per-session sequence number; clients use the sequence to
// detect missed or duplicated realtime deliveries.
const (
	EventPlayerJoined       = "player_joined"
	EventPlayerLeft         = "player_left"
	EventPlayerDisconnected = "player_disconnected"
	EventPlayerReconnected  = "player_reconnected"
	EventGameStarted        = "game_started"
	EventGamePaused         = "game_paused"
	EventGameResumed        = "game_resumed"
	EventGameEnded          = "game_ended"
	EventCellMarked         = "cell_marked"
	EventCellUnmarked       = "cell_unmarked"
	EventWinDetected        = "win_detected"
	EventConflictDetected   = "conflict_detected"
	EventChatMessage        = "chat_message"
	EventHostChanged        = "host_changed"
	EventSettingsUpdated    = "settings_updated"
	EventTimerStarted       = "timer_started"
	EventTimerPaused        = "timer_paused"
	EventTimerStopped       = "timer_stopped"
	EventAchievementUnlock  = "achievement_unlocked"
	EventLeaderboardUpdated = "leaderboard_updated"
)

// SessionEvent is one entry in the append-only, sequence-numbered log of
// everything that happened in a session.
type SessionEvent struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	SessionID uint           `json:"session_id" gorm:"not null;uniqueIndex:idx_session_sequence"`
	EventType string         `json:"event_type" gorm:"not null"`
	PlayerID  *uint          `json:"player_id"`
	Sequence  int64          `json:"sequence" gorm:"not null;uniqueIndex:idx_session_sequence"`
	Timestamp time.Time      `json:"timestamp" gorm:"not null"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`

	// Relationships
	Session Session `json:"session,omitempty"`
}

func (SessionEvent) TableName() string {
	return "bingo_session_events"
}

// NewSessionEvent builds an event with its payload encoded. The sequence is
// assigned by the session service inside the same transaction that applies
// the change.
func NewSessionEvent(sessionID uint, eventType string, playerID *uint, payload any) (*SessionEvent, error) {
	event := &SessionEvent{
		SessionID: sessionID,
		EventType: eventType,
		PlayerID:  playerID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
		}
		event.Payload = datatypes.JSON(data)
	}
	return event, nil
}

// DecodePayload resolves the jsonb payload into the concrete payload struct
// for the event's type, so nothing downstream has to touch raw JSON.
func (e *SessionEvent) DecodePayload() (any, error) {
	target := payloadFor(e.EventType)
	if target == nil || len(e.Payload) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", e.EventType, err)
	}
	return target, nil
}
