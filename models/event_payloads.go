package models

import (
	"time"

	"arcadia/game"
)

// One concrete payload shape per event type. Payloads cross the realtime
// channel as JSON and are resolved back into these types at the boundary.

type PlayerJoinedPayload struct {
	PlayerID    uint   `json:"player_id"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	Position    int    `json:"position"`
}

type PlayerLeftPayload struct {
	PlayerID uint   `json:"player_id"`
	Reason   string `json:"reason,omitempty"`
}

type PlayerConnectionPayload struct {
	PlayerID uint   `json:"player_id"`
	Status   string `json:"status"`
}

type GameStartedPayload struct {
	StartedAt   time.Time `json:"started_at"`
	PlayerCount int       `json:"player_count"`
}

type GamePausedPayload struct {
	PausedBy uint `json:"paused_by"`
}

type GameResumedPayload struct {
	ResumedBy uint `json:"resumed_by"`
}

type GameEndedPayload struct {
	Status   string    `json:"status"`
	WinnerID *uint     `json:"winner_id,omitempty"`
	EndedAt  time.Time `json:"ended_at"`
	Reason   string    `json:"reason,omitempty"`
}

type CellMarkedPayload struct {
	Position int       `json:"position"`
	PlayerID uint      `json:"player_id"`
	MarkedAt time.Time `json:"marked_at"`
	Version  int       `json:"version"`
}

type CellUnmarkedPayload struct {
	Position int  `json:"position"`
	PlayerID uint `json:"player_id"`
	Version  int  `json:"version"`
}

type WinDetectedPayload struct {
	Pattern  game.Pattern `json:"pattern"`
	WinnerID uint         `json:"winner_id"`
	Players  []uint       `json:"players"`
}

type ConflictDetectedPayload struct {
	Position        int  `json:"position"`
	PlayerID        uint `json:"player_id"`
	ExpectedVersion int  `json:"expected_version"`
	ActualVersion   int  `json:"actual_version"`
}

type ChatMessagePayload struct {
	PlayerID uint   `json:"player_id"`
	Message  string `json:"message"`
}

type HostChangedPayload struct {
	OldHostID uint `json:"old_host_id"`
	NewHostID uint `json:"new_host_id"`
}

type SettingsUpdatedPayload struct {
	Settings SessionSettings `json:"settings"`
}

type TimerPayload struct {
	SecondsRemaining int `json:"seconds_remaining"`
}

type AchievementUnlockedPayload struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Rarity string `json:"rarity"`
}

type LeaderboardUpdatedPayload struct {
	BoardID uint  `json:"board_id"`
	UserID  uint  `json:"user_id"`
	Rank    int64 `json:"rank"`
}

func payloadFor(eventType string) any {
	switch eventType {
	case EventPlayerJoined:
		return &PlayerJoinedPayload{}
	case EventPlayerLeft:
		return &PlayerLeftPayload{}
	case EventPlayerDisconnected, EventPlayerReconnected:
		return &PlayerConnectionPayload{}
	case EventGameStarted:
		return &GameStartedPayload{}
	case EventGamePaused:
		return &GamePausedPayload{}
	case EventGameResumed:
		return &GameResumedPayload{}
	case EventGameEnded:
		return &GameEndedPayload{}
	case EventCellMarked:
		return &CellMarkedPayload{}
	case EventCellUnmarked:
		return &CellUnmarkedPayload{}
	case EventWinDetected:
		return &WinDetectedPayload{}
	case EventConflictDetected:
		return &ConflictDetectedPayload{}
	case EventChatMessage:
		return &ChatMessagePayload{}
	case EventHostChanged:
		return &HostChangedPayload{}
	case EventSettingsUpdated:
		return &SettingsUpdatedPayload{}
	case EventTimerStarted, EventTimerPaused, EventTimerStopped:
		return &TimerPayload{}
	case EventAchievementUnlock:
		return &AchievementUnlockedPayload{}
	case EventLeaderboardUpdated:
		return &LeaderboardUpdatedPayload{}
	default:
		return nil
	}
}
