package models

import (
	"encoding/json"
	"fmt"
	"time"

	"arcadia/game"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionSettings is the settings jsonb column of a session.
type SessionSettings struct {
	MaxPlayers       int  `json:"max_players"`
	AllowSpectators  bool `json:"allow_spectators"`
	AutoStart        bool `json:"auto_start"`
	TimeLimitSeconds int  `json:"time_limit_seconds"`
	RequireApproval  bool `json:"require_approval"`
}

func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		MaxPlayers:      8,
		AllowSpectators: true,
	}
}

// Session is one live play-through of a board. current_state holds the cell
// snapshot; the version counter guards every optimistic write against it.
type Session struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	BoardID      uint           `json:"board_id" gorm:"not null;index"`
	HostID       uint           `json:"host_id" gorm:"not null"`
	SessionCode  string         `json:"session_code" gorm:"uniqueIndex;not null"`
	Status       string         `json:"status" gorm:"not null;default:'waiting'"`
	Settings     datatypes.JSON `json:"settings" gorm:"type:jsonb"`
	CurrentState datatypes.JSON `json:"current_state" gorm:"type:jsonb"`
	WinnerID     *uint          `json:"winner_id"`
	StartedAt    *time.Time     `json:"started_at"`
	EndedAt      *time.Time     `json:"ended_at"`
	Version      int            `json:"version" gorm:"not null;default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Board   Board           `json:"board,omitempty"`
	Players []SessionPlayer `json:"players,omitempty" gorm:"foreignKey:SessionID"`
	Events  []SessionEvent  `json:"events,omitempty" gorm:"foreignKey:SessionID"`
}

func (Session) TableName() string {
	return "bingo_sessions"
}

// CellGrid decodes the current_state column into the core board view.
func (s *Session) CellGrid() (*game.Board, error) {
	grid := &game.Board{Version: s.Version}
	if len(s.CurrentState) == 0 {
		return grid, nil
	}
	if err := json.Unmarshal(s.CurrentState, grid); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	grid.Version = s.Version
	return grid, nil
}

func (s *Session) SetCellGrid(grid *game.Board) error {
	grid.Version = s.Version
	data, err := json.Marshal(grid)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}
	s.CurrentState = datatypes.JSON(data)
	return nil
}

func (s *Session) ParsedSettings() SessionSettings {
	settings := DefaultSessionSettings()
	if len(s.Settings) > 0 {
		if err := json.Unmarshal(s.Settings, &settings); err != nil {
			return DefaultSessionSettings()
		}
	}
	if settings.MaxPlayers < 1 {
		settings.MaxPlayers = DefaultSessionSettings().MaxPlayers
	}
	return settings
}

func (s *Session) SetSettings(settings SessionSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode session settings: %w", err)
	}
	s.Settings = datatypes.JSON(data)
	return nil
}
