package models

import (
	"encoding/json"
	"fmt"
	"time"

	"arcadia/game"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Board lifecycle statuses.
const (
	BoardStatusDraft     = "draft"
	BoardStatusActive    = "active"
	BoardStatusPaused    = "paused"
	BoardStatusCompleted = "completed"
	BoardStatusArchived  = "archived"
)

// BoardSettings is the settings jsonb column of a board.
type BoardSettings struct {
	TeamMode      bool            `json:"team_mode"`
	Lockout       bool            `json:"lockout"`
	SoundEnabled  bool            `json:"sound_enabled"`
	WinConditions game.PatternSet `json:"win_conditions"`
	MinPlayers    int             `json:"min_players"`
}

func DefaultBoardSettings() BoardSettings {
	return BoardSettings{
		SoundEnabled:  true,
		WinConditions: game.DefaultPatternSet(),
		MinPlayers:    1,
	}
}

// Board is a reusable grid template of cells, playable in many sessions.
// The cell array lives in the board_state jsonb column.
type Board struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Title         string         `json:"title" gorm:"not null"`
	Description   string         `json:"description"`
	CreatorID     uint           `json:"creator_id" gorm:"not null;index"`
	GameCategory  string         `json:"game_category" gorm:"index"`
	Difficulty    string         `json:"difficulty"`
	Size          int            `json:"size" gorm:"not null"`
	IsPublic      bool           `json:"is_public" gorm:"default:false;index"`
	BoardState    datatypes.JSON `json:"board_state" gorm:"type:jsonb"`
	Settings      datatypes.JSON `json:"settings" gorm:"type:jsonb"`
	Votes         int            `json:"votes" gorm:"default:0"`
	BookmarkCount int            `json:"bookmark_count" gorm:"default:0"`
	Status        string         `json:"status" gorm:"not null;default:'draft'"`
	Version       int            `json:"version" gorm:"not null;default:0"`
	ClonedFrom    *uint          `json:"cloned_from"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Creator  User      `json:"creator,omitempty"`
	Sessions []Session `json:"sessions,omitempty" gorm:"foreignKey:BoardID"`
}

func (Board) TableName() string {
	return "bingo_boards"
}

// CellGrid decodes the board_state column into the core board view.
func (b *Board) CellGrid() (*game.Board, error) {
	grid := &game.Board{Size: b.Size, Version: b.Version}
	if len(b.BoardState) == 0 {
		return grid, nil
	}
	if err := json.Unmarshal(b.BoardState, &grid.Cells); err != nil {
		return nil, fmt.Errorf("failed to decode board state: %w", err)
	}
	return grid, nil
}

// SetCellGrid encodes the core board view back into board_state and keeps
// the version counter in sync.
func (b *Board) SetCellGrid(grid *game.Board) error {
	data, err := json.Marshal(grid.Cells)
	if err != nil {
		return fmt.Errorf("failed to encode board state: %w", err)
	}
	b.BoardState = datatypes.JSON(data)
	b.Version = grid.Version
	return nil
}

// ParsedSettings decodes the settings column, falling back to defaults for
// boards created before a settings field existed.
func (b *Board) ParsedSettings() BoardSettings {
	settings := DefaultBoardSettings()
	if len(b.Settings) > 0 {
		if err := json.Unmarshal(b.Settings, &settings); err != nil {
			return DefaultBoardSettings()
		}
	}
	if settings.MinPlayers < 1 {
		settings.MinPlayers = 1
	}
	return settings
}

func (b *Board) SetSettings(settings BoardSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode board settings: %w", err)
	}
	b.Settings = datatypes.JSON(data)
	return nil
}
