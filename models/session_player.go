package models

import (
	"time"

	"gorm.io/gorm"
)

// Player connection statuses.
const (
	ConnectionConnected    = "connected"
	ConnectionDisconnected = "disconnected"
	ConnectionReconnecting = "reconnecting"
)

// SessionPlayer is one seat in a session's roster. A user holds at most one
// seat per session, each session has exactly one host, and colors are unique
// within a session; the service layer enforces the color rule on join.
type SessionPlayer struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	SessionID        uint           `json:"session_id" gorm:"not null;uniqueIndex:idx_session_user"`
	UserID           uint           `json:"user_id" gorm:"not null;uniqueIndex:idx_session_user"`
	DisplayName      string         `json:"display_name" gorm:"not null"`
	Color            string         `json:"color" gorm:"not null"`
	IsHost           bool           `json:"is_host" gorm:"default:false"`
	IsReady          bool           `json:"is_ready" gorm:"default:false"`
	Position         int            `json:"position" gorm:"not null;default:0"`
	Score            int            `json:"score" gorm:"not null;default:0"`
	TeamID           *int           `json:"team_id"`
	JoinedAt         time.Time      `json:"joined_at"`
	LeftAt           *time.Time     `json:"left_at"`
	ConnectionStatus string         `json:"connection_status" gorm:"not null;default:'connected'"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Session Session `json:"session,omitempty"`
	User    User    `json:"user,omitempty"`
}

func (SessionPlayer) TableName() string {
	return "bingo_session_players"
}

// PlayerColors is the palette seats are assigned from, in join order.
var PlayerColors = []string{
	"red", "blue", "green", "yellow", "purple", "orange", "teal", "pink",
	"indigo", "lime", "cyan", "amber",
}
