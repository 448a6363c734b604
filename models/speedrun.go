package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Speedrun is one timed completion of a board. Times carry millisecond
// precision; rank is derived from the redis leaderboard at submit time.
type Speedrun struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	UserID         uint           `json:"user_id" gorm:"not null;index"`
	BoardID        uint           `json:"board_id" gorm:"not null;index"`
	TimeSeconds    float64        `json:"time_seconds" gorm:"not null"`
	Verified       bool           `json:"verified" gorm:"default:false"`
	IsPersonalBest bool           `json:"is_personal_best" gorm:"default:false"`
	Rank           int64          `json:"rank" gorm:"default:0"`
	Category       string         `json:"category" gorm:"index"`
	Metadata       datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User  User  `json:"user,omitempty"`
	Board Board `json:"board,omitempty"`
}

func (Speedrun) TableName() string {
	return "speedruns"
}

// SpeedrunMetadata is the metadata jsonb column.
type SpeedrunMetadata struct {
	InputMethod string    `json:"input_method,omitempty"`
	SplitTimes  []float64 `json:"split_times,omitempty"`
}

func (s *Speedrun) SetMetadata(meta SpeedrunMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	s.Metadata = datatypes.JSON(data)
	return nil
}

func (s *Speedrun) ParsedMetadata() (SpeedrunMetadata, error) {
	var meta SpeedrunMetadata
	if len(s.Metadata) == 0 {
		return meta, nil
	}
	err := json.Unmarshal(s.Metadata, &meta)
	return meta, err
}
