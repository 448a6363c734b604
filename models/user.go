package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Username     string         `json:"username" gorm:"uniqueIndex;not null"`
	Email        string         `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Boards       []Board       `json:"boards,omitempty" gorm:"foreignKey:CreatorID"`
	Achievements []Achievement `json:"achievements,omitempty" gorm:"foreignKey:UserID"`
	Speedruns    []Speedrun    `json:"speedruns,omitempty" gorm:"foreignKey:UserID"`
}
