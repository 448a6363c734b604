package models

import (
	"time"

	"gorm.io/gorm"
)

// Achievement rarity tiers.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Achievement is one user's progress against a catalogue entry. A row is
// unlocked when progress reaches max_progress; unlocked_at never changes
// after that.
type Achievement struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"not null;uniqueIndex:idx_user_achievement"`
	Name        string         `json:"name" gorm:"not null;uniqueIndex:idx_user_achievement"`
	Category    string         `json:"category"`
	Points      int            `json:"points" gorm:"not null;default:0"`
	Progress    int            `json:"progress" gorm:"not null;default:0"`
	MaxProgress int            `json:"max_progress" gorm:"not null;default:1"`
	Rarity      string         `json:"rarity" gorm:"default:'common'"`
	UnlockedAt  *time.Time     `json:"unlocked_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User User `json:"user,omitempty"`
}

func (Achievement) TableName() string {
	return "user_achievements"
}

func (a *Achievement) IsUnlocked() bool {
	return a.UnlockedAt != nil
}

// ApplyProgress moves the progress counter by delta, clamped to
// [0, max_progress], and reports whether this call unlocked the
// achievement. Already-unlocked achievements are left untouched, so
// duplicate delivery of the same underlying event never unlocks twice.
func (a *Achievement) ApplyProgress(delta int, now time.Time) (unlockedNow bool) {
	if a.IsUnlocked() {
		return false
	}

	a.Progress += delta
	if a.Progress < 0 {
		a.Progress = 0
	}
	if a.Progress > a.MaxProgress {
		a.Progress = a.MaxProgress
	}

	if a.Progress >= a.MaxProgress {
		unlocked := now
		a.UnlockedAt = &unlocked
		return true
	}
	return false
}

// AchievementDef is one entry of the fixed achievement catalogue.
type AchievementDef struct {
	Name        string
	Category    string
	Points      int
	MaxProgress int
	Rarity      string
}

// AchievementCatalogue is the fixed set of achievements players can earn.
var AchievementCatalogue = []AchievementDef{
	{Name: "first_win", Category: "gameplay", Points: 10, MaxProgress: 1, Rarity: RarityCommon},
	{Name: "ten_wins", Category: "gameplay", Points: 50, MaxProgress: 10, Rarity: RarityUncommon},
	{Name: "hundred_wins", Category: "gameplay", Points: 250, MaxProgress: 100, Rarity: RarityEpic},
	{Name: "first_mark", Category: "gameplay", Points: 5, MaxProgress: 1, Rarity: RarityCommon},
	{Name: "marksman", Category: "gameplay", Points: 100, MaxProgress: 500, Rarity: RarityRare},
	{Name: "board_creator", Category: "community", Points: 15, MaxProgress: 1, Rarity: RarityCommon},
	{Name: "prolific_creator", Category: "community", Points: 100, MaxProgress: 25, Rarity: RarityRare},
	{Name: "social_butterfly", Category: "community", Points: 50, MaxProgress: 20, Rarity: RarityUncommon},
	{Name: "speed_demon", Category: "speedrun", Points: 75, MaxProgress: 1, Rarity: RarityRare},
	{Name: "world_record", Category: "speedrun", Points: 500, MaxProgress: 1, Rarity: RarityLegendary},
}

func AchievementDefByName(name string) (AchievementDef, bool) {
	for _, def := range AchievementCatalogue {
		if def.Name == name {
			return def, true
		}
	}
	return AchievementDef{}, false
}
