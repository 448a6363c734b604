package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyProgressUnlocksOnce(t *testing.T) {
	a := Achievement{MaxProgress: 3}
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	assert.False(t, a.ApplyProgress(1, now))
	assert.False(t, a.ApplyProgress(1, now))
	assert.Equal(t, 2, a.Progress)
	assert.Nil(t, a.UnlockedAt)

	assert.True(t, a.ApplyProgress(1, now))
	require.NotNil(t, a.UnlockedAt)
	assert.Equal(t, now, *a.UnlockedAt)

	// Progress past the unlock is a no-op, including the timestamp.
	later := now.Add(time.Hour)
	assert.False(t, a.ApplyProgress(1, later))
	assert.Equal(t, 3, a.Progress)
	assert.Equal(t, now, *a.UnlockedAt)
}

func TestApplyProgressClamps(t *testing.T) {
	a := Achievement{MaxProgress: 10}
	now := time.Now()

	assert.False(t, a.ApplyProgress(-5, now))
	assert.Equal(t, 0, a.Progress)

	assert.True(t, a.ApplyProgress(100, now))
	assert.Equal(t, 10, a.Progress)
}

func TestAchievementCatalogueNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range AchievementCatalogue {
		assert.False(t, seen[def.Name], "duplicate catalogue entry %s", def.Name)
		seen[def.Name] = true

		_, ok := AchievementDefByName(def.Name)
		assert.True(t, ok)
	}

	_, ok := AchievementDefByName("does_not_exist")
	assert.False(t, ok)
}
