package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "cell"
	}
	return out
}

func TestNewBoard(t *testing.T) {
	b := NewBoard(5, texts(25))

	assert.Equal(t, 5, b.Size)
	assert.Len(t, b.Cells, 25)
	assert.Equal(t, 0, b.Version)
	for i, cell := range b.Cells {
		assert.Equal(t, i, cell.Position)
		assert.False(t, cell.Marked)
	}
}

func TestValidateBoard(t *testing.T) {
	playerID := uint(7)
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*Board)
		wantErr bool
	}{
		{
			name:   "valid fresh board",
			mutate: func(b *Board) {},
		},
		{
			name:    "size too small",
			mutate:  func(b *Board) { b.Size = 2 },
			wantErr: true,
		},
		{
			name:    "size too large",
			mutate:  func(b *Board) { b.Size = 7 },
			wantErr: true,
		},
		{
			name:    "cell count mismatch",
			mutate:  func(b *Board) { b.Cells = b.Cells[:10] },
			wantErr: true,
		},
		{
			name:    "position mismatch",
			mutate:  func(b *Board) { b.Cells[3].Position = 9 },
			wantErr: true,
		},
		{
			name: "marked cell without marker",
			mutate: func(b *Board) {
				b.Cells[0].Marked = true
			},
			wantErr: true,
		},
		{
			name: "unmarked cell with marker",
			mutate: func(b *Board) {
				b.Cells[0].MarkedBy = &playerID
				b.Cells[0].MarkedAt = &now
			},
			wantErr: true,
		},
		{
			name: "consistent marked cell",
			mutate: func(b *Board) {
				b.Cells[0].Marked = true
				b.Cells[0].MarkedBy = &playerID
				b.Cells[0].MarkedAt = &now
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBoard(4, texts(16))
			tt.mutate(b)

			err := ValidateBoard(b)
			if tt.wantErr {
				var validationErr *ValidationError
				require.Error(t, err)
				assert.True(t, errors.As(err, &validationErr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyCellMark(t *testing.T) {
	b := NewBoard(3, texts(9))
	at := time.Now().UTC()

	next, err := ApplyCellMark(b, 4, 11, 0, at)
	require.NoError(t, err)

	assert.True(t, next.Cells[4].Marked)
	require.NotNil(t, next.Cells[4].MarkedBy)
	assert.Equal(t, uint(11), *next.Cells[4].MarkedBy)
	require.NotNil(t, next.Cells[4].MarkedAt)
	assert.Equal(t, at, *next.Cells[4].MarkedAt)
	assert.Equal(t, 1, next.Cells[4].Version)
	assert.Equal(t, 1, next.Version)

	// The input board is untouched.
	assert.False(t, b.Cells[4].Marked)
	assert.Equal(t, 0, b.Version)
}

func TestApplyCellMarkVersionConflict(t *testing.T) {
	b := NewBoard(3, texts(9))
	at := time.Now().UTC()

	first, err := ApplyCellMark(b, 0, 1, 0, at)
	require.NoError(t, err)

	// A second writer holding the stale version loses.
	_, err = ApplyCellMark(first, 1, 2, 0, at)
	assert.ErrorIs(t, err, ErrVersionConflict)

	// Retrying with the fresh version succeeds.
	second, err := ApplyCellMark(first, 1, 2, first.Version, at)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
}

func TestApplyCellMarkErrors(t *testing.T) {
	b := NewBoard(3, texts(9))
	at := time.Now().UTC()

	_, err := ApplyCellMark(b, -1, 1, 0, at)
	assert.ErrorIs(t, err, ErrInvalidPosition)

	_, err = ApplyCellMark(b, 9, 1, 0, at)
	assert.ErrorIs(t, err, ErrInvalidPosition)

	marked, err := ApplyCellMark(b, 2, 1, 0, at)
	require.NoError(t, err)

	_, err = ApplyCellMark(marked, 2, 2, marked.Version, at)
	assert.ErrorIs(t, err, ErrAlreadyMarked)
}

func TestApplyCellUnmark(t *testing.T) {
	b := NewBoard(3, texts(9))
	at := time.Now().UTC()

	marked, err := ApplyCellMark(b, 5, 3, 0, at)
	require.NoError(t, err)

	unmarked, err := ApplyCellUnmark(marked, 5, 3, marked.Version)
	require.NoError(t, err)

	cell := unmarked.Cells[5]
	assert.False(t, cell.Marked)
	assert.Nil(t, cell.MarkedBy)
	assert.Nil(t, cell.MarkedAt)
	require.NotNil(t, cell.LastModifiedBy)
	assert.Equal(t, uint(3), *cell.LastModifiedBy)
	assert.Equal(t, 2, unmarked.Version)

	// Unmarking twice fails.
	_, err = ApplyCellUnmark(unmarked, 5, 3, unmarked.Version)
	assert.ErrorIs(t, err, ErrNotMarked)

	// Stale version fails.
	_, err = ApplyCellUnmark(marked, 5, 3, 0)
	assert.ErrorIs(t, err, ErrVersionConflict)
}
