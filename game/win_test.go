package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// markCells marks each given position for the matching player at the given
// offset (in seconds) from a fixed base time.
func markCells(b *Board, marks map[int]struct {
	player uint
	offset int
}) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	for pos, m := range marks {
		at := base.Add(time.Duration(m.offset) * time.Second)
		player := m.player
		cell := &b.Cells[pos]
		cell.Marked = true
		cell.MarkedBy = &player
		cell.MarkedAt = &at
		cell.Version++
	}
}

type mark = struct {
	player uint
	offset int
}

func TestDetectWinRow(t *testing.T) {
	b := NewBoard(5, texts(25))
	markCells(b, map[int]mark{
		0: {player: 1, offset: 0},
		1: {player: 1, offset: 1},
		2: {player: 1, offset: 2},
		3: {player: 1, offset: 3},
		4: {player: 1, offset: 4},
	})

	result := DetectWin(b.Cells, 5, DefaultPatternSet())
	require.True(t, result.Won)
	assert.Equal(t, KindRow, result.Pattern.Kind)
	assert.Equal(t, "row-0", result.Pattern.Name)
	assert.Equal(t, []uint{1}, result.Players)
	assert.Equal(t, uint(1), result.WinnerID)
}

func TestDetectWinNoWin(t *testing.T) {
	b := NewBoard(5, texts(25))
	markCells(b, map[int]mark{
		0: {player: 1, offset: 0},
		1: {player: 1, offset: 1},
		2: {player: 1, offset: 2},
		3: {player: 1, offset: 3},
	})

	result := DetectWin(b.Cells, 5, DefaultPatternSet())
	assert.False(t, result.Won)
	assert.Nil(t, result.Pattern)
}

func TestDetectWinColumn(t *testing.T) {
	b := NewBoard(4, texts(16))
	markCells(b, map[int]mark{
		1:  {player: 2, offset: 0},
		5:  {player: 2, offset: 1},
		9:  {player: 2, offset: 2},
		13: {player: 2, offset: 3},
	})

	result := DetectWin(b.Cells, 4, DefaultPatternSet())
	require.True(t, result.Won)
	assert.Equal(t, KindColumn, result.Pattern.Kind)
	assert.Equal(t, "column-1", result.Pattern.Name)
}

func TestDetectWinDiagonals(t *testing.T) {
	b := NewBoard(3, texts(9))
	markCells(b, map[int]mark{
		0: {player: 1, offset: 0},
		4: {player: 1, offset: 1},
		8: {player: 1, offset: 2},
	})

	result := DetectWin(b.Cells, 3, DefaultPatternSet())
	require.True(t, result.Won)
	assert.Equal(t, "diagonal-main", result.Pattern.Name)

	b = NewBoard(3, texts(9))
	markCells(b, map[int]mark{
		2: {player: 1, offset: 0},
		4: {player: 1, offset: 1},
		6: {player: 1, offset: 2},
	})

	result = DetectWin(b.Cells, 3, DefaultPatternSet())
	require.True(t, result.Won)
	assert.Equal(t, "diagonal-anti", result.Pattern.Name)
}

func TestDetectWinFourCorners(t *testing.T) {
	b := NewBoard(5, texts(25))
	markCells(b, map[int]mark{
		0:  {player: 3, offset: 0},
		4:  {player: 3, offset: 1},
		20: {player: 3, offset: 2},
		24: {player: 3, offset: 3},
	})

	result := DetectWin(b.Cells, 5, DefaultPatternSet())
	require.True(t, result.Won)
	assert.Equal(t, KindCorners, result.Pattern.Kind)
	assert.Equal(t, "four-corners", result.Pattern.Name)
}

func TestDetectWinCenterPlus(t *testing.T) {
	// 5x5 center is 12; plus shape is 7, 11, 12, 13, 17.
	b := NewBoard(5, texts(25))
	markCells(b, map[int]mark{
		7:  {player: 1, offset: 0},
		11: {player: 1, offset: 1},
		12: {player: 1, offset: 2},
		13: {player: 1, offset: 3},
		17: {player: 1, offset: 4},
	})

	result := DetectWin(b.Cells, 5, DefaultPatternSet())
	require.True(t, result.Won)
	assert.Equal(t, KindCenterPlus, result.Pattern.Kind)
}

func TestDetectWinDisabledPattern(t *testing.T) {
	b := NewBoard(5, texts(25))
	markCells(b, map[int]mark{
		0:  {player: 3, offset: 0},
		4:  {player: 3, offset: 1},
		20: {player: 3, offset: 2},
		24: {player: 3, offset: 3},
	})

	set := DefaultPatternSet()
	set.Corners = false

	result := DetectWin(b.Cells, 5, set)
	assert.False(t, result.Won)
}

func TestDetectWinRowsBeforeColumns(t *testing.T) {
	// Row 0 and column 0 complete simultaneously; rows are checked first.
	b := NewBoard(3, texts(9))
	markCells(b, map[int]mark{
		0: {player: 1, offset: 0},
		1: {player: 1, offset: 1},
		2: {player: 1, offset: 2},
		3: {player: 1, offset: 3},
		6: {player: 1, offset: 4},
	})

	result := DetectWin(b.Cells, 3, DefaultPatternSet())
	require.True(t, result.Won)
	assert.Equal(t, KindRow, result.Pattern.Kind)
}

func TestDetectWinCreditsLatestMark(t *testing.T) {
	// Two players complete a row together; whoever placed the final mark
	// gets the credit.
	b := NewBoard(3, texts(9))
	markCells(b, map[int]mark{
		0: {player: 1, offset: 0},
		1: {player: 2, offset: 10},
		2: {player: 1, offset: 5},
	})

	result := DetectWin(b.Cells, 3, DefaultPatternSet())
	require.True(t, result.Won)
	assert.Equal(t, uint(2), result.WinnerID)
	assert.Equal(t, []uint{1, 2}, result.Players)
}

func TestDetectWinTimestampTieLowestPosition(t *testing.T) {
	// Identical timestamps: the mark at the lowest position wins the tie.
	b := NewBoard(3, texts(9))
	markCells(b, map[int]mark{
		0: {player: 5, offset: 3},
		1: {player: 6, offset: 3},
		2: {player: 7, offset: 3},
	})

	result := DetectWin(b.Cells, 3, DefaultPatternSet())
	require.True(t, result.Won)
	assert.Equal(t, uint(5), result.WinnerID)
}

func TestDetectWinSizeMismatch(t *testing.T) {
	b := NewBoard(3, texts(9))
	result := DetectWin(b.Cells, 5, DefaultPatternSet())
	assert.False(t, result.Won)
}

func TestPatternsForCenterPlusOnlyOddSizes(t *testing.T) {
	for _, size := range []int{3, 5} {
		found := false
		for _, p := range PatternsFor(size) {
			if p.Kind == KindCenterPlus {
				found = true
			}
		}
		assert.True(t, found, "size %d should have a center-plus pattern", size)
	}

	for _, size := range []int{4, 6} {
		for _, p := range PatternsFor(size) {
			assert.NotEqual(t, KindCenterPlus, p.Kind, "size %d should not have a center-plus pattern", size)
		}
	}
}

func TestPatternsForCounts(t *testing.T) {
	// 5x5: 5 rows + 5 columns + 2 diagonals + corners + center-plus.
	assert.Len(t, PatternsFor(5), 14)
	// 4x4: 4 rows + 4 columns + 2 diagonals + corners.
	assert.Len(t, PatternsFor(4), 11)
}
