package game

// WinResult is the outcome of a win-detection pass.
type WinResult struct {
	Won      bool     `json:"won"`
	Pattern  *Pattern `json:"pattern,omitempty"`
	Players  []uint   `json:"players,omitempty"`
	WinnerID uint     `json:"winner_id,omitempty"`
}

// DetectWin evaluates the cell-mark matrix against the pattern catalogue for
// the given size, filtered by the enabled win-condition flags. Patterns are
// checked in declaration order (rows, columns, diagonals, corners,
// center-plus) and the first fully marked one wins.
//
// When several players' marks jointly complete the pattern, the credited
// winner is the player who placed the latest mark in it, by mark timestamp;
// identical timestamps fall back to the lowest cell position. The function
// is pure: no I/O, no mutation, same result on every call.
func DetectWin(cells []Cell, size int, set PatternSet) WinResult {
	if len(cells) != size*size {
		return WinResult{}
	}

	for _, pattern := range PatternsFor(size) {
		if !set.allows(pattern.Kind) {
			continue
		}
		if !patternComplete(cells, pattern.Positions) {
			continue
		}

		p := pattern
		return WinResult{
			Won:      true,
			Pattern:  &p,
			Players:  patternPlayers(cells, pattern.Positions),
			WinnerID: creditedWinner(cells, pattern.Positions),
		}
	}

	return WinResult{}
}

func patternComplete(cells []Cell, positions []int) bool {
	for _, pos := range positions {
		if !cells[pos].Marked {
			return false
		}
	}
	return true
}

// patternPlayers returns the distinct marking players of a pattern, in cell
// position order.
func patternPlayers(cells []Cell, positions []int) []uint {
	seen := make(map[uint]bool)
	var players []uint
	for _, pos := range positions {
		if cells[pos].MarkedBy == nil {
			continue
		}
		id := *cells[pos].MarkedBy
		if !seen[id] {
			seen[id] = true
			players = append(players, id)
		}
	}
	return players
}

func creditedWinner(cells []Cell, positions []int) uint {
	var winner uint
	var latest *Cell
	for _, pos := range positions {
		cell := &cells[pos]
		if cell.MarkedBy == nil || cell.MarkedAt == nil {
			continue
		}
		if latest == nil || cell.MarkedAt.After(*latest.MarkedAt) {
			latest = cell
			winner = *cell.MarkedBy
		}
	}
	return winner
}
