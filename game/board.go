package game

import (
	"fmt"
	"time"
)

const (
	MinBoardSize = 3
	MaxBoardSize = 6
)

// Cell is one square of a bingo board. Positions are row-major.
type Cell struct {
	Position       int        `json:"position"`
	Text           string     `json:"text"`
	Marked         bool       `json:"marked"`
	MarkedBy       *uint      `json:"marked_by"`
	MarkedAt       *time.Time `json:"marked_at"`
	Version        int        `json:"version"`
	LastModifiedBy *uint      `json:"last_modified_by"`
}

// Board is the in-memory view of a board's cell state. It is what gets
// serialized into the board_state and current_state jsonb columns.
type Board struct {
	Size    int    `json:"size"`
	Cells   []Cell `json:"cells"`
	Version int    `json:"version"`
}

func NewBoard(size int, texts []string) *Board {
	cells := make([]Cell, size*size)
	for i := range cells {
		cells[i].Position = i
		if i < len(texts) {
			cells[i].Text = texts[i]
		}
	}
	return &Board{Size: size, Cells: cells}
}

// ValidateBoard checks the structural invariants of a board. It either
// accepts the board as a whole or rejects it with a ValidationError naming
// the violated invariant. It never repairs anything.
func ValidateBoard(b *Board) error {
	if b == nil {
		return &ValidationError{Invariant: "board is nil"}
	}
	if b.Size < MinBoardSize || b.Size > MaxBoardSize {
		return &ValidationError{Invariant: fmt.Sprintf("size must be between %d and %d, got %d", MinBoardSize, MaxBoardSize, b.Size)}
	}
	if len(b.Cells) != b.Size*b.Size {
		return &ValidationError{Invariant: fmt.Sprintf("cell count %d does not match size*size=%d", len(b.Cells), b.Size*b.Size)}
	}
	for i, cell := range b.Cells {
		if cell.Position != i {
			return &ValidationError{Invariant: fmt.Sprintf("cell at index %d has position %d", i, cell.Position)}
		}
		if err := validateMarkTriple(&cell); err != nil {
			return err
		}
	}
	return nil
}

// marked=false implies marked_by=nil and marked_at=nil, and the converse:
// a marked cell must carry both.
func validateMarkTriple(cell *Cell) error {
	if cell.Marked {
		if cell.MarkedBy == nil || cell.MarkedAt == nil {
			return &ValidationError{Invariant: fmt.Sprintf("cell %d is marked but missing marked_by or marked_at", cell.Position)}
		}
		return nil
	}
	if cell.MarkedBy != nil || cell.MarkedAt != nil {
		return &ValidationError{Invariant: fmt.Sprintf("cell %d is unmarked but carries marked_by or marked_at", cell.Position)}
	}
	return nil
}

// ApplyCellMark returns a new board with the cell at position marked by
// playerID. The input board is never mutated. The write only goes through
// when the caller's expectedVersion matches the board's current version;
// a stale version fails with ErrVersionConflict and the caller is expected
// to refetch and retry, never to overwrite.
func ApplyCellMark(b *Board, position int, playerID uint, expectedVersion int, at time.Time) (*Board, error) {
	if position < 0 || position >= len(b.Cells) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}
	if b.Version != expectedVersion {
		return nil, fmt.Errorf("%w: have %d, expected %d", ErrVersionConflict, b.Version, expectedVersion)
	}
	if b.Cells[position].Marked {
		return nil, fmt.Errorf("%w: position %d", ErrAlreadyMarked, position)
	}

	next := b.clone()
	cell := &next.Cells[position]
	cell.Marked = true
	cell.MarkedBy = &playerID
	markedAt := at
	cell.MarkedAt = &markedAt
	cell.Version++
	cell.LastModifiedBy = &playerID
	next.Version++

	return next, nil
}

// ApplyCellUnmark is the inverse of ApplyCellMark, under the same
// optimistic-version contract.
func ApplyCellUnmark(b *Board, position int, playerID uint, expectedVersion int) (*Board, error) {
	if position < 0 || position >= len(b.Cells) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}
	if b.Version != expectedVersion {
		return nil, fmt.Errorf("%w: have %d, expected %d", ErrVersionConflict, b.Version, expectedVersion)
	}
	if !b.Cells[position].Marked {
		return nil, fmt.Errorf("%w: position %d", ErrNotMarked, position)
	}

	next := b.clone()
	cell := &next.Cells[position]
	cell.Marked = false
	cell.MarkedBy = nil
	cell.MarkedAt = nil
	cell.Version++
	cell.LastModifiedBy = &playerID
	next.Version++

	return next, nil
}

func (b *Board) clone() *Board {
	cells := make([]Cell, len(b.Cells))
	copy(cells, b.Cells)
	return &Board{Size: b.Size, Cells: cells, Version: b.Version}
}
