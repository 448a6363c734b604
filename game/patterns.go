package game

import "strconv"

// Pattern kinds, in the order they are evaluated by DetectWin.
const (
	KindRow        = "row"
	KindColumn     = "column"
	KindDiagonal   = "diagonal"
	KindCorners    = "corners"
	KindCenterPlus = "center_plus"
)

// Pattern is a fixed list of cell positions that ends the game when every
// listed cell is marked.
type Pattern struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Positions []int  `json:"positions"`
}

// PatternSet holds the per-session win-condition flags. Field names match
// the win_conditions object inside board settings.
type PatternSet struct {
	Rows       bool `json:"rows"`
	Columns    bool `json:"columns"`
	Diagonals  bool `json:"diagonals"`
	Corners    bool `json:"corners"`
	CenterPlus bool `json:"center_plus"`
}

func DefaultPatternSet() PatternSet {
	return PatternSet{Rows: true, Columns: true, Diagonals: true, Corners: true, CenterPlus: true}
}

func (s PatternSet) allows(kind string) bool {
	switch kind {
	case KindRow:
		return s.Rows
	case KindColumn:
		return s.Columns
	case KindDiagonal:
		return s.Diagonals
	case KindCorners:
		return s.Corners
	case KindCenterPlus:
		return s.CenterPlus
	default:
		return false
	}
}

// PatternsFor builds the pattern catalogue for a grid size, in declaration
// order: rows, columns, main diagonal, anti diagonal, four corners,
// center-plus. Center-plus only exists on odd sizes, since even grids have
// no center cell.
func PatternsFor(size int) []Pattern {
	patterns := make([]Pattern, 0, 2*size+4)

	for row := 0; row < size; row++ {
		positions := make([]int, size)
		for col := 0; col < size; col++ {
			positions[col] = row*size + col
		}
		patterns = append(patterns, Pattern{Kind: KindRow, Name: rowName(row), Positions: positions})
	}

	for col := 0; col < size; col++ {
		positions := make([]int, size)
		for row := 0; row < size; row++ {
			positions[row] = row*size + col
		}
		patterns = append(patterns, Pattern{Kind: KindColumn, Name: colName(col), Positions: positions})
	}

	main := make([]int, size)
	anti := make([]int, size)
	for i := 0; i < size; i++ {
		main[i] = i*size + i
		anti[i] = i*size + (size - 1 - i)
	}
	patterns = append(patterns,
		Pattern{Kind: KindDiagonal, Name: "diagonal-main", Positions: main},
		Pattern{Kind: KindDiagonal, Name: "diagonal-anti", Positions: anti},
	)

	patterns = append(patterns, Pattern{
		Kind:      KindCorners,
		Name:      "four-corners",
		Positions: []int{0, size - 1, size * (size - 1), size*size - 1},
	})

	if size%2 == 1 {
		center := (size*size - 1) / 2
		patterns = append(patterns, Pattern{
			Kind:      KindCenterPlus,
			Name:      "center-plus",
			Positions: []int{center - size, center - 1, center, center + 1, center + size},
		})
	}

	return patterns
}

func rowName(row int) string {
	return "row-" + strconv.Itoa(row)
}

func colName(col int) string {
	return "column-" + strconv.Itoa(col)
}
