package engine

// BoardSize is the width and height of every board.
const BoardSize = 10

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type CellStatus string

const (
	CellEmpty        CellStatus = "empty"
	CellShip         CellStatus = "ship"
	CellHit          CellStatus = "hit"
	CellMiss         CellStatus = "miss"
	CellSunk         CellStatus = "sunk"
	CellSunkNeighbor CellStatus = "sunk-neighbor"
)

// Attacked reports whether a cell in this status can no longer be targeted.
func (s CellStatus) Attacked() bool {
	switch s {
	case CellHit, CellMiss, CellSunk, CellSunkNeighbor:
		return true
	}
	return false
}

type Cell struct {
	Position Position   `json:"position"`
	Status   CellStatus `json:"status"`
}

// Board is a value type: assigning it copies every cell.
// owner holds index+1 of the ship covering a cell, 0 for water.
type Board struct {
	cells [BoardSize][BoardSize]CellStatus
	owner [BoardSize][BoardSize]int
}

func NewBoard() Board {
	var b Board
	for y := range b.cells {
		for x := range b.cells[y] {
			b.cells[y][x] = CellEmpty
		}
	}
	return b
}

func InBounds(p Position) bool {
	return p.X >= 0 && p.X < BoardSize && p.Y >= 0 && p.Y < BoardSize
}

func (b *Board) InBounds(p Position) bool { return InBounds(p) }

// CellAt returns the cell at p. Out-of-bounds positions report an empty cell;
// callers check InBounds first.
func (b *Board) CellAt(p Position) Cell {
	return Cell{Position: p, Status: b.Status(p)}
}

func (b *Board) Status(p Position) CellStatus {
	if !InBounds(p) {
		return CellEmpty
	}
	s := b.cells[p.Y][p.X]
	if s == "" {
		return CellEmpty
	}
	return s
}

func (b *Board) IsAlreadyAttacked(p Position) bool {
	return InBounds(p) && b.Status(p).Attacked()
}

// Candidates lists every cell not yet attacked, row by row.
func (b *Board) Candidates() []Position {
	out := make([]Position, 0, BoardSize*BoardSize)
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			p := Position{X: x, Y: y}
			if !b.Status(p).Attacked() {
				out = append(out, p)
			}
		}
	}
	return out
}

// Cells returns a row-major copy of the grid, mostly for views and tests.
func (b *Board) Cells() [][]Cell {
	rows := make([][]Cell, BoardSize)
	for y := range rows {
		rows[y] = make([]Cell, BoardSize)
		for x := range rows[y] {
			rows[y][x] = b.CellAt(Position{X: x, Y: y})
		}
	}
	return rows
}

func (b *Board) set(p Position, s CellStatus) { b.cells[p.Y][p.X] = s }

func (b *Board) shipAt(p Position) (int, bool) {
	i := b.owner[p.Y][p.X]
	return i - 1, i > 0
}

// neighbors returns the in-bounds 8-neighbourhood of p.
func neighbors(p Position) []Position {
	out := make([]Position, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := Position{X: p.X + dx, Y: p.Y + dy}
			if InBounds(n) {
				out = append(out, n)
			}
		}
	}
	return out
}
