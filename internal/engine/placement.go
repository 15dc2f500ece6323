package engine

import "fmt"

// PlaceFleet validates ships and burns them into a fresh board for p.
// The previous board and fleet are replaced only when every ship is valid.
func PlaceFleet(p *Player, ships []Ship) error {
	if p.ShipsPlaced {
		return ErrAlreadyPlaced
	}
	if len(ships) == 0 {
		return ErrEmptyFleet
	}

	board := NewBoard()
	fleet := make([]Ship, len(ships))
	for i, s := range ships {
		if !s.valid() {
			return fmt.Errorf("%w: ship %d (%s, length %d)", ErrInvalidShip, i, s.Kind, s.Length)
		}
		for _, c := range s.Cells() {
			if !InBounds(c) {
				return fmt.Errorf("%w: ship %d covers (%d,%d)", ErrOutOfBounds, i, c.X, c.Y)
			}
			if board.Status(c) == CellShip {
				return fmt.Errorf("%w: ship %d at (%d,%d)", ErrOverlap, i, c.X, c.Y)
			}
			board.set(c, CellShip)
			board.owner[c.Y][c.X] = i + 1
		}
		s.Hits = 0
		s.Sunk = false
		fleet[i] = s
	}

	p.Board = board
	p.Ships = fleet
	p.ShipsPlaced = true
	return nil
}
