package engine

import "fmt"

type AttackResult string

const (
	ResultMiss   AttackResult = "miss"
	ResultHit    AttackResult = "hit"
	ResultKilled AttackResult = "killed"
)

type AttackOutcome struct {
	MatchID  string
	Result   AttackResult
	Attacker Slot
	Position Position
	// Ship is the sunk ship, set only for ResultKilled.
	Ship *Ship
	// Revealed are the empty cells around a sunk ship, now known to be water.
	Revealed []Position
	// NextTurn is NoSlot once the match is over.
	NextTurn Slot
	GameOver bool
	Winner   Slot
}

func (m *Match) checkCanAttack(attacker Slot) error {
	switch m.Phase {
	case PhaseFinished:
		return ErrMatchFinished
	case PhaseActive:
	default:
		return ErrNotActive
	}
	if _, ok := attacker.index(); !ok {
		return ErrUnknownSlot
	}
	if attacker != m.Turn {
		return ErrNotYourTurn
	}
	return nil
}

// Attack fires at pos on the opponent's board. A miss passes the turn; a hit
// or a kill keeps it. Nothing is mutated when an error is returned.
func (m *Match) Attack(attacker Slot, pos Position) (AttackOutcome, error) {
	if err := m.checkCanAttack(attacker); err != nil {
		return AttackOutcome{}, err
	}
	if !InBounds(pos) {
		return AttackOutcome{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, pos.X, pos.Y)
	}
	defender, _ := m.Player(attacker.Other())
	board := &defender.Board
	if board.IsAlreadyAttacked(pos) {
		return AttackOutcome{}, fmt.Errorf("%w: (%d,%d)", ErrAlreadyAttacked, pos.X, pos.Y)
	}

	out := AttackOutcome{MatchID: m.ID, Attacker: attacker, Position: pos}

	switch st := board.Status(pos); st {
	case CellEmpty:
		board.set(pos, CellMiss)
		m.Turn = attacker.Other()
		out.Result = ResultMiss
		out.NextTurn = m.Turn
		return out, nil

	case CellShip:
		idx, ok := board.shipAt(pos)
		if !ok || idx >= len(defender.Ships) {
			return AttackOutcome{}, fmt.Errorf("%w: ship cell (%d,%d) has no owner", ErrInconsistentBoard, pos.X, pos.Y)
		}
		ship := &defender.Ships[idx]
		if ship.Sunk || ship.Hits >= ship.Length {
			return AttackOutcome{}, fmt.Errorf("%w: live cell (%d,%d) on a sunk ship", ErrInconsistentBoard, pos.X, pos.Y)
		}

		board.set(pos, CellHit)
		ship.Hits++
		out.NextTurn = attacker

		if ship.Hits < ship.Length {
			out.Result = ResultHit
			return out, nil
		}

		out.Result = ResultKilled
		out.Revealed = sink(board, ship)
		sunk := *ship
		out.Ship = &sunk

		if defender.allSunk() {
			m.finish(attacker)
			out.GameOver = true
			out.Winner = attacker
			out.NextTurn = NoSlot
		}
		return out, nil

	default:
		return AttackOutcome{}, fmt.Errorf("%w: unexpected status %q at (%d,%d)", ErrInconsistentBoard, st, pos.X, pos.Y)
	}
}

// sink marks ship and its cells sunk and reveals the empty cells around it.
func sink(board *Board, ship *Ship) []Position {
	ship.Sunk = true
	cells := ship.Cells()
	for _, c := range cells {
		board.set(c, CellSunk)
	}
	var revealed []Position
	for _, c := range cells {
		for _, n := range neighbors(c) {
			if board.Status(n) == CellEmpty {
				board.set(n, CellSunkNeighbor)
				revealed = append(revealed, n)
			}
		}
	}
	return revealed
}

// RandomAttack fires at a cell chosen uniformly among the opponent's
// not-yet-attacked cells.
func (m *Match) RandomAttack(attacker Slot) (AttackOutcome, error) {
	if err := m.checkCanAttack(attacker); err != nil {
		return AttackOutcome{}, err
	}
	defender, _ := m.Player(attacker.Other())
	pos, err := pickTarget(&defender.Board, m.rng)
	if err != nil {
		return AttackOutcome{}, err
	}
	return m.Attack(attacker, pos)
}

func pickTarget(b *Board, r Rand) (Position, error) {
	candidates := b.Candidates()
	if len(candidates) == 0 {
		return Position{}, ErrNoValidCells
	}
	return candidates[r.IntN(len(candidates))], nil
}
