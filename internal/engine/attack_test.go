package engine

import (
	"errors"
	"math/rand/v2"
	"testing"
)

type fixedRand struct {
	next int
	seen []int
}

func (r *fixedRand) IntN(n int) int {
	r.seen = append(r.seen, n)
	return r.next % n
}

func samePositions(a, b []Position) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[Position]int, len(a))
	for _, p := range a {
		set[p]++
	}
	for _, p := range b {
		set[p]--
		if set[p] < 0 {
			return false
		}
	}
	return true
}

// A single-cell ship in the corner, with the opponent still holding other ships.
func TestAttack_KillRevealsCornerNeighbours(t *testing.T) {
	defender := []Ship{
		NewShip(ShipSmall, Position{X: 0, Y: 0}, Horizontal),
		NewShip(ShipMedium, Position{X: 5, Y: 5}, Horizontal),
	}
	m := newActiveMatch(t, standardFleet(), defender)

	out, err := m.Attack(Slot0, Position{X: 0, Y: 0})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Result != ResultKilled {
		t.Fatalf("want killed, got %q", out.Result)
	}
	want := []Position{{1, 0}, {0, 1}, {1, 1}}
	if !samePositions(out.Revealed, want) {
		t.Fatalf("revealed: got %v, want %v", out.Revealed, want)
	}
	board := &m.Players[1].Board
	for _, p := range want {
		if got := board.Status(p); got != CellSunkNeighbor {
			t.Fatalf("cell %+v: want sunk-neighbor, got %q", p, got)
		}
	}
	if got := board.Status(Position{0, 0}); got != CellSunk {
		t.Fatalf("ship cell: want sunk, got %q", got)
	}
	if out.GameOver || m.Phase != PhaseActive {
		t.Fatalf("match should continue")
	}
	if out.NextTurn != Slot0 || m.Turn != Slot0 {
		t.Fatalf("attacker keeps the turn after a kill, got %q", m.Turn)
	}
	if out.Ship == nil || !out.Ship.Sunk || out.Ship.Kind != ShipSmall {
		t.Fatalf("want sunk small ship in outcome, got %+v", out.Ship)
	}
}

func TestAttack_MissPassesTurn(t *testing.T) {
	m := newActiveMatch(t, standardFleet(), standardFleet())

	out, err := m.Attack(Slot0, Position{X: 5, Y: 7})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Result != ResultMiss {
		t.Fatalf("want miss, got %q", out.Result)
	}
	if out.NextTurn != Slot1 || m.Turn != Slot1 {
		t.Fatalf("turn should pass to slot 1, got %q", m.Turn)
	}
	if got := m.Players[1].Board.Status(Position{5, 7}); got != CellMiss {
		t.Fatalf("want miss cell, got %q", got)
	}
}

func TestAttack_SameCellTwiceIsRejected(t *testing.T) {
	m := newActiveMatch(t, standardFleet(), standardFleet())

	if _, err := m.Attack(Slot0, Position{X: 0, Y: 0}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	before := m.Clone()

	_, err := m.Attack(Slot0, Position{X: 0, Y: 0})
	if !errors.Is(err, ErrAlreadyAttacked) {
		t.Fatalf("want ErrAlreadyAttacked, got %v", err)
	}
	if KindOf(err) != KindIdempotence {
		t.Fatalf("want idempotence kind, got %q", KindOf(err))
	}
	if m.Players[1].Board != before.Players[1].Board || m.Turn != before.Turn {
		t.Fatalf("rejected attack mutated the match")
	}
	if m.Players[1].Ships[0].Hits != 1 {
		t.Fatalf("hit counted twice: %+v", m.Players[1].Ships[0])
	}
}

func TestAttack_SinkingLastShipEndsMatch(t *testing.T) {
	m := newActiveMatch(t, standardFleet(), []Ship{NewShip(ShipSmall, Position{X: 4, Y: 4}, Horizontal)})

	out, err := m.Attack(Slot0, Position{X: 4, Y: 4})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Result != ResultKilled || !out.GameOver {
		t.Fatalf("want killed + game over, got %+v", out)
	}
	if out.Winner != Slot0 || m.Winner != Slot0 {
		t.Fatalf("winner: want slot 0, got %q", m.Winner)
	}
	if m.Phase != PhaseFinished || m.Turn != NoSlot || out.NextTurn != NoSlot {
		t.Fatalf("want finished with no turn, got phase=%q turn=%q", m.Phase, m.Turn)
	}
	if len(out.Revealed) != 8 {
		t.Fatalf("interior single ship should reveal 8 cells, got %d", len(out.Revealed))
	}

	_, err = m.Attack(Slot0, Position{X: 0, Y: 0})
	if !errors.Is(err, ErrMatchFinished) {
		t.Fatalf("want ErrMatchFinished, got %v", err)
	}
	if _, err := m.PlaceFleet(Slot0, standardFleet()); !errors.Is(err, ErrMatchFinished) {
		t.Fatalf("placement after finish: want ErrMatchFinished, got %v", err)
	}
}

func TestAttack_HitKeepsTurnAndSinksOnLastCell(t *testing.T) {
	m := newActiveMatch(t, standardFleet(), standardFleet())

	// huge ship along (0..3, 0)
	for x := 0; x < 3; x++ {
		out, err := m.Attack(Slot0, Position{X: x, Y: 0})
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if out.Result != ResultHit || m.Turn != Slot0 {
			t.Fatalf("x=%d: want hit keeping the turn, got %q turn=%q", x, out.Result, m.Turn)
		}
		if m.Players[1].Ships[0].Sunk {
			t.Fatalf("ship sunk after %d of 4 hits", x+1)
		}
	}

	out, err := m.Attack(Slot0, Position{X: 3, Y: 0})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Result != ResultKilled || !m.Players[1].Ships[0].Sunk {
		t.Fatalf("want killed on fourth hit, got %q", out.Result)
	}
	for x := 0; x < 4; x++ {
		if got := m.Players[1].Board.Status(Position{x, 0}); got != CellSunk {
			t.Fatalf("(%d,0): want sunk, got %q", x, got)
		}
	}
	// (4,0) plus the whole of row 1
	want := []Position{{4, 0}, {0, 1}, {1, 1}, {2, 1}, {3, 1}, {4, 1}}
	if !samePositions(out.Revealed, want) {
		t.Fatalf("revealed: got %v, want %v", out.Revealed, want)
	}
}

func TestAttack_RevealSkipsNeighbouringShips(t *testing.T) {
	defender := []Ship{
		NewShip(ShipSmall, Position{X: 4, Y: 4}, Horizontal),
		NewShip(ShipSmall, Position{X: 5, Y: 4}, Horizontal),
	}
	m := newActiveMatch(t, standardFleet(), defender)

	out, err := m.Attack(Slot0, Position{X: 4, Y: 4})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out.Revealed) != 7 {
		t.Fatalf("want 7 revealed cells, got %v", out.Revealed)
	}
	if got := m.Players[1].Board.Status(Position{5, 4}); got != CellShip {
		t.Fatalf("neighbouring ship cell changed to %q", got)
	}
	if out.GameOver {
		t.Fatalf("second ship still afloat")
	}
}

func TestAttack_Preconditions(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(t *testing.T) *Match
		slot    Slot
		pos     Position
		wantErr error
	}{
		{
			name: "before both fleets are placed",
			setup: func(t *testing.T) *Match {
				m := NewMatch("m1", [2]string{"alice", "bob"})
				if _, err := m.PlaceFleet(Slot0, standardFleet()); err != nil {
					t.Fatalf("place: %v", err)
				}
				return m
			},
			slot:    Slot0,
			pos:     Position{1, 1},
			wantErr: ErrNotActive,
		},
		{
			name: "out of turn",
			setup: func(t *testing.T) *Match {
				return newActiveMatch(t, standardFleet(), standardFleet())
			},
			slot:    Slot1,
			pos:     Position{1, 1},
			wantErr: ErrNotYourTurn,
		},
		{
			name: "unknown slot",
			setup: func(t *testing.T) *Match {
				return newActiveMatch(t, standardFleet(), standardFleet())
			},
			slot:    "2",
			pos:     Position{1, 1},
			wantErr: ErrUnknownSlot,
		},
		{
			name: "off the board",
			setup: func(t *testing.T) *Match {
				return newActiveMatch(t, standardFleet(), standardFleet())
			},
			slot:    Slot0,
			pos:     Position{10, 3},
			wantErr: ErrOutOfBounds,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.setup(t)
			before := m.Clone()
			_, err := m.Attack(tc.slot, tc.pos)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if m.Phase != before.Phase || m.Turn != before.Turn ||
				m.Players[0].Board != before.Players[0].Board ||
				m.Players[1].Board != before.Players[1].Board {
				t.Fatalf("rejected attack mutated the match")
			}
		})
	}
}

func TestAttack_InconsistentBoardIsReported(t *testing.T) {
	m := newActiveMatch(t, standardFleet(), standardFleet())
	m.Players[1].Board.owner[9][0] = 0
	m.Players[1].Board.set(Position{0, 9}, CellShip)

	_, err := m.Attack(Slot0, Position{X: 0, Y: 9})
	if !errors.Is(err, ErrInconsistentBoard) || KindOf(err) != KindInternal {
		t.Fatalf("want internal ErrInconsistentBoard, got %v", err)
	}
	if got := m.Players[1].Board.Status(Position{0, 9}); got != CellShip {
		t.Fatalf("cell mutated to %q", got)
	}
}

func TestRandomAttack_ChoosesAmongUnattackedCells(t *testing.T) {
	r := &fixedRand{next: 0}
	m := newActiveMatch(t, standardFleet(), standardFleet(), WithRand(r))

	// (0,0) is the first candidate: a hit on the huge ship
	out, err := m.RandomAttack(Slot0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Position != (Position{0, 0}) || out.Result != ResultHit {
		t.Fatalf("want hit at (0,0), got %+v", out)
	}

	out, err = m.RandomAttack(Slot0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Position != (Position{1, 0}) {
		t.Fatalf("attacked cell must be skipped, got %+v", out.Position)
	}
	if len(r.seen) != 2 || r.seen[0] != 100 || r.seen[1] != 99 {
		t.Fatalf("want draws over 100 then 99 candidates, got %v", r.seen)
	}
}

func TestRandomAttack_GatedLikeAttack(t *testing.T) {
	m := NewMatch("m1", [2]string{"alice", "bob"})
	if _, err := m.RandomAttack(Slot0); !errors.Is(err, ErrNotActive) {
		t.Fatalf("want ErrNotActive, got %v", err)
	}
	m = newActiveMatch(t, standardFleet(), standardFleet())
	if _, err := m.RandomAttack(Slot1); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("want ErrNotYourTurn, got %v", err)
	}
}

func TestPickTarget_NoValidCells(t *testing.T) {
	b := NewBoard()
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			b.set(Position{x, y}, CellMiss)
		}
	}
	_, err := pickTarget(&b, &fixedRand{})
	if !errors.Is(err, ErrNoValidCells) || KindOf(err) != KindCapacity {
		t.Fatalf("want capacity ErrNoValidCells, got %v", err)
	}
}

func TestPickTarget_Uniform(t *testing.T) {
	b := NewBoard()
	attacked := map[Position]bool{}
	for i := 0; i < 10; i++ {
		p := Position{X: i, Y: i}
		b.set(p, CellMiss)
		attacked[p] = true
	}

	const draws = 90_000
	r := rand.New(rand.NewPCG(42, 1024))
	counts := map[Position]int{}
	for i := 0; i < draws; i++ {
		p, err := pickTarget(&b, r)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if attacked[p] {
			t.Fatalf("picked attacked cell %+v", p)
		}
		counts[p]++
	}

	if len(counts) != 90 {
		t.Fatalf("want all 90 candidates drawn, got %d", len(counts))
	}
	expected := draws / 90
	for p, n := range counts {
		if n < expected*8/10 || n > expected*12/10 {
			t.Fatalf("cell %+v drawn %d times, expected about %d", p, n, expected)
		}
	}
}

// Plays whole matches with random shots and checks the turn, sink and
// idempotence rules after every shot.
func TestRandomPlay_Invariants(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		m := newActiveMatch(t, standardFleet(), standardFleet(), WithRand(rand.New(rand.NewPCG(seed, seed*7))))

		for shots := 0; m.Phase == PhaseActive; shots++ {
			if shots > 2*BoardSize*BoardSize {
				t.Fatalf("seed %d: match did not finish", seed)
			}
			attacker := m.Turn
			out, err := m.RandomAttack(attacker)
			if err != nil {
				t.Fatalf("seed %d: unexpected err: %v", seed, err)
			}

			switch {
			case out.Result == ResultMiss:
				if m.Turn != attacker.Other() {
					t.Fatalf("seed %d: miss did not pass the turn", seed)
				}
			case out.GameOver:
				if out.Result != ResultKilled || m.Winner != attacker || m.Phase != PhaseFinished {
					t.Fatalf("seed %d: bad game over %+v", seed, out)
				}
			default:
				if m.Turn != attacker {
					t.Fatalf("seed %d: %q did not keep the turn", seed, out.Result)
				}
			}

			defender, _ := m.Player(attacker.Other())
			for _, s := range defender.Ships {
				if s.Sunk != (s.Hits == s.Length) || s.Hits > s.Length {
					t.Fatalf("seed %d: ship %+v breaks sink rule", seed, s)
				}
			}

			if m.Phase == PhaseActive && m.Turn == attacker {
				if _, err := m.Attack(attacker, out.Position); !errors.Is(err, ErrAlreadyAttacked) {
					t.Fatalf("seed %d: re-attack: want ErrAlreadyAttacked, got %v", seed, err)
				}
			}
		}

		loser, _ := m.Player(m.Winner.Other())
		if !loser.allSunk() {
			t.Fatalf("seed %d: winner declared with ships afloat", seed)
		}
	}
}
