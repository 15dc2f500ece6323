package engine

import (
	"errors"
	"testing"
)

func TestNewMatch_SeatsInJoinOrder(t *testing.T) {
	m := NewMatch("m1", [2]string{"alice", "bob"})
	if m.Phase != PhasePlacing || m.Turn != NoSlot || m.Winner != NoSlot {
		t.Fatalf("fresh match: phase=%q turn=%q winner=%q", m.Phase, m.Turn, m.Winner)
	}
	if s, ok := m.SlotOf("alice"); !ok || s != Slot0 {
		t.Fatalf("alice: want slot 0, got %q (%v)", s, ok)
	}
	if s, ok := m.SlotOf("bob"); !ok || s != Slot1 {
		t.Fatalf("bob: want slot 1, got %q (%v)", s, ok)
	}
	if _, ok := m.SlotOf("carol"); ok {
		t.Fatalf("carol is not seated")
	}
	if got := m.IdentityOf(Slot1); got != "bob" {
		t.Fatalf("IdentityOf(1): got %q", got)
	}
}

func TestForfeit(t *testing.T) {
	cases := []struct {
		name   string
		active bool
		loser  Slot
	}{
		{name: "while placing", active: false, loser: Slot0},
		{name: "while active", active: true, loser: Slot1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMatch("m1", [2]string{"alice", "bob"})
			if tc.active {
				m = newActiveMatch(t, standardFleet(), standardFleet())
			}
			out, err := m.Forfeit(tc.loser)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if out.Winner != tc.loser.Other() || m.Winner != tc.loser.Other() {
				t.Fatalf("winner: got %q", m.Winner)
			}
			if m.Phase != PhaseFinished || m.Turn != NoSlot {
				t.Fatalf("want finished, got phase=%q turn=%q", m.Phase, m.Turn)
			}
			if _, err := m.Forfeit(tc.loser.Other()); !errors.Is(err, ErrMatchFinished) {
				t.Fatalf("second forfeit: want ErrMatchFinished, got %v", err)
			}
		})
	}
}

func TestClone_IsIndependent(t *testing.T) {
	m := newActiveMatch(t, standardFleet(), standardFleet())
	c := m.Clone()

	if _, err := m.Attack(Slot0, Position{X: 0, Y: 0}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.Players[1].Ships[0].Hits != 0 {
		t.Fatalf("clone shares ships with the match")
	}
	if c.Players[1].Board.Status(Position{0, 0}) != CellShip {
		t.Fatalf("clone shares the board with the match")
	}
}
