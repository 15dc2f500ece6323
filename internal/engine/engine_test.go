package engine

import (
	"errors"
	"testing"
)

// fleet of one ship per kind, none touching.
func standardFleet() []Ship {
	return []Ship{
		NewShip(ShipHuge, Position{X: 0, Y: 0}, Horizontal),
		NewShip(ShipLarge, Position{X: 0, Y: 2}, Vertical),
		NewShip(ShipMedium, Position{X: 5, Y: 5}, Horizontal),
		NewShip(ShipSmall, Position{X: 9, Y: 9}, Horizontal),
	}
}

func newActiveMatch(t *testing.T, fleet0, fleet1 []Ship, opts ...MatchOption) *Match {
	t.Helper()
	m := NewMatch("m1", [2]string{"alice", "bob"}, opts...)
	if _, err := m.PlaceFleet(Slot0, fleet0); err != nil {
		t.Fatalf("place slot 0: %v", err)
	}
	if _, err := m.PlaceFleet(Slot1, fleet1); err != nil {
		t.Fatalf("place slot 1: %v", err)
	}
	if m.Phase != PhaseActive {
		t.Fatalf("want phase %q, got %q", PhaseActive, m.Phase)
	}
	return m
}

func TestApply_DispatchesByCommandType(t *testing.T) {
	m := NewMatch("m1", [2]string{"alice", "bob"})

	res, err := Apply(m, Command{Type: CmdPlaceShips, Slot: Slot0, Ships: standardFleet()})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Placement == nil || res.Attack != nil || res.Forfeit != nil {
		t.Fatalf("want only Placement set, got %+v", res)
	}

	res, err = Apply(m, Command{Type: CmdPlaceShips, Slot: Slot1, Ships: standardFleet()})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Placement.Started || res.Placement.Turn != Slot0 {
		t.Fatalf("want match started with slot 0, got %+v", res.Placement)
	}

	res, err = Apply(m, Command{Type: CmdAttack, Slot: Slot0, Position: Position{X: 9, Y: 0}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Attack == nil || res.Attack.Result != ResultMiss {
		t.Fatalf("want miss, got %+v", res.Attack)
	}

	res, err = Apply(m, Command{Type: CmdRandomAttack, Slot: Slot1})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Attack == nil {
		t.Fatalf("want attack outcome")
	}

	res, err = Apply(m, Command{Type: CmdForfeit, Slot: Slot1})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Forfeit == nil || res.Forfeit.Winner != Slot0 {
		t.Fatalf("want slot 0 to win by forfeit, got %+v", res.Forfeit)
	}
}

func TestApply_RejectsUnknownCommand(t *testing.T) {
	m := NewMatch("m1", [2]string{"alice", "bob"})
	_, err := Apply(m, Command{Type: "Teleport"})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ErrOverlap, KindValidation},
		{ErrNotActive, KindState},
		{ErrNotYourTurn, KindTurn},
		{ErrAlreadyAttacked, KindIdempotence},
		{ErrUnknownSlot, KindLookup},
		{ErrNoValidCells, KindCapacity},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf: got %q, want %q", got, tc.want)
			}
		})
	}
}
