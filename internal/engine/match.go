package engine

import (
	"math/rand/v2"
	"slices"
)

type Slot string

const (
	Slot0 Slot = "0"
	Slot1 Slot = "1"
	// NoSlot marks an unset turn or winner.
	NoSlot Slot = ""
)

// Other returns the opposing slot.
func (s Slot) Other() Slot {
	if s == Slot0 {
		return Slot1
	}
	return Slot0
}

func (s Slot) index() (int, bool) {
	switch s {
	case Slot0:
		return 0, true
	case Slot1:
		return 1, true
	}
	return 0, false
}

type Phase string

const (
	PhasePlacing  Phase = "placing_ships"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// OpeningSlot always takes the first shot: the player who joined the room first.
const OpeningSlot = Slot0

type Player struct {
	Slot        Slot
	Identity    string
	Ships       []Ship
	Board       Board
	ShipsPlaced bool
}

func (p *Player) allSunk() bool {
	if len(p.Ships) == 0 {
		return false
	}
	for _, s := range p.Ships {
		if !s.Sunk {
			return false
		}
	}
	return true
}

// Rand picks uniformly in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type Match struct {
	ID      string
	Players [2]Player
	Turn    Slot
	Phase   Phase
	Winner  Slot
	rng     Rand
}

type MatchOption func(*Match)

// WithRand replaces the source used by RandomAttack.
func WithRand(r Rand) MatchOption {
	return func(m *Match) { m.rng = r }
}

// NewMatch seats identities[0] in slot "0" and identities[1] in slot "1".
func NewMatch(id string, identities [2]string, opts ...MatchOption) *Match {
	m := &Match{
		ID:    id,
		Phase: PhasePlacing,
		Turn:  NoSlot,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for i, ident := range identities {
		m.Players[i] = Player{Slot: [2]Slot{Slot0, Slot1}[i], Identity: ident, Board: NewBoard()}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Match) Player(s Slot) (*Player, bool) {
	i, ok := s.index()
	if !ok {
		return nil, false
	}
	return &m.Players[i], true
}

// SlotOf returns the slot held by identity.
func (m *Match) SlotOf(identity string) (Slot, bool) {
	for _, p := range m.Players {
		if p.Identity == identity {
			return p.Slot, true
		}
	}
	return NoSlot, false
}

// IdentityOf returns the identity seated in s.
func (m *Match) IdentityOf(s Slot) string {
	if p, ok := m.Player(s); ok {
		return p.Identity
	}
	return ""
}

type PlacementOutcome struct {
	Slot Slot
	// Started is true when this placement completed both fleets.
	Started bool
	Turn    Slot
}

// PlaceFleet records slot's fleet. The second fleet starts the match with
// OpeningSlot to move.
func (m *Match) PlaceFleet(slot Slot, ships []Ship) (PlacementOutcome, error) {
	if m.Phase == PhaseFinished {
		return PlacementOutcome{}, ErrMatchFinished
	}
	p, ok := m.Player(slot)
	if !ok {
		return PlacementOutcome{}, ErrUnknownSlot
	}
	if err := PlaceFleet(p, ships); err != nil {
		return PlacementOutcome{}, err
	}

	out := PlacementOutcome{Slot: slot}
	if m.Players[0].ShipsPlaced && m.Players[1].ShipsPlaced {
		m.Phase = PhaseActive
		m.Turn = OpeningSlot
		out.Started = true
		out.Turn = m.Turn
	}
	return out, nil
}

type ForfeitOutcome struct {
	Loser  Slot
	Winner Slot
}

// Forfeit ends an unfinished match in favour of the other slot.
func (m *Match) Forfeit(slot Slot) (ForfeitOutcome, error) {
	if m.Phase == PhaseFinished {
		return ForfeitOutcome{}, ErrMatchFinished
	}
	if _, ok := slot.index(); !ok {
		return ForfeitOutcome{}, ErrUnknownSlot
	}
	m.finish(slot.Other())
	return ForfeitOutcome{Loser: slot, Winner: m.Winner}, nil
}

func (m *Match) finish(winner Slot) {
	m.Phase = PhaseFinished
	m.Winner = winner
	m.Turn = NoSlot
}

// Clone returns a deep copy that shares nothing mutable with m.
func (m *Match) Clone() Match {
	c := *m
	for i := range c.Players {
		c.Players[i].Ships = slices.Clone(m.Players[i].Ships)
	}
	c.rng = nil
	return c
}
