package engine

import "errors"

var ErrUnsupportedCommand = errors.New("unsupported command")

type CommandType string

const (
	CmdPlaceShips   CommandType = "PlaceShips"
	CmdAttack       CommandType = "Attack"
	CmdRandomAttack CommandType = "RandomAttack"
	CmdForfeit      CommandType = "Forfeit"
)

/*
	CmdPlaceShips   -> Placement (Started once both fleets are in)
	CmdAttack       -> Attack (miss passes the turn, hit/killed keep it, last kill ends the match)
	CmdRandomAttack -> Attack on a uniformly chosen unattacked cell
	CmdForfeit      -> Forfeit (the other slot wins)
*/

type Command struct {
	Type     CommandType
	Slot     Slot
	Position Position
	Ships    []Ship
}

// Result carries exactly one non-nil field matching the command that produced it.
type Result struct {
	Placement *PlacementOutcome
	Attack    *AttackOutcome
	Forfeit   *ForfeitOutcome
}

// Apply runs cmd against m. On error m is left as it was.
func Apply(m *Match, cmd Command) (Result, error) {
	switch cmd.Type {
	case CmdPlaceShips:
		out, err := m.PlaceFleet(cmd.Slot, cmd.Ships)
		if err != nil {
			return Result{}, err
		}
		return Result{Placement: &out}, nil

	case CmdAttack:
		out, err := m.Attack(cmd.Slot, cmd.Position)
		if err != nil {
			return Result{}, err
		}
		return Result{Attack: &out}, nil

	case CmdRandomAttack:
		out, err := m.RandomAttack(cmd.Slot)
		if err != nil {
			return Result{}, err
		}
		return Result{Attack: &out}, nil

	case CmdForfeit:
		out, err := m.Forfeit(cmd.Slot)
		if err != nil {
			return Result{}, err
		}
		return Result{Forfeit: &out}, nil

	default:
		return Result{}, ErrUnsupportedCommand
	}
}
