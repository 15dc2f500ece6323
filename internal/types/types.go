// Package types holds the websocket wire format. Every frame is an Envelope
// whose Data is itself a JSON document encoded as a string.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/DoyleJ11/seabattle-server/internal/engine"
)

// Frame types.
const (
	TypeReg           = "reg"
	TypeCreateRoom    = "create_room"
	TypeAddUserToRoom = "add_user_to_room"
	TypeAddShips      = "add_ships"
	TypeAttack        = "attack"
	TypeRandomAttack  = "randomAttack"
	TypeUpdateRoom    = "update_room"
	TypeUpdateWinners = "update_winners"
	TypeCreateGame    = "create_game"
	TypeStartGame     = "start_game"
	TypeTurn          = "turn"
	TypeFinish        = "finish"
	TypeError         = "error"
)

type Envelope struct {
	Type string `json:"type"`
	Data string `json:"data"`
	ID   int    `json:"id"`
}

// Encode wraps v as the data of a frame of type typ.
func Encode(typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("types: encode %s: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Data: string(data)})
}

// Decode parses the data of env into v. Empty data leaves v untouched.
func (env Envelope) Decode(v any) error {
	if env.Data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(env.Data), v); err != nil {
		return fmt.Errorf("types: decode %s: %w", env.Type, err)
	}
	return nil
}

type RegRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type RegResponse struct {
	Name      string `json:"name"`
	Index     string `json:"index"`
	Error     bool   `json:"error"`
	ErrorText string `json:"errorText"`
}

type AddUserToRoomRequest struct {
	IndexRoom string `json:"indexRoom"`
}

type RoomUser struct {
	Name  string `json:"name"`
	Index string `json:"index"`
}

type RoomInfo struct {
	RoomID    string     `json:"roomId"`
	RoomUsers []RoomUser `json:"roomUsers"`
}

type CreateGame struct {
	IDGame   string `json:"idGame"`
	IDPlayer string `json:"idPlayer"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Ship is the client's ship layout. Direction true means vertical.
type Ship struct {
	Position  Position `json:"position"`
	Direction bool     `json:"direction"`
	Length    int      `json:"length"`
	Type      string   `json:"type"`
}

type AddShipsRequest struct {
	GameID      string `json:"gameId"`
	Ships       []Ship `json:"ships"`
	IndexPlayer string `json:"indexPlayer"`
}

type StartGame struct {
	Ships              []Ship `json:"ships"`
	CurrentPlayerIndex string `json:"currentPlayerIndex"`
}

type AttackRequest struct {
	GameID      string `json:"gameId"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	IndexPlayer string `json:"indexPlayer"`
}

type RandomAttackRequest struct {
	GameID      string `json:"gameId"`
	IndexPlayer string `json:"indexPlayer"`
}

type AttackStatus string

const (
	StatusMiss   AttackStatus = "miss"
	StatusShot   AttackStatus = "shot"
	StatusKilled AttackStatus = "killed"
)

type AttackResponse struct {
	Position      Position     `json:"position"`
	CurrentPlayer string       `json:"currentPlayer"`
	Status        AttackStatus `json:"status"`
}

type Turn struct {
	CurrentPlayer string `json:"currentPlayer"`
}

type Finish struct {
	WinPlayer string `json:"winPlayer"`
}

type ErrorResponse struct {
	Error     bool   `json:"error"`
	ErrorText string `json:"errorText"`
}

func StatusOf(r engine.AttackResult) AttackStatus {
	switch r {
	case engine.ResultHit:
		return StatusShot
	case engine.ResultKilled:
		return StatusKilled
	default:
		return StatusMiss
	}
}

func PositionOf(p engine.Position) Position { return Position{X: p.X, Y: p.Y} }

func (p Position) Engine() engine.Position { return engine.Position{X: p.X, Y: p.Y} }

// Engine converts a wire ship. The kind is taken from Type; Length must agree
// with it.
func (s Ship) Engine() (engine.Ship, error) {
	kind := engine.ShipKind(s.Type)
	if kind.Length() == 0 {
		return engine.Ship{}, fmt.Errorf("%w: unknown type %q", engine.ErrInvalidShip, s.Type)
	}
	if s.Length != kind.Length() {
		return engine.Ship{}, fmt.Errorf("%w: %s has length %d, got %d", engine.ErrInvalidShip, kind, kind.Length(), s.Length)
	}
	o := engine.Horizontal
	if s.Direction {
		o = engine.Vertical
	}
	return engine.NewShip(kind, s.Position.Engine(), o), nil
}

func ShipOf(s engine.Ship) Ship {
	return Ship{
		Position:  PositionOf(s.Origin),
		Direction: s.Orientation == engine.Vertical,
		Length:    s.Length,
		Type:      string(s.Kind),
	}
}

func Fleet(ships []Ship) ([]engine.Ship, error) {
	out := make([]engine.Ship, 0, len(ships))
	for i, s := range ships {
		es, err := s.Engine()
		if err != nil {
			return nil, fmt.Errorf("ship %d: %w", i, err)
		}
		out = append(out, es)
	}
	return out, nil
}

func FleetOf(ships []engine.Ship) []Ship {
	out := make([]Ship, len(ships))
	for i, s := range ships {
		out[i] = ShipOf(s)
	}
	return out
}
