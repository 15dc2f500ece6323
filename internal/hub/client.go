package hub

import (
	"fmt"

	"github.com/DoyleJ11/seabattle-server/internal/engine"
	"github.com/DoyleJ11/seabattle-server/internal/session"
)

// The methods below wrap the inbox protocol for callers that want a plain
// synchronous API. They run on the caller's goroutine.

func request[T any](h *Hub, msg func(reply chan T) HubMsg) (T, error) {
	var zero T
	reply := make(chan T, 1)
	select {
	case h.inbox <- msg(reply):
	case <-h.done:
		return zero, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrClosed
		}
	}
}

// CreateRoom allocates an empty room, or a room holding owner when owner is set.
func (h *Hub) CreateRoom(owner string) (Room, error) {
	r, err := request(h, func(reply chan createReply) HubMsg { return CreateRoom{Owner: owner, Reply: reply} })
	if err != nil {
		return Room{}, err
	}
	return r.room, r.err
}

func (h *Hub) AddOccupant(identity, roomID string) (JoinOutcome, error) {
	r, err := request(h, func(reply chan joinReply) HubMsg {
		return AddOccupant{Identity: identity, RoomID: roomID, Reply: reply}
	})
	if err != nil {
		return JoinOutcome{}, err
	}
	return r.out, r.err
}

// RemoveIdentity takes identity out of its room. Transports call it when a
// connection goes away.
func (h *Hub) RemoveIdentity(identity string) (RemoveOutcome, error) {
	return request(h, func(reply chan RemoveOutcome) HubMsg {
		return RemoveIdentity{Identity: identity, Reply: reply}
	})
}

// ListAvailableRooms returns rooms still waiting for a second player, by id.
func (h *Hub) ListAvailableRooms() ([]Room, error) {
	return request(h, func(reply chan []Room) HubMsg { return ListRooms{Reply: reply} })
}

func (h *Hub) FindRoomOf(identity string) (Room, bool, error) {
	r, err := request(h, func(reply chan findReply) HubMsg {
		return FindRoomOf{Identity: identity, Reply: reply}
	})
	return r.room, r.ok, err
}

func (h *Hub) Match(matchID string) (*session.Session, error) {
	s, err := request(h, func(reply chan *session.Session) HubMsg {
		return GetMatch{MatchID: matchID, Reply: reply}
	})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return s, nil
}

func (h *Hub) PlaceFleet(identity, matchID string, ships []engine.Ship) (engine.PlacementOutcome, error) {
	s, err := h.Match(matchID)
	if err != nil {
		return engine.PlacementOutcome{}, err
	}
	return s.PlaceFleet(identity, ships)
}

func (h *Hub) Attack(identity, matchID string, pos engine.Position) (engine.AttackOutcome, error) {
	s, err := h.Match(matchID)
	if err != nil {
		return engine.AttackOutcome{}, err
	}
	return h.finishing(s.Attack(identity, pos))
}

func (h *Hub) RandomAttack(identity, matchID string) (engine.AttackOutcome, error) {
	s, err := h.Match(matchID)
	if err != nil {
		return engine.AttackOutcome{}, err
	}
	return h.finishing(s.RandomAttack(identity))
}

// View returns a snapshot of a match.
func (h *Hub) View(matchID string) (session.View, error) {
	s, err := h.Match(matchID)
	if err != nil {
		return session.View{}, err
	}
	v, ok := s.View()
	if !ok {
		return session.View{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return v, nil
}

// finishing tells the hub about a finished match so it can apply the room
// disposal policy.
func (h *Hub) finishing(out engine.AttackOutcome, err error) (engine.AttackOutcome, error) {
	if err != nil || !out.GameOver {
		return out, err
	}
	select {
	case h.inbox <- MatchFinished{MatchID: out.MatchID}:
	case <-h.done:
	}
	return out, nil
}

// Shutdown stops every match session and the hub itself, then waits.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
	}
	<-h.done
}
