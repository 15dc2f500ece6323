// Package hub pairs players into rooms and owns the match session of every
// full room. A single goroutine owns the room table, so "one room per
// identity" is checked and enforced in the same step as every join.
package hub

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/seabattle-server/internal/engine"
	"github.com/DoyleJ11/seabattle-server/internal/session"
)

var (
	ErrRoomNotFound   = engine.NewError(engine.KindLookup, "room not found")
	ErrMatchNotFound  = engine.NewError(engine.KindLookup, "match not found")
	ErrRoomFull       = engine.NewError(engine.KindCapacity, "room is full")
	ErrAlreadyInARoom = engine.NewError(engine.KindIdentityConflict, "player is already in a room")
	ErrClosed         = engine.NewError(engine.KindInternal, "hub closed")
)

// maxRoomIDAttempts bounds regeneration of colliding room codes.
const maxRoomIDAttempts = 16

// Room is a copy of a room's state at the time it was read.
type Room struct {
	ID        string
	Occupants []string
	MatchID   string
}

func (r Room) Full() bool { return len(r.Occupants) >= 2 || r.MatchID != "" }

type Seat struct {
	Identity string
	Slot     engine.Slot
}

type JoinOutcome struct {
	Room      Room
	GameReady bool
	// MatchID and Seats are set only when GameReady.
	MatchID string
	Seats   [2]Seat
}

type RemoveOutcome struct {
	WasInARoom  bool
	RoomID      string
	RoomRemoved bool
	// Forfeit is set when leaving ended a running match.
	Forfeit *Forfeit
}

type Forfeit struct {
	MatchID string
	Winner  Seat
	Loser   Seat
}

// Names resolves display names for log labels only.
type Names interface {
	DisplayName(identity string) string
}

type Options struct {
	// DisposeFinishedRooms removes a room, and frees its occupants, as soon as
	// its match finishes. When false the room stays full until everyone leaves.
	DisposeFinishedRooms bool
	IDs                  IDGenerator
	Names                Names
	MatchOptions         []engine.MatchOption
}

func DefaultOptions() Options {
	return Options{DisposeFinishedRooms: true}
}

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	// Owner, when set, joins the new room in the same step.
	Owner string
	Reply chan createReply
}

type AddOccupant struct {
	Identity string
	RoomID   string
	Reply    chan joinReply
}

type RemoveIdentity struct {
	Identity string
	Reply    chan RemoveOutcome
}

type ListRooms struct {
	Reply chan []Room
}

type FindRoomOf struct {
	Identity string
	Reply    chan findReply
}

type GetMatch struct {
	MatchID string
	Reply   chan *session.Session
}

type MatchFinished struct {
	MatchID string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()     {}
func (AddOccupant) isHubMsg()    {}
func (RemoveIdentity) isHubMsg() {}
func (ListRooms) isHubMsg()      {}
func (FindRoomOf) isHubMsg()     {}
func (GetMatch) isHubMsg()       {}
func (MatchFinished) isHubMsg()  {}
func (ShutdownHub) isHubMsg()    {}

type createReply struct {
	room Room
	err  error
}

type joinReply struct {
	out JoinOutcome
	err error
}

type findReply struct {
	room Room
	ok   bool
}

type room struct {
	id        string
	occupants []string
	matchID   string
}

func (r *room) snapshot() Room {
	return Room{ID: r.id, Occupants: slices.Clone(r.occupants), MatchID: r.matchID}
}

type Hub struct {
	inbox     chan HubMsg
	rooms     map[string]*room
	roomOf    map[string]string
	sessions  map[string]*session.Session
	matchRoom map[string]string
	opts      Options
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewHub(parent context.Context, log *zap.Logger, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.IDs == nil {
		opts.IDs = randomIDs{}
	}
	h := &Hub{
		inbox:     make(chan HubMsg, 64),
		rooms:     make(map[string]*room),
		roomOf:    make(map[string]string),
		sessions:  make(map[string]*session.Session),
		matchRoom: make(map[string]string),
		opts:      opts,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				r, err := h.createRoom(msg.Owner)
				msg.Reply <- createReply{room: r, err: err}

			case AddOccupant:
				out, err := h.addOccupant(msg.Identity, msg.RoomID)
				msg.Reply <- joinReply{out: out, err: err}

			case RemoveIdentity:
				msg.Reply <- h.removeIdentity(msg.Identity)

			case ListRooms:
				msg.Reply <- h.availableRooms()

			case FindRoomOf:
				r, ok := h.findRoomOf(msg.Identity)
				msg.Reply <- findReply{room: r, ok: ok}

			case GetMatch:
				msg.Reply <- h.sessions[msg.MatchID] // May be nil

			case MatchFinished:
				h.matchFinished(msg.MatchID)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, s := range h.sessions {
		s.Stop()
		delete(h.sessions, id)
	}
	clear(h.rooms)
	clear(h.roomOf)
	clear(h.matchRoom)
	h.cancel()
}

func (h *Hub) label(identity string) zap.Field {
	if h.opts.Names == nil {
		return zap.String("player", identity)
	}
	return zap.String("player", fmt.Sprintf("%s (%s)", h.opts.Names.DisplayName(identity), identity))
}

func (h *Hub) createRoom(owner string) (Room, error) {
	if owner != "" {
		if existing, ok := h.roomOf[owner]; ok {
			return Room{}, fmt.Errorf("%w: %s", ErrAlreadyInARoom, existing)
		}
	}

	var id string
	for attempt := 0; ; attempt++ {
		if attempt == maxRoomIDAttempts {
			return Room{}, fmt.Errorf("hub: no free room id after %d attempts", attempt)
		}
		c, err := h.opts.IDs.RoomID()
		if err != nil {
			return Room{}, fmt.Errorf("hub: generate room id: %w", err)
		}
		if h.rooms[c] == nil {
			id = c
			break
		}
		h.log.Debug("collision on room id, regenerating", zap.String("room_id", c))
	}

	r := &room{id: id}
	h.rooms[id] = r
	if owner != "" {
		r.occupants = append(r.occupants, owner)
		h.roomOf[owner] = id
	}
	h.log.Info("room created", zap.String("room_id", id), h.label(owner))
	return r.snapshot(), nil
}

func (h *Hub) addOccupant(identity, roomID string) (JoinOutcome, error) {
	r := h.rooms[roomID]
	if r == nil {
		return JoinOutcome{}, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if existing, ok := h.roomOf[identity]; ok {
		return JoinOutcome{}, fmt.Errorf("%w: %s", ErrAlreadyInARoom, existing)
	}
	if len(r.occupants) >= 2 || r.matchID != "" {
		return JoinOutcome{}, fmt.Errorf("%w: %s", ErrRoomFull, roomID)
	}

	r.occupants = append(r.occupants, identity)
	h.roomOf[identity] = roomID
	h.log.Info("player joined room", zap.String("room_id", roomID), h.label(identity))

	if len(r.occupants) < 2 {
		return JoinOutcome{Room: r.snapshot()}, nil
	}

	seats := h.createMatchForRoom(r)
	return JoinOutcome{
		Room:      r.snapshot(),
		GameReady: true,
		MatchID:   r.matchID,
		Seats:     seats,
	}, nil
}

// createMatchForRoom seats occupants in join order and starts the match session.
func (h *Hub) createMatchForRoom(r *room) [2]Seat {
	ids := [2]string{r.occupants[0], r.occupants[1]}
	m := engine.NewMatch(h.opts.IDs.MatchID(), ids, h.opts.MatchOptions...)

	r.matchID = m.ID
	h.sessions[m.ID] = session.New(h.ctx, m, h.log)
	h.matchRoom[m.ID] = r.id

	h.log.Info("match created",
		zap.String("room_id", r.id),
		zap.String("match_id", m.ID),
		zap.Strings("players", ids[:]))

	return [2]Seat{
		{Identity: ids[0], Slot: engine.Slot0},
		{Identity: ids[1], Slot: engine.Slot1},
	}
}

func (h *Hub) removeIdentity(identity string) RemoveOutcome {
	roomID, ok := h.roomOf[identity]
	if !ok {
		return RemoveOutcome{}
	}
	r := h.rooms[roomID]
	out := RemoveOutcome{WasInARoom: true, RoomID: roomID}

	if s := h.sessions[r.matchID]; s != nil {
		f, err := s.Forfeit(identity)
		switch {
		case err == nil:
			out.Forfeit = h.forfeit(r, f)
		case engine.KindOf(err) != engine.KindState:
			h.log.Warn("forfeit failed", zap.String("match_id", r.matchID), zap.Error(err))
		}
		if out.Forfeit != nil && h.opts.DisposeFinishedRooms {
			h.disposeRoom(r)
			out.RoomRemoved = true
			return out
		}
	}

	delete(h.roomOf, identity)
	r.occupants = slices.DeleteFunc(r.occupants, func(o string) bool { return o == identity })
	h.log.Info("player left room", zap.String("room_id", roomID), h.label(identity))

	if len(r.occupants) == 0 {
		h.disposeRoom(r)
		out.RoomRemoved = true
	}
	return out
}

func (h *Hub) forfeit(r *room, f engine.ForfeitOutcome) *Forfeit {
	slot := func(s engine.Slot) string {
		if s == engine.Slot0 {
			return r.occupants[0]
		}
		return r.occupants[1]
	}
	return &Forfeit{
		MatchID: r.matchID,
		Winner:  Seat{Identity: slot(f.Winner), Slot: f.Winner},
		Loser:   Seat{Identity: slot(f.Loser), Slot: f.Loser},
	}
}

func (h *Hub) matchFinished(matchID string) {
	if !h.opts.DisposeFinishedRooms {
		return
	}
	r := h.rooms[h.matchRoom[matchID]]
	if r == nil {
		return
	}
	h.disposeRoom(r)
}

// disposeRoom deletes r, frees its occupants and stops its match.
func (h *Hub) disposeRoom(r *room) {
	for _, o := range r.occupants {
		delete(h.roomOf, o)
	}
	if r.matchID != "" {
		if s := h.sessions[r.matchID]; s != nil {
			s.Stop()
		}
		delete(h.sessions, r.matchID)
		delete(h.matchRoom, r.matchID)
	}
	delete(h.rooms, r.id)
	h.log.Info("room removed", zap.String("room_id", r.id), zap.String("match_id", r.matchID))
}

func (h *Hub) availableRooms() []Room {
	out := make([]Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		if len(r.occupants) < 2 && r.matchID == "" {
			out = append(out, r.snapshot())
		}
	}
	slices.SortFunc(out, func(a, b Room) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (h *Hub) findRoomOf(identity string) (Room, bool) {
	id, ok := h.roomOf[identity]
	if !ok {
		return Room{}, false
	}
	return h.rooms[id].snapshot(), true
}
