package ws

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/seabattle-server/internal/engine"
	"github.com/DoyleJ11/seabattle-server/internal/hub"
	"github.com/DoyleJ11/seabattle-server/internal/session"
	"github.com/DoyleJ11/seabattle-server/internal/types"
)

var (
	ErrNotRegistered     = engine.NewError(engine.KindState, "player not registered, send reg first")
	ErrAlreadyRegistered = engine.NewError(engine.KindState, "connection is already registered")
	ErrAlreadyConnected  = engine.NewError(engine.KindIdentityConflict, "player is already connected")
	ErrWrongPlayerIndex  = engine.NewError(engine.KindValidation, "indexPlayer does not match your seat")
	ErrUnknownType       = engine.NewError(engine.KindValidation, "unknown message type")

	errRateLimited = engine.NewError(engine.KindCapacity, "rate limit exceeded")
	errBadFrame    = engine.NewError(engine.KindValidation, "invalid message format")
)

func (s *Server) dispatch(ctx context.Context, c *client, env types.Envelope, log *zap.Logger) {
	if env.Type != types.TypeReg && c.identity == "" {
		s.replyError(c, env.Type, ErrNotRegistered)
		return
	}

	var err error
	switch env.Type {
	case types.TypeReg:
		err = s.handleReg(ctx, c, env, log)
	case types.TypeCreateRoom:
		err = s.handleCreateRoom(c, log)
	case types.TypeAddUserToRoom:
		err = s.handleAddUserToRoom(c, env, log)
	case types.TypeAddShips:
		err = s.handleAddShips(c, env, log)
	case types.TypeAttack:
		err = s.handleAttack(ctx, c, env, log)
	case types.TypeRandomAttack:
		err = s.handleRandomAttack(ctx, c, env, log)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownType, env.Type)
	}
	if err != nil {
		s.replyError(c, env.Type, err)
	}
}

// replyError answers only the offending client. reg failures come back as a
// reg frame.
func (s *Server) replyError(c *client, reqType string, err error) {
	text := err.Error()
	kind := engine.KindOf(err)
	if kind == engine.KindInternal {
		s.log.Error("request failed", zap.String("client_id", c.id), zap.String("type", reqType), zap.Error(err))
		text = "internal error"
	} else {
		s.log.Debug("request rejected", zap.String("client_id", c.id), zap.String("type", reqType),
			zap.String("kind", string(kind)), zap.Error(err))
	}

	if reqType == types.TypeReg {
		s.reply(c, types.TypeReg, types.RegResponse{Error: true, ErrorText: text})
		return
	}
	s.reply(c, types.TypeError, types.ErrorResponse{Error: true, ErrorText: text})
}

func (s *Server) handleReg(ctx context.Context, c *client, env types.Envelope, log *zap.Logger) error {
	if c.identity != "" {
		return ErrAlreadyRegistered
	}
	var req types.RegRequest
	if err := env.Decode(&req); err != nil {
		return fmt.Errorf("%w: %v", errBadFrame, err)
	}

	acc, err := s.store.Register(ctx, req.Name, req.Password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, taken := s.byIdentity[acc.Identity]; taken {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.byIdentity[acc.Identity] = c
	c.identity, c.name = acc.Identity, acc.Name
	s.mu.Unlock()

	log.Info("player registered", zap.String("player", acc.Identity), zap.String("name", acc.Name))
	s.reply(c, types.TypeReg, types.RegResponse{Name: acc.Name, Index: acc.Identity})
	s.broadcastWinners(ctx, log)
	s.broadcastRooms(log)
	return nil
}

func (s *Server) handleCreateRoom(c *client, log *zap.Logger) error {
	if _, err := s.hub.CreateRoom(c.identity); err != nil {
		return err
	}
	s.broadcastRooms(log)
	return nil
}

func (s *Server) handleAddUserToRoom(c *client, env types.Envelope, log *zap.Logger) error {
	var req types.AddUserToRoomRequest
	if err := env.Decode(&req); err != nil {
		return fmt.Errorf("%w: %v", errBadFrame, err)
	}
	out, err := s.hub.AddOccupant(c.identity, req.IndexRoom)
	if err != nil {
		return err
	}
	s.broadcastRooms(log)

	if out.GameReady {
		for _, seat := range out.Seats {
			s.sendTo(seat.Identity, types.TypeCreateGame, types.CreateGame{
				IDGame:   out.MatchID,
				IDPlayer: string(seat.Slot),
			})
		}
	}
	return nil
}

// seat resolves the caller's slot and the match's players, and checks the
// indexPlayer the client claimed.
func (s *Server) seat(identity, matchID, claimed string) (engine.Slot, [2]string, error) {
	v, err := s.hub.View(matchID)
	if err != nil {
		return engine.NoSlot, [2]string{}, err
	}
	slot, ok := v.Match.SlotOf(identity)
	if !ok {
		return engine.NoSlot, [2]string{}, fmt.Errorf("%w: %s", session.ErrNotInMatch, matchID)
	}
	if claimed != string(slot) {
		return engine.NoSlot, [2]string{}, fmt.Errorf("%w: claimed %q", ErrWrongPlayerIndex, claimed)
	}
	players := [2]string{v.Match.IdentityOf(engine.Slot0), v.Match.IdentityOf(engine.Slot1)}
	return slot, players, nil
}

func (s *Server) handleAddShips(c *client, env types.Envelope, log *zap.Logger) error {
	var req types.AddShipsRequest
	if err := env.Decode(&req); err != nil {
		return fmt.Errorf("%w: %v", errBadFrame, err)
	}
	if _, _, err := s.seat(c.identity, req.GameID, req.IndexPlayer); err != nil {
		return err
	}
	fleet, err := types.Fleet(req.Ships)
	if err != nil {
		return err
	}

	out, err := s.hub.PlaceFleet(c.identity, req.GameID, fleet)
	if err != nil {
		return err
	}
	if !out.Started {
		log.Info("fleet placed, waiting for opponent", zap.String("match_id", req.GameID))
		return nil
	}

	v, err := s.hub.View(req.GameID)
	if err != nil {
		return err
	}
	for _, p := range v.Match.Players {
		s.sendTo(p.Identity, types.TypeStartGame, types.StartGame{
			Ships:              types.FleetOf(p.Ships),
			CurrentPlayerIndex: string(out.Turn),
		})
	}
	s.sendToPlayers([2]string{v.Match.Players[0].Identity, v.Match.Players[1].Identity},
		types.TypeTurn, types.Turn{CurrentPlayer: string(out.Turn)})
	log.Info("match started", zap.String("match_id", req.GameID), zap.String("turn", string(out.Turn)))
	return nil
}

func (s *Server) handleAttack(ctx context.Context, c *client, env types.Envelope, log *zap.Logger) error {
	var req types.AttackRequest
	if err := env.Decode(&req); err != nil {
		return fmt.Errorf("%w: %v", errBadFrame, err)
	}
	_, players, err := s.seat(c.identity, req.GameID, req.IndexPlayer)
	if err != nil {
		return err
	}
	out, err := s.hub.Attack(c.identity, req.GameID, engine.Position{X: req.X, Y: req.Y})
	if err != nil {
		return err
	}
	s.announceAttack(ctx, players, out, log)
	return nil
}

func (s *Server) handleRandomAttack(ctx context.Context, c *client, env types.Envelope, log *zap.Logger) error {
	var req types.RandomAttackRequest
	if err := env.Decode(&req); err != nil {
		return fmt.Errorf("%w: %v", errBadFrame, err)
	}
	_, players, err := s.seat(c.identity, req.GameID, req.IndexPlayer)
	if err != nil {
		return err
	}
	out, err := s.hub.RandomAttack(c.identity, req.GameID)
	if err != nil {
		return err
	}
	s.announceAttack(ctx, players, out, log)
	return nil
}

// announceAttack tells both players the result, each revealed cell as a miss,
// and then either the next turn or the winner.
func (s *Server) announceAttack(ctx context.Context, players [2]string, out engine.AttackOutcome, log *zap.Logger) {
	attacker := string(out.Attacker)
	s.sendToPlayers(players, types.TypeAttack, types.AttackResponse{
		Position:      types.PositionOf(out.Position),
		CurrentPlayer: attacker,
		Status:        types.StatusOf(out.Result),
	})
	for _, p := range out.Revealed {
		s.sendToPlayers(players, types.TypeAttack, types.AttackResponse{
			Position:      types.PositionOf(p),
			CurrentPlayer: attacker,
			Status:        types.StatusMiss,
		})
	}

	if !out.GameOver {
		s.sendToPlayers(players, types.TypeTurn, types.Turn{CurrentPlayer: string(out.NextTurn)})
		return
	}

	s.sendToPlayers(players, types.TypeFinish, types.Finish{WinPlayer: string(out.Winner)})
	winner := players[0]
	if out.Winner == engine.Slot1 {
		winner = players[1]
	}
	log.Info("match finished", zap.String("match_id", out.MatchID), zap.String("winner", winner))
	s.recordWin(ctx, winner, log)
}

func (s *Server) recordWin(ctx context.Context, identity string, log *zap.Logger) {
	if err := s.store.RecordWin(ctx, identity); err != nil {
		log.Error("record win", zap.String("player", identity), zap.Error(err))
		return
	}
	s.broadcastWinners(ctx, log)
}

func (s *Server) broadcastWinners(ctx context.Context, log *zap.Logger) {
	winners, err := s.store.Winners(ctx)
	if err != nil {
		log.Error("list winners", zap.Error(err))
		return
	}
	s.broadcast(types.TypeUpdateWinners, winners)
}

func (s *Server) broadcastRooms(log *zap.Logger) {
	rooms, err := s.hub.ListAvailableRooms()
	if err != nil {
		if !errors.Is(err, hub.ErrClosed) {
			log.Error("list rooms", zap.Error(err))
		}
		return
	}
	s.broadcast(types.TypeUpdateRoom, s.roomInfos(rooms))
}

func (s *Server) roomInfos(rooms []hub.Room) []types.RoomInfo {
	out := make([]types.RoomInfo, len(rooms))
	for i, r := range rooms {
		users := make([]types.RoomUser, len(r.Occupants))
		for j, o := range r.Occupants {
			users[j] = types.RoomUser{Name: s.store.DisplayName(o), Index: o}
		}
		out[i] = types.RoomInfo{RoomID: r.ID, RoomUsers: users}
	}
	return out
}
