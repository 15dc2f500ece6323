// Package session runs one match per goroutine. Every command against a match
// goes through its inbox, so attacks on the same match never run concurrently.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/seabattle-server/internal/engine"
)

var (
	ErrClosed     = engine.NewError(engine.KindLookup, "match session closed")
	ErrNotInMatch = engine.NewError(engine.KindLookup, "player is not in this match")
)

type Msg interface{ isSessionMsg() }

// FromClient runs Cmd on behalf of Identity. Cmd.Slot is ignored and resolved
// from the identity.
type FromClient struct {
	Identity string
	Cmd      engine.Command
	Reply    chan Reply
}

func (FromClient) isSessionMsg() {}

type Reply struct {
	Result engine.Result
	Err    error
}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// View is a deep copy of the match; safe to read outside the session.
type View struct {
	Version int
	Match   engine.Match
}

type Session struct {
	id      string
	inbox   chan Msg
	match   *engine.Match
	version int
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(parent context.Context, m *engine.Match, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		id:     m.ID,
		inbox:  make(chan Msg, 64),
		match:  m,
		log:    log.With(zap.String("match_id", m.ID)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Done is closed once the session stops accepting commands.
func (s *Session) Done() <-chan struct{} { return s.done }

// Expose the inbox so tests or the hub can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case FromClient:
				msg.Reply <- s.apply(msg)

			case GetState:
				msg.Reply <- View{Version: s.version, Match: s.match.Clone()}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) apply(msg FromClient) Reply {
	slot, ok := s.match.SlotOf(msg.Identity)
	if !ok {
		return Reply{Err: fmt.Errorf("%w: %s", ErrNotInMatch, msg.Identity)}
	}
	cmd := msg.Cmd
	cmd.Slot = slot

	res, err := engine.Apply(s.match, cmd)
	if err != nil {
		s.log.Debug("command rejected",
			zap.String("identity", msg.Identity),
			zap.String("command", string(cmd.Type)),
			zap.Error(err))
		return Reply{Err: err}
	}
	s.version++

	switch {
	case res.Placement != nil && res.Placement.Started:
		s.log.Info("match started", zap.String("turn", string(res.Placement.Turn)))
	case res.Attack != nil && res.Attack.GameOver:
		s.log.Info("match finished",
			zap.String("winner", s.match.IdentityOf(res.Attack.Winner)))
	case res.Forfeit != nil:
		s.log.Info("match forfeited",
			zap.String("winner", s.match.IdentityOf(res.Forfeit.Winner)))
	}
	return Reply{Result: res}
}

func (s *Session) shutdown() {
	s.cancel()
	s.log.Debug("session stopped", zap.Int("version", s.version))
}

// Do sends cmd and waits for its result.
func (s *Session) Do(identity string, cmd engine.Command) (engine.Result, error) {
	reply := make(chan Reply, 1)
	select {
	case s.inbox <- FromClient{Identity: identity, Cmd: cmd, Reply: reply}:
	case <-s.done:
		return engine.Result{}, ErrClosed
	}
	select {
	case r := <-reply:
		return r.Result, r.Err
	case <-s.done:
		// the reply may have been sent just before the loop stopped
		select {
		case r := <-reply:
			return r.Result, r.Err
		default:
			return engine.Result{}, ErrClosed
		}
	}
}

func (s *Session) PlaceFleet(identity string, ships []engine.Ship) (engine.PlacementOutcome, error) {
	res, err := s.Do(identity, engine.Command{Type: engine.CmdPlaceShips, Ships: ships})
	if err != nil {
		return engine.PlacementOutcome{}, err
	}
	return *res.Placement, nil
}

func (s *Session) Attack(identity string, pos engine.Position) (engine.AttackOutcome, error) {
	res, err := s.Do(identity, engine.Command{Type: engine.CmdAttack, Position: pos})
	if err != nil {
		return engine.AttackOutcome{}, err
	}
	return *res.Attack, nil
}

func (s *Session) RandomAttack(identity string) (engine.AttackOutcome, error) {
	res, err := s.Do(identity, engine.Command{Type: engine.CmdRandomAttack})
	if err != nil {
		return engine.AttackOutcome{}, err
	}
	return *res.Attack, nil
}

func (s *Session) Forfeit(identity string) (engine.ForfeitOutcome, error) {
	res, err := s.Do(identity, engine.Command{Type: engine.CmdForfeit})
	if err != nil {
		return engine.ForfeitOutcome{}, err
	}
	return *res.Forfeit, nil
}

// View returns a snapshot of the match, or false if the session has stopped.
func (s *Session) View() (View, bool) {
	reply := make(chan View, 1)
	select {
	case s.inbox <- GetState{Reply: reply}:
	case <-s.done:
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-s.done:
		select {
		case v := <-reply:
			return v, true
		default:
			return View{}, false
		}
	}
}

// Stop asks the session to shut down without waiting.
func (s *Session) Stop() {
	select {
	case s.inbox <- Shutdown{}:
	case <-s.done:
	default:
		s.cancel()
	}
}
