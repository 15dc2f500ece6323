// Package ws serves the game protocol over websockets. Each connection gets
// a reader loop that dispatches commands and a writer goroutine that drains a
// bounded outbox.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/seabattle-server/internal/accounts"
	"github.com/DoyleJ11/seabattle-server/internal/hub"
	"github.com/DoyleJ11/seabattle-server/internal/types"
)

type Options struct {
	// ReadTimeout bounds how long a peer may take to answer a ping.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
	// Rate and Burst size each connection's token bucket, in frames per second.
	Rate       float64
	Burst      int
	OutboxSize int
	// OriginPatterns are extra hosts allowed to open connections cross-origin.
	OriginPatterns []string
}

func DefaultOptions() Options {
	return Options{
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 3 * time.Second,
		PingInterval: 30 * time.Second,
		Rate:         10,
		Burst:        20,
		OutboxSize:   64,
	}
}

type Server struct {
	hub   *hub.Hub
	store accounts.Store
	log   *zap.Logger
	opts  Options

	mu         sync.Mutex
	clients    map[*client]struct{}
	byIdentity map[string]*client
}

func NewServer(h *hub.Hub, store accounts.Store, log *zap.Logger, opts Options) *Server {
	return &Server{
		hub:        h,
		store:      store,
		log:        log,
		opts:       opts,
		clients:    make(map[*client]struct{}),
		byIdentity: make(map[string]*client),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.OriginPatterns,
	})
	if err != nil {
		s.log.Debug("websocket accept failed", zap.Error(err))
		return
	}

	c := newClient(conn, s.opts)
	log := s.log.With(zap.String("client_id", c.id))

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	log.Info("client connected", zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer s.disconnect(c, log)

	go c.writeLoop(ctx, s.opts, log)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Info("client closed connection")
			default:
				log.Debug("read failed", zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			s.replyError(c, "", errRateLimited)
			continue
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			s.replyError(c, "", errBadFrame)
			continue
		}
		s.dispatch(ctx, c, env, log)
	}
}

// Close drops every connection.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.close(websocket.StatusGoingAway, "server shutting down")
	}
}

// disconnect unregisters c and takes its player out of any room. Leaving a
// running match forfeits it.
func (s *Server) disconnect(c *client, log *zap.Logger) {
	c.close(websocket.StatusNormalClosure, "bye")

	s.mu.Lock()
	delete(s.clients, c)
	identity := c.identity
	current := identity != "" && s.byIdentity[identity] == c
	if current {
		delete(s.byIdentity, identity)
	}
	s.mu.Unlock()

	if !current {
		log.Info("client disconnected")
		return
	}
	log.Info("player disconnected", zap.String("player", identity))

	out, err := s.hub.RemoveIdentity(identity)
	if err != nil {
		log.Warn("remove from room failed", zap.Error(err))
		return
	}
	if f := out.Forfeit; f != nil {
		log.Info("match forfeited", zap.String("match_id", f.MatchID), zap.String("winner", f.Winner.Identity))
		s.sendTo(f.Winner.Identity, types.TypeFinish, types.Finish{WinPlayer: string(f.Winner.Slot)})
		s.recordWin(context.Background(), f.Winner.Identity, log)
	}
	if out.WasInARoom {
		s.broadcastRooms(log)
	}
}

func (s *Server) encode(typ string, v any) []byte {
	b, err := types.Encode(typ, v)
	if err != nil {
		s.log.Error("encode frame", zap.String("type", typ), zap.Error(err))
		return nil
	}
	return b
}

func (s *Server) reply(c *client, typ string, v any) {
	if b := s.encode(typ, v); b != nil {
		c.send(b)
	}
}

func (s *Server) sendTo(identity, typ string, v any) {
	b := s.encode(typ, v)
	if b == nil {
		return
	}
	s.mu.Lock()
	c := s.byIdentity[identity]
	s.mu.Unlock()
	if c != nil {
		c.send(b)
	}
}

func (s *Server) sendToPlayers(players [2]string, typ string, v any) {
	for _, p := range players {
		s.sendTo(p, typ, v)
	}
}

func (s *Server) broadcast(typ string, v any) {
	b := s.encode(typ, v)
	if b == nil {
		return
	}
	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		c.send(b)
	}
}
