package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// client is one websocket connection. Only its reader goroutine sets
// identity and name, and only while holding the server lock.
type client struct {
	id       string
	conn     *websocket.Conn
	out      chan []byte
	limiter  *rate.Limiter
	identity string
	name     string

	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(conn *websocket.Conn, opts Options) *client {
	return &client{
		id:      uuid.NewString(),
		conn:    conn,
		out:     make(chan []byte, opts.OutboxSize),
		limiter: rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst),
		closed:  make(chan struct{}),
	}
}

// send queues b without blocking. A client whose outbox is full is dropped.
func (c *client) send(b []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.out <- b:
		return true
	default:
		c.close(websocket.StatusPolicyViolation, "too slow")
		return false
	}
}

func (c *client) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		go c.conn.Close(code, reason)
	})
}

// writeLoop drains the outbox and pings the peer every PingInterval. A failed
// write or an unanswered ping closes the connection.
func (c *client) writeLoop(ctx context.Context, opts Options, log *zap.Logger) {
	ping := time.NewTicker(opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return

		case b := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				log.Debug("write failed", zap.String("client_id", c.id), zap.Error(err))
				c.close(websocket.StatusGoingAway, "write failed")
				return
			}

		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, opts.ReadTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug("ping failed", zap.String("client_id", c.id), zap.Error(err))
				c.close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}
