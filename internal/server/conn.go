package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/archipelago/internal/protocol"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// Conn is one client websocket. Every message to the client goes through a
// buffered FIFO drained by writeLoop, so senders never block on the network.
type Conn struct {
	ID       uuid.UUID
	ws       *websocket.Conn
	send     chan []byte
	done     chan struct{}
	closing  sync.Once
	log      *logrus.Entry
	nickname string // set once by the reader on join

	mu     sync.Mutex
	runner *Runner // match the connection plays in, nil while unbound
	lobby  *Lobby
	seat   int
}

func newConn(ws *websocket.Conn, buffer int, log *logrus.Entry) *Conn {
	id := uuid.New()
	return &Conn{
		ID:   id,
		ws:   ws,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
		log:  log.WithField("conn", id.String()),
		seat: -1,
	}
}

// Enqueue queues msg for delivery. A connection that cannot keep up is
// closed and reported like any other dead session.
func (c *Conn) Enqueue(msg protocol.ServerMessage) bool {
	b, err := protocol.Encode(msg)
	if err != nil {
		c.log.WithError(err).Error("Failed encoding message")
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		c.log.Warn("Send buffer full, closing connection")
		c.Close(websocket.StatusPolicyViolation, "send buffer full")
		return false
	}
}

// writeLoop delivers queued messages in order until the connection closes.
func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case b := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				c.log.WithError(err).Debug("Write failed")
				c.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// Close closes the socket once. Pending reads fail, which ends the session.
func (c *Conn) Close(code websocket.StatusCode, reason string) {
	c.closing.Do(func() {
		close(c.done)
		go func() {
			_ = c.ws.Close(code, reason)
		}()
	})
}

// Done is closed once the connection starts closing.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) bind(l *Lobby, seat int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lobby, c.seat, c.runner = l, seat, nil
}

func (c *Conn) attach(r *Runner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runner = r
}

func (c *Conn) unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lobby, c.seat, c.runner = nil, -1, nil
}

func (c *Conn) binding() (*Lobby, *Runner, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lobby, c.runner, c.seat
}
