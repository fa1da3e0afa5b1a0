// Package server accepts client websockets, groups them into lobbies and runs
// one match goroutine per full lobby.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/config"
	"github.com/jason-s-yu/archipelago/internal/game"
	"github.com/jason-s-yu/archipelago/internal/protocol"
	"github.com/sirupsen/logrus"
)

// maxMessageSize bounds a single client line.
const maxMessageSize = 16 << 10

// Options carries the optional collaborators of a Server.
type Options struct {
	Historian game.Historian
	Archive   game.Archive
	// Seeds returns the seed of each new match. Defaults to cfg.Seed, or
	// the clock when that is zero.
	Seeds func() uint64
}

// Server is the websocket front end. Its zero value is not usable; call New.
type Server struct {
	cfg     config.Server
	log     *logrus.Entry
	lobbies *Lobbies

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a Server. Matches run until Shutdown is called.
func New(cfg config.Server, log *logrus.Entry, opts Options) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	seeds := opts.Seeds
	if seeds == nil {
		seeds = func() uint64 {
			if cfg.Seed != 0 {
				return cfg.Seed
			}
			return uint64(time.Now().UnixNano())
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		log:     log,
		lobbies: newLobbies(ctx, log, seeds, opts.Historian, opts.Archive, cfg.SendBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handler routes /ws to the game socket and /healthz to a liveness check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Lobbies exposes the lobby registry.
func (s *Server) Lobbies() *Lobbies { return s.lobbies }

// Shutdown stops every running match and waits for the runners to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.lobbies.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.cfg.AllowedOrigins})
	if err != nil {
		s.log.WithError(err).Warn("Websocket accept failed")
		return
	}
	ws.SetReadLimit(maxMessageSize)

	c := newConn(ws, s.cfg.SendBuffer, s.log)
	c.log.WithField("remote", r.RemoteAddr).Info("Client connected")

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	go c.writeLoop(ctx)
	go probe(ctx, c, s.cfg.PingInterval, s.cfg.PingTimeout)

	s.readLoop(ctx, c)

	s.lobbies.Leave(c)
	c.Close(websocket.StatusNormalClosure, "")
	c.log.Info("Client disconnected")
}

// readLoop decodes client lines until the socket fails. Only transport errors
// end the loop; malformed lines are nacked.
func (s *Server) readLoop(ctx context.Context, c *Conn) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && websocket.CloseStatus(err) == -1 {
				c.log.WithError(err).Debug("Read failed")
			}
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.WithError(err).Info("Protocol fault")
			c.Enqueue(protocol.Nack(protocol.NackProtocolError, err.Error()))
			continue
		}
		s.route(ctx, c, msg)
	}
}

func (s *Server) route(ctx context.Context, c *Conn, msg protocol.ClientMessage) {
	switch msg.Object {
	case protocol.ObjPing:
		return
	case protocol.ObjJoin:
		// A fatal nack leaves the socket open; the client abandons on its own.
		if nack := s.lobbies.Join(c, msg); nack != nil {
			c.Enqueue(*nack)
		}
		return
	}

	lobby, runner, seat := c.binding()
	switch {
	case lobby == nil:
		c.Enqueue(protocol.Nack(protocol.SubObject(engine.CodeInvalidAction), "join a lobby first"))
	case runner == nil:
		c.Enqueue(protocol.Nack(protocol.SubObject(engine.CodeInvalidAction), "waiting for players"))
	default:
		if !runner.Submit(ctx, envelope{seat: seat, msg: msg}) {
			c.Enqueue(protocol.Nack(protocol.SubObject(engine.CodeInvalidAction), "match is over"))
		}
	}
}
