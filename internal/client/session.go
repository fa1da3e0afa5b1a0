package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/archipelago/internal/protocol"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrAbandoned is returned when the server refuses the session for good.
var ErrAbandoned = errors.New("client: session abandoned")

// JoinError is a non-fatal rejection of a join request.
type JoinError struct {
	Reason      protocol.SubObject
	Explanation string
}

func (e *JoinError) Error() string { return fmt.Sprintf("join rejected: %s: %s", e.Reason, e.Explanation) }

// Session is one websocket connection to the match server.
type Session struct {
	Reconciler *Reconciler

	ws           *websocket.Conn
	log          *logrus.Entry
	pingInterval time.Duration
	writeMu      sync.Mutex
}

// Dial connects to url. pingInterval sets how often an application ping keeps
// the session alive; zero disables it.
func Dial(ctx context.Context, url string, pingInterval time.Duration, log *logrus.Entry) (*Session, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{Reconciler: NewReconciler(), ws: ws, log: log, pingInterval: pingInterval}, nil
}

// Close closes the connection.
func (s *Session) Close() error {
	return s.ws.Close(websocket.StatusNormalClosure, "")
}

// Send writes one message and records it with the reconciler.
func (s *Session) Send(ctx context.Context, msg protocol.ClientMessage) error {
	b, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.ws.Write(ctx, websocket.MessageText, b); err != nil {
		return fmt.Errorf("write %s: %w", msg.Object, err)
	}
	s.Reconciler.Sent(msg)
	return nil
}

// Play sends join and answers every prompt with d until the match ends. It
// returns the end result, ErrAbandoned, a *JoinError or a transport error.
func (s *Session) Play(ctx context.Context, join protocol.ClientMessage, d Decider) (*protocol.EndResult, error) {
	join.Object = protocol.ObjJoin
	if err := s.Send(ctx, join); err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	var end *protocol.EndResult
	stop := make(chan struct{})
	if s.pingInterval > 0 {
		g.Go(func() error { return s.keepAlive(ctx, stop) })
	}
	g.Go(func() error {
		defer close(stop)
		var err error
		end, err = s.readLoop(ctx, d)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return end, nil
}

func (s *Session) keepAlive(ctx context.Context, stop <-chan struct{}) error {
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			return nil
		case <-t.C:
			if err := s.Send(ctx, protocol.ClientMessage{Object: protocol.ObjPing}); err != nil {
				return err
			}
		}
	}
}

func (s *Session) readLoop(ctx context.Context, d Decider) (*protocol.EndResult, error) {
	r := s.Reconciler
	for {
		_, data, err := s.ws.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		msg, err := protocol.DecodeServer(data)
		if err != nil {
			s.log.WithError(err).Warn("Dropping malformed server message")
			continue
		}
		dec, err := r.Handle(msg)
		if err != nil {
			return nil, err
		}
		if dec.Reason != "" {
			s.log.WithFields(logrus.Fields{"reason": dec.Reason, "prompt": dec.Prompt.String()}).Info(dec.Explanation)
		}
		switch {
		case dec.Prompt == PromptAbandon:
			return nil, fmt.Errorf("%w: %s", ErrAbandoned, dec.Explanation)
		case dec.Prompt == PromptDone:
			// The last acks already carry the end phase; the result follows them.
			if r.Mirror.End != nil {
				return r.Mirror.End, nil
			}
		case !r.Joined() && dec.Reason != "":
			return nil, &JoinError{Reason: dec.Reason, Explanation: dec.Explanation}
		case dec.Prompt.NeedsInput():
			out, err := d.Decide(dec, r.Mirror)
			if err != nil {
				return nil, fmt.Errorf("decide %s: %w", dec.Prompt, err)
			}
			if err := s.Send(ctx, out); err != nil {
				return nil, err
			}
		}
	}
}
