package server

import (
	"context"

	"github.com/jason-s-yu/archipelago/internal/game"
	"github.com/jason-s-yu/archipelago/internal/protocol"
)

// envelope is one input to a match: a client message, or the loss of a seat.
type envelope struct {
	seat       int
	msg        protocol.ClientMessage
	disconnect bool
}

// Runner is the only goroutine that touches its match. Readers submit
// envelopes; the runner applies them one at a time in receipt order.
type Runner struct {
	match *game.Match
	inbox chan envelope
	done  chan struct{}
}

func newRunner(m *game.Match, buffer int) *Runner {
	return &Runner{match: m, inbox: make(chan envelope, buffer), done: make(chan struct{})}
}

// Submit queues an input. It returns false once the runner has stopped.
func (r *Runner) Submit(ctx context.Context, env envelope) bool {
	select {
	case r.inbox <- env:
		return true
	case <-r.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Done is closed when the runner exits.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Run starts the match and applies inputs until the match ends or ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)
	m := r.match

	m.Mu.Lock()
	m.Start()
	m.Mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			m.Wait()
			return
		case env := <-r.inbox:
			m.Mu.Lock()
			if env.disconnect {
				m.HandleDisconnect(env.seat)
			} else {
				_ = m.HandleAction(env.seat, env.msg) // rejections are nacked by the match
			}
			ended := m.Ended()
			m.Mu.Unlock()
			if ended {
				m.Wait()
				return
			}
		}
	}
}
