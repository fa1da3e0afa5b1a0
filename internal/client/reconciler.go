package client

import (
	"fmt"

	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/protocol"
)

// Decision is what the local player is asked after a server message.
type Decision struct {
	Prompt Prompt
	// Retry is set when the same decision is asked again after a rejection.
	Retry       bool
	Reason      protocol.SubObject
	Explanation string
}

// Reconciler feeds server messages into a Mirror and turns them into
// prompts. It is not safe for concurrent use.
type Reconciler struct {
	Mirror  *Mirror
	LobbyID string

	joined    bool
	abandoned bool
	awaiting  bool            // a request was sent and not yet answered
	sent      protocol.Object // object of that request
	last      Prompt          // last prompt issued
	resume    Prompt          // prompt interrupted by a character card
}

// NewReconciler returns a reconciler for a client that has not joined yet.
func NewReconciler() *Reconciler {
	return &Reconciler{Mirror: NewMirror(-1)}
}

// Joined reports whether the server seated this client.
func (r *Reconciler) Joined() bool { return r.joined }

// Abandoned reports whether a fatal rejection ended the session.
func (r *Reconciler) Abandoned() bool { return r.abandoned }

// Resume returns the prompt a character interrupt will return to.
func (r *Reconciler) Resume() Prompt { return r.resume }

// Sent records a request about to be written. A character request keeps the
// prompt it interrupts so it can be issued again once the card is done.
func (r *Reconciler) Sent(msg protocol.ClientMessage) {
	switch msg.Object {
	case protocol.ObjPing, protocol.ObjJoin:
		return
	case protocol.ObjCharacterRequest:
		if r.resume == PromptNone {
			r.resume = r.last
		}
	}
	r.awaiting = true
	r.sent = msg.Object
}

// Handle applies one server message and returns the next decision.
// PromptNone means the message asks nothing new of the player.
func (r *Reconciler) Handle(msg protocol.ServerMessage) (Decision, error) {
	if r.abandoned {
		return Decision{Prompt: PromptAbandon}, nil
	}
	m := r.Mirror
	switch msg.Object {
	case protocol.ObjJoined:
		if msg.Seat == nil {
			return Decision{}, fmt.Errorf("joined message without a seat")
		}
		r.joined = true
		r.LobbyID = msg.LobbyID
		m.Seat = *msg.Seat
		return r.issue(PromptWait), nil

	case protocol.ObjStart:
		if msg.Start == nil {
			return Decision{}, fmt.Errorf("start message without a snapshot")
		}
		m.ApplyStart(msg.Start)
		return r.next(), nil

	case protocol.ObjEnd:
		m.End = msg.End
		m.Phase = engine.PhaseEnd
		r.awaiting = false
		return r.issue(PromptDone), nil

	case protocol.ObjNack:
		return r.rejected(msg), nil

	case protocol.ObjAck, protocol.ObjCharacterAck:
		if err := m.ApplyDelta(msg.Delta); err != nil {
			return Decision{}, err
		}
		m.observe(msg)
		mine := msg.Player != nil && *msg.Player == m.Seat
		if mine {
			r.ownAck(msg)
		}
		if msg.SubObject == protocol.SubMovement || msg.SubObject == protocol.SubInfluence {
			// A landing always finishes with its union ack.
			return Decision{Prompt: PromptNone}, nil
		}
		if r.awaiting {
			return Decision{Prompt: PromptNone}, nil
		}
		if mine && r.isResumePoint(msg) && r.resume != PromptNone {
			p := r.resume
			r.resume = PromptNone
			if next := DecideNextPrompt(m.Phase, m.MyTurn()); next == PromptDone || next == PromptWait {
				p = next
			}
			return r.issue(p), nil
		}
		return r.next(), nil
	}
	return Decision{Prompt: PromptNone}, nil
}

// ownAck bookkeeps an acknowledgement of the local player's request.
func (r *Reconciler) ownAck(msg protocol.ServerMessage) {
	m := r.Mirror
	switch {
	case msg.Object == protocol.ObjCharacterAck:
		m.CharacterUsed = true
		if msg.Character != nil && *msg.Character == engine.Messenger {
			m.Messenger = true
		}
	case msg.SubObject == protocol.SubMovement:
		m.Messenger = false
	case msg.Character != nil && msg.SubObject != protocol.SubCharacterCancel:
		k := *msg.Character
		m.Pending = &k
	}
	// Movement and influence acks precede the union ack of the same request.
	if msg.SubObject != protocol.SubMovement && msg.SubObject != protocol.SubInfluence {
		r.awaiting = false
	}
}

// isResumePoint reports whether msg closes a character interrupt.
func (r *Reconciler) isResumePoint(msg protocol.ServerMessage) bool {
	return msg.Object == protocol.ObjCharacterAck || msg.SubObject == protocol.SubCharacterCancel
}

// rejected turns a nack into a retry of the same decision.
func (r *Reconciler) rejected(msg protocol.ServerMessage) Decision {
	d := Decision{Reason: msg.SubObject, Explanation: msg.Explanation}
	if msg.Fatal {
		r.abandoned = true
		r.awaiting = false
		d.Prompt = PromptAbandon
		return d
	}
	if !r.awaiting {
		// Not a reply to a match request: a join or lobby rejection.
		d.Prompt = PromptNone
		return d
	}
	r.awaiting = false
	d.Retry = true
	if r.sent == protocol.ObjCharacterRequest {
		// The card was refused; go back to what it interrupted.
		d.Prompt = r.resume
		r.resume = PromptNone
		r.last = d.Prompt
		return d
	}
	d.Prompt = r.last
	return d
}

func (r *Reconciler) next() Decision {
	m := r.Mirror
	p := DecideNextPrompt(m.Phase, m.MyTurn())
	if p == PromptWait && r.last == PromptWait {
		return Decision{Prompt: PromptNone}
	}
	return r.issue(p)
}

func (r *Reconciler) issue(p Prompt) Decision {
	r.last = p
	return Decision{Prompt: p}
}
