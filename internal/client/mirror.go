// Package client keeps a player's view of a remote match and decides what
// the local player has to be asked next.
package client

import (
	"errors"
	"slices"

	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/protocol"
)

// ErrNotStarted is returned when a delta arrives before the start snapshot.
var ErrNotStarted = errors.New("client: no start snapshot yet")

// Mirror is the part of the match state visible to one client. It is built
// only from the start snapshot and the deltas that follow it.
type Mirror struct {
	Seat       int
	MatchID    string
	NumPlayers int
	Expert     bool
	Rules      protocol.RulesView

	Islands      map[int]protocol.IslandView
	Players      []protocol.PlayerView
	Clouds       []protocol.CloudView
	Characters   []protocol.CharacterView
	MotherNature int
	BagSize      int
	CoinReserve  int

	Phase        engine.Phase
	Current      int
	MovesLeft    int
	Action3Valid bool

	// Hand is the local player's assistants still in hand.
	Hand []int
	// UnavailableTowers and UnavailableDecks come from the setup acks.
	UnavailableTowers []engine.TowerColor
	UnavailableDecks  []int
	// Pending is the card awaiting its data payload, if any.
	Pending *engine.CharacterKind
	// CharacterUsed is set once the current player used a card this turn.
	CharacterUsed bool
	// Messenger is set while the local player's next move ignores the
	// distance limit.
	Messenger bool

	End     *protocol.EndResult
	started bool
}

// NewMirror returns an empty mirror for seat.
func NewMirror(seat int) *Mirror {
	return &Mirror{Seat: seat, Current: engine.NoPlayer}
}

// Started reports whether the start snapshot was applied.
func (m *Mirror) Started() bool { return m.started }

// ApplyStart replaces the mirror with the start snapshot.
func (m *Mirror) ApplyStart(s *protocol.Snapshot) {
	m.MatchID = s.MatchID
	m.NumPlayers = s.NumPlayers
	m.Expert = s.Expert
	m.Rules = s.Rules
	m.Islands = make(map[int]protocol.IslandView, len(s.Islands))
	for _, is := range s.Islands {
		m.Islands[is.ID] = is
	}
	m.Players = slices.Clone(s.Players)
	m.Clouds = slices.Clone(s.Clouds)
	m.Characters = slices.Clone(s.Characters)
	m.MotherNature = s.MotherNature
	m.BagSize = s.BagSize
	m.CoinReserve = s.CoinReserve
	m.Phase = s.Phase
	m.Current = s.CurrentPlayer
	m.MovesLeft = s.Rules.StudentsToMove
	m.Action3Valid = true
	m.Hand = make([]int, engine.DeckSize)
	for i := range m.Hand {
		m.Hand[i] = i + 1
	}
	m.started = true
}

// ApplyDelta merges the fields present in d. Fields absent from d are left
// untouched.
func (m *Mirror) ApplyDelta(d *protocol.Delta) error {
	if d == nil {
		return nil
	}
	if !m.started {
		return ErrNotStarted
	}
	for _, is := range d.Islands {
		m.Islands[is.ID] = is
	}
	for _, id := range d.RemovedIslands {
		delete(m.Islands, id)
	}
	for _, pd := range d.Players {
		if pd.ID < 0 || pd.ID >= len(m.Players) {
			continue
		}
		if pd.ID == m.Seat && pd.Played != nil && *pd.Played != 0 {
			m.Hand = slices.DeleteFunc(m.Hand, func(v int) bool { return v == *pd.Played })
		}
		m.Players[pd.ID].Apply(pd)
	}
	if d.MotherNature != nil {
		m.MotherNature = *d.MotherNature
	}
	for _, cl := range d.Clouds {
		if cl.ID >= 0 && cl.ID < len(m.Clouds) {
			m.Clouds[cl.ID] = cl
		}
	}
	if d.CoinReserve != nil {
		m.CoinReserve = *d.CoinReserve
	}
	if d.BagSize != nil {
		m.BagSize = *d.BagSize
	}
	for _, cv := range d.Characters {
		for i := range m.Characters {
			if m.Characters[i].Kind == cv.Kind {
				m.Characters[i] = cv
			}
		}
	}
	return nil
}

// observe records the turn position an ack reports.
func (m *Mirror) observe(msg protocol.ServerMessage) {
	if msg.NextPlayer != nil {
		if *msg.NextPlayer != m.Current {
			m.CharacterUsed = false
			m.Messenger = false
		}
		m.Current = *msg.NextPlayer
	}
	if msg.Phase != nil {
		m.Phase = *msg.Phase
		if m.Phase != engine.PhaseCharacter {
			m.Pending = nil
		}
	}
	if msg.MovesLeft != nil {
		m.MovesLeft = *msg.MovesLeft
	}
	if msg.Action3Valid != nil {
		m.Action3Valid = *msg.Action3Valid
	}
	if msg.UnavailableTowers != nil {
		m.UnavailableTowers = slices.Clone(msg.UnavailableTowers)
	}
	if msg.UnavailableDecks != nil {
		m.UnavailableDecks = slices.Clone(msg.UnavailableDecks)
	}
}

// IslandIDs returns the live islands in ring order.
func (m *Mirror) IslandIDs() []int {
	ids := make([]int, 0, len(m.Islands))
	for id := range m.Islands {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Me returns the local player's board.
func (m *Mirror) Me() *protocol.PlayerView {
	if m.Seat < 0 || m.Seat >= len(m.Players) {
		return nil
	}
	return &m.Players[m.Seat]
}

// MyTurn reports whether the local player is the one the match waits for.
func (m *Mirror) MyTurn() bool { return m.started && m.Current == m.Seat }

// Character returns the in-play card of kind k.
func (m *Mirror) Character(k engine.CharacterKind) (protocol.CharacterView, bool) {
	for _, c := range m.Characters {
		if c.Kind == k {
			return c, true
		}
	}
	return protocol.CharacterView{}, false
}

// PlayableAssistants returns the hand cards no other player used this round,
// or the whole hand when every card left was already used.
func (m *Mirror) PlayableAssistants() []int {
	taken := map[int]bool{}
	for i, p := range m.Players {
		if i != m.Seat && p.Played != 0 {
			taken[p.Played] = true
		}
	}
	var fresh []int
	for _, v := range m.Hand {
		if !taken[v] {
			fresh = append(fresh, v)
		}
	}
	if len(fresh) == 0 {
		return slices.Clone(m.Hand)
	}
	return fresh
}

// ReachableIslands lists the islands the local player may move mother
// nature to, nearest first.
func (m *Mirror) ReachableIslands() []int {
	ids := m.IslandIDs()
	if len(ids) <= 1 {
		return ids
	}
	start := slices.Index(ids, m.MotherNature)
	budget := len(ids) - 1
	if me := m.Me(); me != nil && !m.Messenger {
		budget = min(budget, engine.AssistantSteps(me.Played))
	}
	out := make([]int, 0, budget)
	for step := 1; step <= budget; step++ {
		out = append(out, ids[(start+step)%len(ids)])
	}
	return out
}
