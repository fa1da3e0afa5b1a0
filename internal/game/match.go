// Package game runs one authoritative match: it validates client messages
// against the rules engine, broadcasts the resulting deltas and records the
// match history.
package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/cache"
	"github.com/jason-s-yu/archipelago/internal/database"
	"github.com/jason-s-yu/archipelago/internal/protocol"
	"github.com/sirupsen/logrus"
)

// infraTimeout bounds every Redis publish and archive write.
const infraTimeout = 2 * time.Second

// Historian records accepted actions. *cache.Historian satisfies it.
type Historian interface {
	PublishAction(ctx context.Context, rec cache.ActionRecord) error
}

// Archive stores finished match results. *database.Archive satisfies it.
type Archive interface {
	SaveResult(ctx context.Context, r database.MatchResult) error
}

// Config describes a match about to start.
type Config struct {
	LobbyID    uuid.UUID
	Nicknames  []string // by seat
	Expert     bool
	Seed       uint64
	Characters []engine.CharacterKind // fixed card set, drawn from the seed when empty
}

// Match owns one engine.GameState. It is not safe for concurrent use; the
// caller serializes access with Mu.
type Match struct {
	ID      uuid.UUID
	LobbyID uuid.UUID
	Mu      sync.Mutex

	// BroadcastFn sends a message to every seat in order.
	BroadcastFn func(msg protocol.ServerMessage)
	// SendToPlayerFn sends a message to one seat.
	SendToPlayerFn func(seat int, msg protocol.ServerMessage)
	// OnMatchEnd runs once after the end message is broadcast.
	OnMatchEnd func(lobbyID uuid.UUID, result database.MatchResult)

	Historian Historian
	Archive   Archive

	state       *engine.GameState
	views       []protocol.PlayerView // what clients last saw of each board
	log         *logrus.Entry
	actionIndex int
	started     bool
	ended       bool
	background  sync.WaitGroup
}

// NewMatch builds the board for cfg. The match does nothing until Start.
func NewMatch(cfg Config, log *logrus.Entry) (*Match, error) {
	rules, err := engine.RulesFor(len(cfg.Nicknames), cfg.Expert)
	if err != nil {
		return nil, err
	}
	state, err := engine.NewGame(cfg.Seed, rules, cfg.Nicknames)
	if err != nil {
		return nil, err
	}
	if cfg.Expert && len(cfg.Characters) > 0 {
		if err := state.SetCharacters(cfg.Characters...); err != nil {
			return nil, err
		}
	}
	m := &Match{
		ID:      uuid.New(),
		LobbyID: cfg.LobbyID,
		state:   state,
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	m.log = log.WithField("match", m.ID.String())
	return m, nil
}

// State exposes the rules state for reads.
func (m *Match) State() *engine.GameState { return m.state }

// Ended reports whether the end message has been sent.
func (m *Match) Ended() bool { return m.ended }

// Wait blocks until background history and archive writes finish.
func (m *Match) Wait() { m.background.Wait() }

// Start broadcasts the opening snapshot.
// Assumes lock is held by caller.
func (m *Match) Start() {
	if m.started {
		return
	}
	m.started = true
	m.views = make([]protocol.PlayerView, len(m.state.Players))
	for i := range m.state.Players {
		m.views[i] = protocol.PlayerViewOf(&m.state.Players[i])
	}
	snap := protocol.SnapshotOf(m.ID.String(), m.state)
	m.log.WithFields(logrus.Fields{
		"players": m.state.Rules.NumPlayers,
		"expert":  m.state.Rules.Expert,
	}).Info("Match started")
	m.logAction(engine.NoPlayer, "start", map[string]any{
		"players":    m.state.Rules.NumPlayers,
		"expert":     m.state.Rules.Expert,
		"characters": characterNames(m.state),
		"firstSeat":  m.state.FirstPlayer,
	})
	m.fireEvent(protocol.ServerMessage{Object: protocol.ObjStart, Start: snap})
}

func characterNames(g *engine.GameState) []string {
	out := make([]string, 0, len(g.Characters))
	for _, c := range g.Characters {
		out = append(out, c.Kind.String())
	}
	return out
}

// fireEvent broadcasts to all seats.
// Assumes lock is held by caller.
func (m *Match) fireEvent(msg protocol.ServerMessage) {
	if m.BroadcastFn != nil {
		m.BroadcastFn(msg)
	} else {
		m.log.Warnf("BroadcastFn is nil, dropping %s %s", msg.Object, msg.SubObject)
	}
}

// fireEventToPlayer sends to one seat if it is still connected.
// Assumes lock is held by caller.
func (m *Match) fireEventToPlayer(seat int, msg protocol.ServerMessage) {
	if m.SendToPlayerFn == nil {
		m.log.Warnf("SendToPlayerFn is nil, dropping %s for seat %d", msg.Object, seat)
		return
	}
	if seat < 0 || seat >= len(m.state.Players) || !m.state.Players[seat].Connected {
		return
	}
	m.SendToPlayerFn(seat, msg)
}

// HandleDisconnect reports a lost session. The seat is skipped from now on;
// the match ends when at most one seat is left.
// Assumes lock is held by caller.
func (m *Match) HandleDisconnect(seat int) {
	if m.ended || seat < 0 || seat >= len(m.state.Players) || !m.state.Players[seat].Connected {
		return
	}
	entry := m.log.WithField("player", seat)
	if !m.started {
		m.state.Players[seat].Connected = false
		entry.Info("Player left before the match started")
		return
	}
	entry.Info("Player disconnected")
	out := m.state.Disconnect(seat)
	m.logAction(seat, "disconnection", nil)
	m.broadcastAck(protocol.SubDisconnection, seat, m.buildDelta(out.Changes))
	m.afterAction(out)
}

// finish broadcasts the end of the match, archives the result and fires
// OnMatchEnd.
// Assumes lock is held by caller.
func (m *Match) finish() {
	if m.ended {
		return
	}
	m.ended = true
	g := m.state

	end := &protocol.EndResult{Winner: g.Winner, Reason: g.EndReason}
	if g.Winner != engine.NoPlayer {
		end.WinnerNickname = m.teamNickname(g.Winner)
	}
	m.logAction(engine.NoPlayer, "end", map[string]any{
		"winner": end.Winner,
		"reason": string(end.Reason),
		"rounds": g.Round,
	})
	m.fireEvent(protocol.ServerMessage{Object: protocol.ObjEnd, End: end})
	m.log.WithFields(logrus.Fields{
		"winner": end.Winner,
		"reason": end.Reason,
		"rounds": g.Round,
	}).Info("Match ended")

	result := m.result(end)
	if m.Archive != nil {
		m.background.Add(1)
		go func(r database.MatchResult) {
			defer m.background.Done()
			ctx, cancel := context.WithTimeout(context.Background(), infraTimeout)
			defer cancel()
			if err := m.Archive.SaveResult(ctx, r); err != nil {
				m.log.WithError(err).Error("Failed archiving match result")
			}
		}(result)
	}
	if m.OnMatchEnd != nil {
		m.OnMatchEnd(m.LobbyID, result)
	}
}

// teamNickname names the winning holder, joined with its teammates in
// team matches.
func (m *Match) teamNickname(holder int) string {
	var names []string
	for _, seat := range m.state.Teammates(holder) {
		names = append(names, m.state.Players[seat].Nickname)
	}
	if len(names) == 0 {
		return m.state.Players[holder].Nickname
	}
	return strings.Join(names, " & ")
}

func (m *Match) result(end *protocol.EndResult) database.MatchResult {
	g := m.state
	r := database.MatchResult{
		MatchID:        m.ID,
		LobbyID:        m.LobbyID,
		NumPlayers:     g.Rules.NumPlayers,
		Expert:         g.Rules.Expert,
		Winner:         end.Winner,
		WinnerNickname: end.WinnerNickname,
		Reason:         string(end.Reason),
		Rounds:         g.Round,
		Actions:        m.actionIndex,
		FinishedAt:     time.Now().UTC(),
	}
	for i := range g.Players {
		p := &g.Players[i]
		profs := 0
		for _, ok := range p.Board.Professors {
			if ok {
				profs++
			}
		}
		r.Seats = append(r.Seats, database.SeatResult{
			Seat:       i,
			Nickname:   p.Nickname,
			TowersLeft: p.Board.Towers,
			Professors: profs,
			Connected:  p.Connected,
		})
	}
	return r
}

// logAction publishes an action record to the historian. Seat is -1 for
// match events.
// Assumes lock is held by caller.
func (m *Match) logAction(seat int, actionType string, payload map[string]any) {
	m.actionIndex++
	if m.Historian == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]any)
	}
	record := cache.ActionRecord{
		MatchID:     m.ID,
		ActionIndex: m.actionIndex,
		Seat:        seat,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	m.background.Add(1)
	go func(rec cache.ActionRecord) {
		defer m.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), infraTimeout)
		defer cancel()
		if err := m.Historian.PublishAction(ctx, rec); err != nil {
			m.log.WithError(err).Errorf("Failed publishing action %d (%s)", rec.ActionIndex, rec.ActionType)
		}
	}(record)
}

func (m *Match) String() string {
	return fmt.Sprintf("match %s (%d players, round %d, %s)", m.ID, len(m.state.Players), m.state.Round, m.state.Phase)
}
