package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/database"
	"github.com/jason-s-yu/archipelago/internal/game"
	"github.com/jason-s-yu/archipelago/internal/protocol"
	"github.com/sirupsen/logrus"
)

// Lobby gathers connections until its seats are full, then runs a match.
type Lobby struct {
	ID      uuid.UUID
	Players int
	Expert  bool

	seats  []*Conn // seat order; nil while free
	runner *Runner
}

func (l *Lobby) free() int {
	for i, c := range l.seats {
		if c == nil {
			return i
		}
	}
	return -1
}

func (l *Lobby) occupied() int {
	n := 0
	for _, c := range l.seats {
		if c != nil {
			n++
		}
	}
	return n
}

// Lobbies is the registry of open lobbies and live nicknames.
type Lobbies struct {
	mu        sync.Mutex
	lobbies   map[uuid.UUID]*Lobby
	order     []uuid.UUID // creation order, for first-available assignment
	nicknames map[string]uuid.UUID

	ctx       context.Context
	log       *logrus.Entry
	seeds     func() uint64
	historian game.Historian
	archive   game.Archive
	inbox     int
	running   sync.WaitGroup
}

func newLobbies(ctx context.Context, log *logrus.Entry, seeds func() uint64, h game.Historian, a game.Archive, inbox int) *Lobbies {
	return &Lobbies{
		lobbies:   map[uuid.UUID]*Lobby{},
		nicknames: map[string]uuid.UUID{},
		ctx:       ctx,
		log:       log,
		seeds:     seeds,
		historian: h,
		archive:   a,
		inbox:     inbox,
	}
}

// Join seats c in a lobby. With a lobby id the player joins that lobby;
// otherwise the first open lobby with the same settings, or a new one. The
// match starts as soon as the last seat is taken.
func (ls *Lobbies) Join(c *Conn, msg protocol.ClientMessage) *protocol.ServerMessage {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if l, _, _ := c.binding(); l != nil {
		nack := protocol.Nack(protocol.SubObject(engine.CodeInvalidAction), "already in a lobby")
		return &nack
	}
	if owner, taken := ls.nicknames[msg.Nickname]; taken && owner != c.ID {
		nack := protocol.Nack(protocol.NackNicknameNotValid, "nickname "+msg.Nickname+" is in use")
		return &nack
	}

	var lobby *Lobby
	if msg.LobbyID != "" {
		id, _ := uuid.Parse(msg.LobbyID)
		lobby = ls.lobbies[id]
		if lobby == nil || lobby.runner != nil || lobby.free() < 0 {
			nack := protocol.Nack(protocol.NackLobbyNotAvailable, "lobby "+msg.LobbyID+" is not available")
			return &nack
		}
	} else {
		for _, id := range ls.order {
			l := ls.lobbies[id]
			if l.runner == nil && l.Players == msg.Players && l.Expert == msg.Expert && l.free() >= 0 {
				lobby = l
				break
			}
		}
		if lobby == nil {
			lobby = &Lobby{ID: uuid.New(), Players: msg.Players, Expert: msg.Expert, seats: make([]*Conn, msg.Players)}
			ls.lobbies[lobby.ID] = lobby
			ls.order = append(ls.order, lobby.ID)
			ls.log.WithFields(logrus.Fields{"lobby": lobby.ID.String(), "players": lobby.Players, "expert": lobby.Expert}).Info("Lobby created")
		}
	}

	seat := lobby.free()
	lobby.seats[seat] = c
	ls.releaseNickname(c)
	c.nickname = msg.Nickname
	ls.nicknames[msg.Nickname] = c.ID
	c.bind(lobby, seat)
	c.Enqueue(protocol.ServerMessage{Object: protocol.ObjJoined, Seat: protocol.Int(seat), LobbyID: lobby.ID.String()})
	ls.log.WithFields(logrus.Fields{"lobby": lobby.ID.String(), "player": seat, "nickname": msg.Nickname}).Info("Player joined")

	if lobby.free() < 0 {
		ls.startLocked(lobby)
	}
	return nil
}

// startLocked creates the match of a full lobby and starts its runner.
func (ls *Lobbies) startLocked(l *Lobby) {
	nicks := make([]string, len(l.seats))
	for i, c := range l.seats {
		nicks[i] = c.nickname
	}
	m, err := game.NewMatch(game.Config{
		LobbyID:   l.ID,
		Nicknames: nicks,
		Expert:    l.Expert,
		Seed:      ls.seeds(),
	}, ls.log.WithField("lobby", l.ID.String()))
	if err != nil {
		ls.log.WithError(err).WithField("lobby", l.ID.String()).Error("Failed creating match")
		nack := protocol.Nack(protocol.NackLobbyNotAvailable, "the match could not be started")
		for _, c := range l.seats {
			c.Enqueue(nack)
			c.unbind()
			ls.releaseNickname(c)
		}
		ls.dropLocked(l.ID)
		return
	}
	seats := append([]*Conn(nil), l.seats...)
	m.BroadcastFn = func(msg protocol.ServerMessage) {
		for _, c := range seats {
			c.Enqueue(msg)
		}
	}
	m.SendToPlayerFn = func(seat int, msg protocol.ServerMessage) {
		seats[seat].Enqueue(msg)
	}
	if ls.historian != nil {
		m.Historian = ls.historian
	}
	if ls.archive != nil {
		m.Archive = ls.archive
	}
	m.OnMatchEnd = func(lobbyID uuid.UUID, _ database.MatchResult) {
		go ls.remove(lobbyID)
	}

	r := newRunner(m, ls.inbox)
	l.runner = r
	for _, c := range seats {
		c.attach(r)
	}
	ls.running.Add(1)
	go func() {
		defer ls.running.Done()
		r.Run(ls.ctx)
	}()
}

// remove drops a finished lobby and frees its connections for a new join.
func (ls *Lobbies) remove(id uuid.UUID) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	l, ok := ls.lobbies[id]
	if !ok {
		return
	}
	ls.dropLocked(id)
	for _, c := range l.seats {
		if c == nil {
			continue
		}
		if cl, _, _ := c.binding(); cl == l {
			c.unbind()
			ls.releaseNickname(c)
		}
	}
	ls.log.WithField("lobby", id.String()).Info("Lobby closed")
}

func (ls *Lobbies) dropLocked(id uuid.UUID) {
	delete(ls.lobbies, id)
	for i, oid := range ls.order {
		if oid == id {
			ls.order = append(ls.order[:i], ls.order[i+1:]...)
			break
		}
	}
}

// releaseNickname frees the nickname c holds, if any.
func (ls *Lobbies) releaseNickname(c *Conn) {
	if owner, ok := ls.nicknames[c.nickname]; ok && owner == c.ID {
		delete(ls.nicknames, c.nickname)
	}
}

// Leave releases everything c holds. A seat in a running match is reported
// to its runner as a disconnection; a seat in a waiting lobby is freed.
func (ls *Lobbies) Leave(c *Conn) {
	ls.mu.Lock()
	ls.releaseNickname(c)
	l, r, seat := c.binding()
	c.unbind()
	if l != nil && r == nil && seat >= 0 && seat < len(l.seats) && l.seats[seat] == c {
		l.seats[seat] = nil
		if l.occupied() == 0 {
			ls.dropLocked(l.ID)
		}
	}
	ls.mu.Unlock()

	if r != nil {
		ctx, cancel := context.WithTimeout(ls.ctx, 5*time.Second)
		defer cancel()
		r.Submit(ctx, envelope{seat: seat, disconnect: true})
	}
}

// Open returns the number of lobbies, waiting or running.
func (ls *Lobbies) Open() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.lobbies)
}

// Wait blocks until every runner has exited.
func (ls *Lobbies) Wait() { ls.running.Wait() }
