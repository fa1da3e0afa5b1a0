package game

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/protocol"
	"github.com/sirupsen/logrus"
)

var errNotStarted = &engine.RuleError{Code: engine.CodeInvalidAction, Message: "the match has not started"}

// HandleAction applies one client message from seat. An accepted action is
// acknowledged to every seat; a rejected one is nacked to the sender only and
// the error is returned.
// Assumes lock is held by caller.
func (m *Match) HandleAction(seat int, msg protocol.ClientMessage) error {
	entry := m.log.WithFields(logrus.Fields{"player": seat, "object": msg.Object})
	if msg.Object == protocol.ObjPing {
		return nil
	}
	err := m.dispatch(seat, msg)
	if err != nil {
		m.nack(seat, err)
		entry.WithError(err).Info("Action rejected")
		return err
	}
	entry.Debug("Action accepted")
	return nil
}

func (m *Match) dispatch(seat int, msg protocol.ClientMessage) error {
	if !m.started || m.ended {
		if m.ended {
			return &engine.RuleError{Code: engine.CodeInvalidAction, Message: "the match is over"}
		}
		return errNotStarted
	}
	if seat < 0 || seat >= len(m.state.Players) {
		return fmt.Errorf("unknown seat %d", seat)
	}
	g := m.state

	switch msg.Object {
	case protocol.ObjTowerColor:
		out, err := g.ChooseTower(seat, *msg.Tower)
		if err != nil {
			return err
		}
		m.logAction(seat, "tower_color", map[string]any{"tower": msg.Tower.String()})
		ack := m.ack(protocol.SubTowerColor, seat, m.buildDelta(out.Changes))
		ack.UnavailableTowers = m.unavailableTowers()
		m.fireEvent(ack)
		m.afterAction(out)

	case protocol.ObjDeck:
		out, err := g.ChooseWizard(seat, engine.Wizard(*msg.Wizard))
		if err != nil {
			return err
		}
		m.logAction(seat, "deck", map[string]any{"wizard": *msg.Wizard})
		ack := m.ack(protocol.SubDeck, seat, m.buildDelta(out.Changes))
		ack.UnavailableDecks = m.unavailableDecks()
		m.fireEvent(ack)
		m.afterAction(out)

	case protocol.ObjAssistant:
		out, err := g.PlayAssistant(seat, *msg.Assistant)
		if err != nil {
			return err
		}
		m.logAction(seat, "assistant", map[string]any{"value": *msg.Assistant})
		m.broadcastAck(protocol.SubAssistant, seat, m.buildDelta(out.Changes))
		m.afterAction(out)

	case protocol.ObjMoveStudent:
		dest, sub, island := engine.ToDining, protocol.SubDiningRoom, 0
		if msg.Destination == protocol.DestIsland {
			dest, sub, island = engine.ToIsland, protocol.SubIsland, *msg.Island
		}
		out, err := g.MoveStudent(seat, *msg.Slot, dest, island)
		if err != nil {
			return err
		}
		m.logAction(seat, string(sub), map[string]any{"slot": *msg.Slot, "island": island})
		m.broadcastAck(sub, seat, m.buildDelta(out.Changes))
		m.afterAction(out)

	case protocol.ObjMotherNature:
		out, err := g.MoveMotherNature(seat, *msg.Island)
		if err != nil {
			return err
		}
		m.logAction(seat, "mother_nature", map[string]any{"island": *msg.Island})
		m.broadcastLanding(seat, out)
		m.afterAction(out)

	case protocol.ObjCloud:
		out, err := g.ChooseCloud(seat, *msg.Cloud)
		if err != nil {
			return err
		}
		m.logAction(seat, "cloud", map[string]any{"cloud": *msg.Cloud})
		m.broadcastAck(protocol.SubAction3, seat, m.buildDelta(out.Changes))
		m.afterAction(out)

	case protocol.ObjCharacterRequest:
		out, err := g.RequestCharacter(seat, *msg.Character)
		if err != nil {
			return err
		}
		m.logAction(seat, "character_request", map[string]any{"character": msg.Character.String()})
		ack := m.ack(protocol.CharacterSub(*msg.Character), seat, m.buildDelta(out.Changes))
		ack.Character = msg.Character
		m.fireEvent(ack)

	case protocol.ObjCharacterData:
		kind, _ := g.PendingCharacter()
		out, err := g.UseCharacter(seat, msg.Data.EngineData())
		if err != nil {
			return err
		}
		m.logAction(seat, "character_data", map[string]any{"character": kind.String()})
		m.broadcastCharacterAck(seat, kind, out)
		m.afterAction(out)

	case protocol.ObjCharacterCancel:
		kind, _ := g.PendingCharacter()
		if _, err := g.CancelCharacter(seat); err != nil {
			return err
		}
		m.logAction(seat, "character_cancel", map[string]any{"character": kind.String()})
		ack := m.ack(protocol.SubCharacterCancel, seat, nil)
		ack.Character = &kind
		m.fireEvent(ack)

	default:
		return &engine.RuleError{Code: engine.CodeInvalidAction, Message: fmt.Sprintf("%s is not a match action", msg.Object)}
	}
	return nil
}

// broadcastLanding splits a mother nature landing into its movement,
// influence and union acks.
func (m *Match) broadcastLanding(seat int, out engine.Outcome) {
	rest := m.buildDelta(out.Changes)
	move := m.ack(protocol.SubMovement, seat, nil)
	var removed []int
	if rest != nil {
		if rest.MotherNature != nil {
			move.Delta = &protocol.Delta{MotherNature: rest.MotherNature}
			rest.MotherNature = nil
		}
		removed, rest.RemovedIslands = rest.RemovedIslands, nil
		if rest.Empty() {
			rest = nil
		}
	}
	m.fireEvent(move)

	inf := m.ack(protocol.SubInfluence, seat, rest)
	if out.Influence != nil {
		inf.Influence = influenceResult(out.Influence)
	}
	m.fireEvent(inf)

	if out.Union != nil {
		un := m.ack(protocol.SubUnion, seat, nil)
		un.Union = &protocol.UnionResult{Kind: out.Union.Kind, Island: out.Union.Island, Removed: out.Union.Removed}
		if len(removed) > 0 {
			un.Delta = &protocol.Delta{RemovedIslands: removed}
		}
		m.fireEvent(un)
	}
}

// broadcastCharacterAck acknowledges an accepted card payload. Influence and
// fusion results of the card ride on the same message.
func (m *Match) broadcastCharacterAck(seat int, kind engine.CharacterKind, out engine.Outcome) {
	ack := m.ack(protocol.SubObject(kind.String()), seat, m.buildDelta(out.Changes))
	ack.Object = protocol.ObjCharacterAck
	ack.Character = &kind
	if out.Influence != nil {
		ack.Influence = influenceResult(out.Influence)
	}
	if out.Union != nil {
		ack.Union = &protocol.UnionResult{Kind: out.Union.Kind, Island: out.Union.Island, Removed: out.Union.Removed}
	}
	m.fireEvent(ack)
}

func influenceResult(o *engine.InfluenceOutcome) *protocol.InfluenceResult {
	return &protocol.InfluenceResult{
		Island:         o.Island,
		Blocked:        o.Blocked,
		MasterChanged:  o.Changed,
		PreviousMaster: o.Previous,
		NewMaster:      o.New,
	}
}

// afterAction sends the round refill and the end of the match when the
// accepted action caused them.
// Assumes lock is held by caller.
func (m *Match) afterAction(out engine.Outcome) {
	g := m.state
	if out.Refilled && !g.IsOver() {
		refill := m.ack(protocol.SubRefillClouds, engine.NoPlayer, &protocol.Delta{
			Clouds:  protocol.CloudViews(g),
			BagSize: protocol.Int(g.Bag.Total()),
		})
		refill.Player = nil // not caused by a seat
		m.fireEvent(refill)
	}
	if g.IsOver() {
		m.finish()
	}
}

// ack builds an acknowledgement carrying the match position after the action.
func (m *Match) ack(sub protocol.SubObject, seat int, delta *protocol.Delta) protocol.ServerMessage {
	g := m.state
	phase := g.Phase
	msg := protocol.ServerMessage{
		Object:       protocol.ObjAck,
		SubObject:    sub,
		Player:       protocol.Int(seat),
		NextPlayer:   protocol.Int(g.CurrentPlayer()),
		Phase:        &phase,
		Action3Valid: protocol.Bool(g.Action3Valid),
		Delta:        delta,
	}
	if resume, ok := g.ResumePhase(); phase == engine.PhaseAction1 || ok && resume == engine.PhaseAction1 {
		msg.MovesLeft = protocol.Int(g.MovesLeft())
	}
	return msg
}

func (m *Match) broadcastAck(sub protocol.SubObject, seat int, delta *protocol.Delta) {
	m.fireEvent(m.ack(sub, seat, delta))
}

// nack reports a rejected action to its sender.
func (m *Match) nack(seat int, err error) {
	var rule *engine.RuleError
	switch {
	case errors.As(err, &rule):
		m.fireEventToPlayer(seat, protocol.Nack(protocol.SubObject(rule.Code), rule.Message))
	case protocol.IsFault(err):
		m.fireEventToPlayer(seat, protocol.Nack(protocol.NackProtocolError, err.Error()))
	default:
		m.fireEventToPlayer(seat, protocol.Nack(protocol.SubObject(engine.CodeInvalidAction), err.Error()))
	}
}

// buildDelta renders the parts of the state an outcome touched. Player
// boards are diffed against what clients last saw, so every board change
// reaches them exactly once.
func (m *Match) buildDelta(ch engine.Changes) *protocol.Delta {
	g := m.state
	d := &protocol.Delta{}

	ids := make([]int, 0, len(ch.Islands))
	for id := range ch.Islands {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if is, ok := g.Island(id); ok {
			d.Islands = append(d.Islands, protocol.IslandViewOf(is))
		}
	}
	if len(ch.Removed) > 0 {
		d.RemovedIslands = slices.Clone(ch.Removed)
	}

	for i := range g.Players {
		next := protocol.PlayerViewOf(&g.Players[i])
		if pd, changed := protocol.DiffPlayer(m.views[i], next); changed {
			d.Players = append(d.Players, pd)
			m.views[i] = next
		}
	}

	if ch.MotherNature {
		d.MotherNature = protocol.Int(g.MotherNature)
	}
	if ch.Clouds {
		d.Clouds = protocol.CloudViews(g)
	}
	if ch.Reserve {
		d.CoinReserve = protocol.Int(g.Reserve)
	}
	if ch.Bag {
		d.BagSize = protocol.Int(g.Bag.Total())
	}
	for i := range g.Characters {
		c := &g.Characters[i]
		if ch.Characters[c.Kind] {
			d.Characters = append(d.Characters, protocol.CharacterViewOf(c))
		}
	}
	if d.Empty() {
		return nil
	}
	return d
}

func (m *Match) unavailableTowers() []engine.TowerColor {
	free := m.state.AvailableTowers()
	var out []engine.TowerColor
	for t := engine.TowerColor(0); int(t) < m.state.Rules.TowerColors; t++ {
		if !slices.Contains(free, t) {
			out = append(out, t)
		}
	}
	return out
}

func (m *Match) unavailableDecks() []int {
	free := m.state.AvailableWizards()
	var out []int
	for w := engine.Wizard(0); w < engine.NumWizards; w++ {
		if !slices.Contains(free, w) {
			out = append(out, int(w))
		}
	}
	return out
}
