package client

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/protocol"
)

// Decider answers prompts with the message to send.
type Decider interface {
	Decide(d Decision, m *Mirror) (protocol.ClientMessage, error)
}

// AutoPlayer picks random legal moves from the mirror. With UseCharacters it
// also plays affordable character cards at the start of its action turns.
type AutoPlayer struct {
	UseCharacters bool

	rng       *rand.Rand
	retries   int
	cancelled bool // a card was given up on this turn
}

// NewAutoPlayer returns a player drawing from seed.
func NewAutoPlayer(seed uint64, useCharacters bool) *AutoPlayer {
	return &AutoPlayer{UseCharacters: useCharacters, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// maxRetries bounds how often a rejected card payload is retried before the
// card is cancelled.
const maxRetries = 2

// Decide implements Decider.
func (a *AutoPlayer) Decide(d Decision, m *Mirror) (protocol.ClientMessage, error) {
	if d.Retry {
		a.retries++
	} else {
		a.retries = 0
	}
	switch d.Prompt {
	case PromptTowerColor:
		return a.tower(m), nil
	case PromptDeck:
		return a.deck(m), nil
	case PromptAssistant:
		cards := m.PlayableAssistants()
		if len(cards) == 0 {
			return protocol.ClientMessage{}, fmt.Errorf("no assistant left in hand")
		}
		return protocol.ClientMessage{Object: protocol.ObjAssistant, Assistant: protocol.Int(a.pick(cards))}, nil
	case PromptMoveStudent:
		if msg, ok := a.character(d, m); ok {
			return msg, nil
		}
		a.cancelled = false
		return a.student(m)
	case PromptMotherNature:
		reach := m.ReachableIslands()
		if len(reach) == 0 {
			return protocol.ClientMessage{}, fmt.Errorf("no reachable island")
		}
		// Retries fall back to the nearest island, which is always legal.
		island := reach[0]
		if !d.Retry {
			island = a.pick(reach)
		}
		return protocol.ClientMessage{Object: protocol.ObjMotherNature, Island: protocol.Int(island)}, nil
	case PromptCloud:
		var full []int
		for _, c := range m.Clouds {
			if len(c.Students) > 0 {
				full = append(full, c.ID)
			}
		}
		if len(full) == 0 {
			return protocol.ClientMessage{Object: protocol.ObjCloud, Cloud: protocol.Int(0)}, nil
		}
		return protocol.ClientMessage{Object: protocol.ObjCloud, Cloud: protocol.Int(a.pick(full))}, nil
	case PromptCharacterData:
		if a.retries >= maxRetries || m.Pending == nil {
			a.cancelled = true
			return protocol.ClientMessage{Object: protocol.ObjCharacterCancel}, nil
		}
		return protocol.ClientMessage{Object: protocol.ObjCharacterData, Data: a.payload(*m.Pending, m)}, nil
	}
	return protocol.ClientMessage{}, fmt.Errorf("prompt %s takes no input", d.Prompt)
}

func (a *AutoPlayer) pick(vals []int) int { return vals[a.rng.IntN(len(vals))] }

func (a *AutoPlayer) tower(m *Mirror) protocol.ClientMessage {
	colors := 2
	if m.NumPlayers == 3 {
		colors = 3
	}
	for c := 0; c < colors; c++ {
		t := engine.TowerColor(c)
		if !slices.Contains(m.UnavailableTowers, t) {
			return protocol.ClientMessage{Object: protocol.ObjTowerColor, Tower: &t}
		}
	}
	t := engine.White
	return protocol.ClientMessage{Object: protocol.ObjTowerColor, Tower: &t}
}

func (a *AutoPlayer) deck(m *Mirror) protocol.ClientMessage {
	for w := 0; w < engine.NumWizards; w++ {
		if !slices.Contains(m.UnavailableDecks, w) {
			return protocol.ClientMessage{Object: protocol.ObjDeck, Wizard: protocol.Int(w)}
		}
	}
	return protocol.ClientMessage{Object: protocol.ObjDeck, Wizard: protocol.Int(0)}
}

func (a *AutoPlayer) student(m *Mirror) (protocol.ClientMessage, error) {
	me := m.Me()
	if me == nil {
		return protocol.ClientMessage{}, fmt.Errorf("seat %d is not in the match", m.Seat)
	}
	var slots []int
	for i, c := range me.Entrance {
		if c.Valid() {
			slots = append(slots, i)
		}
	}
	if len(slots) == 0 {
		return protocol.ClientMessage{}, fmt.Errorf("entrance is empty")
	}
	slot := a.pick(slots)
	c := me.Entrance[slot]
	if me.Dining[c] < engine.TableCapacity && a.rng.IntN(2) == 0 {
		return protocol.ClientMessage{Object: protocol.ObjMoveStudent, Slot: protocol.Int(slot), Destination: protocol.DestDining}, nil
	}
	island := a.pick(m.IslandIDs())
	return protocol.ClientMessage{
		Object:      protocol.ObjMoveStudent,
		Slot:        protocol.Int(slot),
		Destination: protocol.DestIsland,
		Island:      protocol.Int(island),
	}, nil
}

// character requests a card at the first move of a turn when one is
// affordable.
func (a *AutoPlayer) character(d Decision, m *Mirror) (protocol.ClientMessage, bool) {
	me := m.Me()
	if !a.UseCharacters || !m.Expert || d.Retry || a.cancelled || m.CharacterUsed || me == nil || m.MovesLeft != m.Rules.StudentsToMove {
		return protocol.ClientMessage{}, false
	}
	var affordable []engine.CharacterKind
	for _, c := range m.Characters {
		if c.Price <= me.Coins {
			affordable = append(affordable, c.Kind)
		}
	}
	if len(affordable) == 0 {
		return protocol.ClientMessage{}, false
	}
	k := affordable[a.rng.IntN(len(affordable))]
	return protocol.ClientMessage{Object: protocol.ObjCharacterRequest, Character: &k}, true
}

// payload builds a plausible data payload for the pending card.
func (a *AutoPlayer) payload(k engine.CharacterKind, m *Mirror) *protocol.CharacterPayload {
	p := &protocol.CharacterPayload{}
	card, _ := m.Character(k)
	me := m.Me()
	onCard := func() *engine.Creature {
		for c, n := range card.Students {
			if n > 0 {
				return &c
			}
		}
		return nil
	}
	island := func() *int { return protocol.Int(a.pick(m.IslandIDs())) }
	entranceSlot := func() int {
		for i, c := range me.Entrance {
			if c.Valid() {
				return i
			}
		}
		return 0
	}

	switch k {
	case engine.Monk:
		p.Creature, p.Island = onCard(), island()
	case engine.Ambassador, engine.Herbalist:
		p.Island = island()
	case engine.MushroomMerchant, engine.Trafficker:
		c := engine.Creature(a.rng.IntN(engine.NumCreatures))
		p.Creature = &c
	case engine.Princess:
		p.Creature = onCard()
	case engine.Jester:
		if c := onCard(); c != nil && me != nil {
			p.Slots, p.Creatures = []int{entranceSlot()}, []engine.Creature{*c}
		}
	case engine.Bard:
		if me != nil {
			for c, n := range me.Dining {
				if n > 0 {
					p.Slots, p.Creatures = []int{entranceSlot()}, []engine.Creature{c}
					break
				}
			}
		}
	}
	return p
}
