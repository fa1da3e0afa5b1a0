// Package engine implements the rules of the island strategy game.
//
// A GameState is the authoritative match model. It is mutated only through
// the action methods in phases.go and characters.go, each of which either
// rejects the action with a *RuleError and leaves the state untouched, or
// applies it and returns an Outcome naming every field that changed.
package engine

import "fmt"

// SchoolBoard is a player's personal area.
type SchoolBoard struct {
	Entrance   []Creature         // fixed-size slots, NoCreature when empty
	Dining     Counts             // seats taken per table
	Professors [NumCreatures]bool // professors controlled
	Towers     int                // towers left in the tower area
	coinMark   Counts             // highest coin threshold already paid per table
}

// EntranceCount returns the number of occupied entrance slots.
func (b *SchoolBoard) EntranceCount() int {
	n := 0
	for _, c := range b.Entrance {
		if c != NoCreature {
			n++
		}
	}
	return n
}

// Player is one participant.
type Player struct {
	ID        int
	Nickname  string
	Color     TowerColor
	Wizard    Wizard
	Hand      [DeckSize]bool // Hand[v-1] is true while assistant v is unplayed
	Played    int            // assistant played this round, 0 = none
	Board     SchoolBoard
	Coins     int
	Connected bool
	Holder    bool // owns the tower area of its color
}

// HasAssistant reports whether value is still in the player's hand.
func (p *Player) HasAssistant(value int) bool {
	return value >= 1 && value <= DeckSize && p.Hand[value-1]
}

// HandSize returns the number of unplayed assistants.
func (p *Player) HandSize() int {
	n := 0
	for _, in := range p.Hand {
		if in {
			n++
		}
	}
	return n
}

// Island is one archipelago tile, possibly the result of fusions.
type Island struct {
	ID       int
	Students Counts
	Towers   int
	Master   int // tower holder who owns it, NoPlayer when unconquered
	NoEntry  int
}

// Cloud is a refill source for the entrances.
type Cloud struct {
	ID       int
	Students []Creature
}

// EndReason says which condition closed the match.
type EndReason string

const (
	EndIslands       EndReason = "islands"
	EndAssistants    EndReason = "assistants"
	EndBag           EndReason = "bag"
	EndTowers        EndReason = "towers"
	EndDisconnection EndReason = "disconnection"
)

// turnState holds what lasts only for the acting player's turn.
type turnState struct {
	movesLeft     int
	characterUsed bool
	cook          bool     // professors go to the user on ties
	messenger     bool     // next mother nature move ignores the step budget
	knight        bool     // +2 in the next influence computation
	centaur       bool     // towers ignored in the next influence computation
	mushroom      Creature // ignored in the next influence computation
}

// pendingCharacter is the card interrupt between request and data payload.
type pendingCharacter struct {
	kind   CharacterKind
	resume Phase
}

// GameState is the complete state of one match.
type GameState struct {
	Rules        Rules
	Phase        Phase
	Players      []Player
	Islands      []*Island // indexed by id, nil once fused away
	MotherNature int       // island id
	Bag          Counts
	Clouds       []Cloud
	Reserve      int
	Characters   []Character
	Round        int
	FirstPlayer  int   // first planner of the current round
	Order        []int // planning order during Planning, action order afterwards
	Action3Valid bool  // false once a refill emptied the bag
	LastRound    bool  // an end condition fired, the match closes at round end
	Winner       int
	EndReason    EndReason
	RNG          uint64

	current  int
	orderIdx int
	turn     turnState
	pending  *pendingCharacter
}

// ---------------------------------------------------------------------------
// xorshift64 RNG
// ---------------------------------------------------------------------------

func (g *GameState) nextRand() uint64 {
	x := g.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.RNG = x
	return x
}

// randN returns a random number in [0, n).
func (g *GameState) randN(n int) int {
	return int(g.nextRand() % uint64(n))
}

// ---------------------------------------------------------------------------
// NewGame
// ---------------------------------------------------------------------------

// NewGame sets up the board for the given players. All randomness of the
// match, including the character draw, comes from seed.
func NewGame(seed uint64, rules Rules, nicknames []string) (*GameState, error) {
	if len(nicknames) != rules.NumPlayers {
		return nil, fmt.Errorf("got %d players, rules want %d", len(nicknames), rules.NumPlayers)
	}
	g := &GameState{
		Rules:        rules,
		Phase:        PhaseSetupTower,
		RNG:          seed,
		Winner:       NoPlayer,
		Action3Valid: true,
		turn:         turnState{mushroom: NoCreature},
	}
	if g.RNG == 0 {
		g.RNG = 1 // xorshift can't start at 0
	}
	for c := range g.Bag {
		g.Bag[c] = StudentsPerCreature
	}

	// Islands: two students of each kind spread over every island except
	// mother nature's and the opposite one.
	g.Islands = make([]*Island, NumIslands)
	for i := range g.Islands {
		g.Islands[i] = &Island{ID: i, Master: NoPlayer}
	}
	g.MotherNature = g.randN(NumIslands)
	var seedStudents []Creature
	for c := Creature(0); c < NumCreatures; c++ {
		seedStudents = append(seedStudents, c, c)
		g.Bag[c] -= 2
	}
	for i := len(seedStudents) - 1; i > 0; i-- {
		j := g.randN(i + 1)
		seedStudents[i], seedStudents[j] = seedStudents[j], seedStudents[i]
	}
	opposite := (g.MotherNature + NumIslands/2) % NumIslands
	k := 0
	for i := 1; i < NumIslands; i++ {
		id := (g.MotherNature + i) % NumIslands
		if id == opposite {
			continue
		}
		g.Islands[id].Students[seedStudents[k]]++
		k++
	}

	g.Players = make([]Player, len(nicknames))
	for i, nick := range nicknames {
		p := &g.Players[i]
		p.ID = i
		p.Nickname = nick
		p.Color = NoTower
		p.Wizard = NoWizard
		p.Connected = true
		for v := range p.Hand {
			p.Hand[v] = true
		}
		p.Board.Entrance = make([]Creature, rules.EntranceSize)
		for s := range p.Board.Entrance {
			p.Board.Entrance[s] = g.draw()
		}
		if rules.Expert {
			p.Coins = 1
		}
	}

	g.Clouds = make([]Cloud, rules.NumPlayers)
	for i := range g.Clouds {
		g.Clouds[i].ID = i
	}

	if rules.Expert {
		g.Reserve = rules.StartingReserve()
		g.Characters = g.drawCharacters()
	}
	g.FirstPlayer = g.randN(rules.NumPlayers)
	return g, nil
}

// draw removes one random student from the bag, NoCreature when empty.
func (g *GameState) draw() Creature {
	total := g.Bag.Total()
	if total == 0 {
		return NoCreature
	}
	r := g.randN(total)
	for c := Creature(0); c < NumCreatures; c++ {
		if r < g.Bag[c] {
			g.Bag[c]--
			return c
		}
		r -= g.Bag[c]
	}
	return NoCreature
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// IsOver reports whether the match has ended.
func (g *GameState) IsOver() bool { return g.Phase == PhaseEnd }

// CurrentPlayer returns the player expected to act, NoPlayer when the match is over.
func (g *GameState) CurrentPlayer() int {
	if g.IsOver() {
		return NoPlayer
	}
	return g.current
}

// MovesLeft returns the Action1 placements still owed by the current player.
func (g *GameState) MovesLeft() int { return g.turn.movesLeft }

// ResumePhase returns the phase a pending card interrupt will return to.
func (g *GameState) ResumePhase() (Phase, bool) {
	if g.pending == nil {
		return 0, false
	}
	return g.pending.resume, true
}

// PendingCharacter returns the card whose data payload is awaited.
func (g *GameState) PendingCharacter() (CharacterKind, bool) {
	if g.pending == nil {
		return 0, false
	}
	return g.pending.kind, true
}

// CharacterUsedThisTurn reports whether the acting player already used a card.
func (g *GameState) CharacterUsedThisTurn() bool { return g.turn.characterUsed }

// LiveIslands returns the ids of islands still on the board, in ring order.
func (g *GameState) LiveIslands() []int {
	ids := make([]int, 0, len(g.Islands))
	for id, is := range g.Islands {
		if is != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Island returns the live island with the given id.
func (g *GameState) Island(id int) (*Island, bool) {
	if id < 0 || id >= len(g.Islands) || g.Islands[id] == nil {
		return nil, false
	}
	return g.Islands[id], true
}

// nextIsland returns the next live island clockwise from id.
func (g *GameState) nextIsland(id int) int {
	for i := 1; i <= len(g.Islands); i++ {
		j := (id + i) % len(g.Islands)
		if g.Islands[j] != nil {
			return j
		}
	}
	return id
}

// prevIsland returns the next live island counterclockwise from id.
func (g *GameState) prevIsland(id int) int {
	n := len(g.Islands)
	for i := 1; i <= n; i++ {
		j := ((id-i)%n + n) % n
		if g.Islands[j] != nil {
			return j
		}
	}
	return id
}

// Steps returns the clockwise distance from mother nature to the island,
// counting live islands only. Zero means the island is mother nature's own.
func (g *GameState) Steps(to int) int {
	steps := 0
	for id := g.MotherNature; id != to; {
		id = g.nextIsland(id)
		steps++
		if steps > len(g.Islands) {
			return -1
		}
	}
	return steps
}

// Holder returns the player who keeps the tower area for p's color.
func (g *GameState) Holder(p int) int {
	if g.Players[p].Holder || g.Players[p].Color == NoTower {
		return p
	}
	for i := range g.Players {
		if g.Players[i].Holder && g.Players[i].Color == g.Players[p].Color {
			return i
		}
	}
	return p
}

// Teammates returns every player sharing holder's color, holder included.
func (g *GameState) Teammates(holder int) []int {
	var ids []int
	for i := range g.Players {
		if g.Holder(i) == holder {
			ids = append(ids, i)
		}
	}
	return ids
}

// Holders returns every player keeping a tower area.
func (g *GameState) Holders() []int {
	var ids []int
	for i := range g.Players {
		if g.Players[i].Holder {
			ids = append(ids, i)
		}
	}
	return ids
}

// ProfessorOwner returns the controller of the creature's professor, NoPlayer if none.
func (g *GameState) ProfessorOwner(c Creature) int {
	for i := range g.Players {
		if g.Players[i].Board.Professors[c] {
			return i
		}
	}
	return NoPlayer
}

// ConnectedPlayers returns the number of players still connected.
func (g *GameState) ConnectedPlayers() int {
	n := 0
	for i := range g.Players {
		if g.Players[i].Connected {
			n++
		}
	}
	return n
}

// StudentTotals sums the students of each kind across the whole match.
// The result is constant for a match.
func (g *GameState) StudentTotals() Counts {
	t := g.Bag
	for i := range g.Players {
		b := &g.Players[i].Board
		for _, c := range b.Entrance {
			if c != NoCreature {
				t[c]++
			}
		}
		for c, n := range b.Dining {
			t[c] += n
		}
	}
	for _, is := range g.Islands {
		if is == nil {
			continue
		}
		for c, n := range is.Students {
			t[c] += n
		}
	}
	for _, cl := range g.Clouds {
		for _, c := range cl.Students {
			t[c]++
		}
	}
	for _, ch := range g.Characters {
		for c, n := range ch.Students {
			t[c] += n
		}
	}
	return t
}

// TowersOnIslands counts the towers a holder has on the board.
func (g *GameState) TowersOnIslands(holder int) int {
	n := 0
	for _, is := range g.Islands {
		if is != nil && is.Master == holder {
			n += is.Towers
		}
	}
	return n
}

// Character returns the in-play card of the given kind.
func (g *GameState) Character(k CharacterKind) (*Character, bool) {
	for i := range g.Characters {
		if g.Characters[i].Kind == k {
			return &g.Characters[i], true
		}
	}
	return nil, false
}
