package engine

// Changes names every part of the state an accepted action touched.
type Changes struct {
	Islands      map[int]bool // live islands whose content changed
	Removed      []int        // islands fused away
	Players      map[int]bool // boards, coins, hands or flags changed
	Clouds       bool
	Bag          bool
	Reserve      bool
	MotherNature bool
	Characters   map[CharacterKind]bool
}

// InfluenceOutcome reports an influence resolution on one island.
type InfluenceOutcome struct {
	Island   int
	Blocked  bool // a no-entry tile stopped the computation
	Changed  bool
	Previous int
	New      int
}

// UnionOutcome reports the fusion check after an influence resolution.
type UnionOutcome struct {
	Kind    UnionKind
	Island  int   // surviving island
	Removed []int // islands merged into it
}

// Outcome is the result of an accepted action.
type Outcome struct {
	Changes
	Influence *InfluenceOutcome
	Union     *UnionOutcome
	Refilled  bool // a new round started and the clouds were refilled
	Ended     bool
}

// Tx is the mutation handle passed to rule code and card effects. It is only
// valid until the action that created it commits.
type Tx struct {
	g   *GameState
	out *Outcome
}

func (g *GameState) begin() *Tx {
	return &Tx{g: g, out: &Outcome{Changes: Changes{
		Islands:    map[int]bool{},
		Players:    map[int]bool{},
		Characters: map[CharacterKind]bool{},
	}}}
}

func (tx *Tx) commit() Outcome {
	out := *tx.out
	for _, id := range out.Removed {
		delete(out.Islands, id)
	}
	tx.g, tx.out = nil, nil
	return out
}

// State exposes the state being mutated, for reads.
func (tx *Tx) State() *GameState { return tx.g }

func (tx *Tx) touchIsland(id int) { tx.out.Islands[id] = true }
func (tx *Tx) touchPlayer(p int) { tx.out.Players[p] = true }
func (tx *Tx) touchCharacter(k CharacterKind) { tx.out.Characters[k] = true }
func (tx *Tx) player(p int) *Player { return &tx.g.Players[p] }
func (tx *Tx) board(p int) *SchoolBoard { return &tx.g.Players[p].Board }

// ---------------------------------------------------------------------------
// Bag
// ---------------------------------------------------------------------------

func (tx *Tx) draw() Creature {
	c := tx.g.draw()
	if c != NoCreature {
		tx.out.Bag = true
	}
	return c
}

func (tx *Tx) returnToBag(c Creature, n int) {
	if n == 0 {
		return
	}
	tx.g.Bag[c] += n
	tx.out.Bag = true
}

// ---------------------------------------------------------------------------
// Entrance and dining room
// ---------------------------------------------------------------------------

func (tx *Tx) takeEntrance(p, slot int) Creature {
	b := tx.board(p)
	c := b.Entrance[slot]
	b.Entrance[slot] = NoCreature
	tx.touchPlayer(p)
	return c
}

func (tx *Tx) setEntrance(p, slot int, c Creature) {
	tx.board(p).Entrance[slot] = c
	tx.touchPlayer(p)
}

// fillEntrance puts students into empty slots in order and returns how many fit.
func (tx *Tx) fillEntrance(p int, students []Creature) int {
	b := tx.board(p)
	n := 0
	for s := range b.Entrance {
		if n == len(students) {
			break
		}
		if b.Entrance[s] == NoCreature {
			b.Entrance[s] = students[n]
			n++
		}
	}
	tx.touchPlayer(p)
	return n
}

// addDining seats a student and pays the coin for every third seat reached
// for the first time.
func (tx *Tx) addDining(p int, c Creature) {
	b := tx.board(p)
	b.Dining[c]++
	tx.touchPlayer(p)
	if !tx.g.Rules.Expert {
		return
	}
	if n := b.Dining[c]; n%3 == 0 && n > b.coinMark[c] {
		b.coinMark[c] = n
		if tx.g.Reserve > 0 {
			tx.g.Reserve--
			tx.player(p).Coins++
			tx.out.Reserve = true
		}
	}
}

func (tx *Tx) removeDining(p int, c Creature, n int) int {
	b := tx.board(p)
	if n > b.Dining[c] {
		n = b.Dining[c]
	}
	b.Dining[c] -= n
	if n > 0 {
		tx.touchPlayer(p)
	}
	return n
}

// ---------------------------------------------------------------------------
// Islands, towers, coins
// ---------------------------------------------------------------------------

func (tx *Tx) addIslandStudent(id int, c Creature) {
	tx.g.Islands[id].Students[c]++
	tx.touchIsland(id)
}

func (tx *Tx) moveMotherNature(id int) {
	tx.g.MotherNature = id
	tx.out.MotherNature = true
}

// placeTowers moves up to n towers from the holder's area to the board and
// returns how many moved.
func (tx *Tx) placeTowers(holder, n int) int {
	b := tx.board(holder)
	if n > b.Towers {
		n = b.Towers
	}
	b.Towers -= n
	tx.touchPlayer(holder)
	return n
}

func (tx *Tx) returnTowers(holder, n int) {
	tx.board(holder).Towers += n
	tx.touchPlayer(holder)
}

// pay moves coins from a player to the reserve.
func (tx *Tx) pay(p, amount int) {
	tx.player(p).Coins -= amount
	tx.g.Reserve += amount
	tx.touchPlayer(p)
	tx.out.Reserve = true
}

func (tx *Tx) setProfessor(c Creature, owner int) {
	for i := range tx.g.Players {
		b := tx.board(i)
		has := i == owner
		if b.Professors[c] != has {
			b.Professors[c] = has
			tx.touchPlayer(i)
		}
	}
}
