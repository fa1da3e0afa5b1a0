package engine

// ---------------------------------------------------------------------------
// Island influence
// ---------------------------------------------------------------------------

// InfluenceScores returns the influence of every tower holder on the island,
// indexed by player id. Non-holders always score zero; teammates add to
// their holder. One-shot card flags of the acting player are honoured.
func InfluenceScores(g *GameState, islandID int) []int {
	scores := make([]int, len(g.Players))
	is := g.Islands[islandID]
	if is == nil {
		return scores
	}
	for i := range g.Players {
		h := g.Holder(i)
		for c := Creature(0); c < NumCreatures; c++ {
			if c == g.turn.mushroom || !g.Players[i].Board.Professors[c] {
				continue
			}
			scores[h] += is.Students[c]
		}
	}
	if !g.turn.centaur && is.Master != NoPlayer {
		scores[is.Master] += is.Towers
	}
	if g.turn.knight {
		scores[g.Holder(g.current)] += 2
	}
	return scores
}

// ComputeInfluence returns the holder with strictly maximal influence on the
// island, or NoPlayer when two or more holders tie at the maximum.
func ComputeInfluence(g *GameState, islandID int) int {
	scores := InfluenceScores(g, islandID)
	best, owner := -1, NoPlayer
	for _, h := range g.Holders() {
		switch s := scores[h]; {
		case s > best:
			best, owner = s, h
		case s == best:
			owner = NoPlayer
		}
	}
	return owner
}

// consumeInfluenceFlags clears the flags a single computation uses up.
func (tx *Tx) consumeInfluenceFlags() {
	tx.g.turn.knight = false
	tx.g.turn.centaur = false
	tx.g.turn.mushroom = NoCreature
}

// resolveIsland runs the influence computation on an island, transfers towers
// on a change of master and checks the neighbours for fusion.
func (tx *Tx) resolveIsland(id int) {
	g := tx.g
	is := g.Islands[id]
	owner := ComputeInfluence(g, id)
	tx.consumeInfluenceFlags()

	res := &InfluenceOutcome{Island: id, Previous: is.Master, New: is.Master}
	tx.out.Influence = res
	tx.out.Union = &UnionOutcome{Kind: UnionNone, Island: id}
	if owner == NoPlayer || owner == is.Master {
		return
	}
	if g.Players[owner].Board.Towers == 0 {
		// Nothing left to build with; the island keeps its master.
		return
	}

	// An island never conquered counts as holding one tower.
	required := is.Towers
	if required == 0 {
		required = 1
	}
	if is.Master != NoPlayer {
		tx.returnTowers(is.Master, is.Towers)
	}
	is.Towers = tx.placeTowers(owner, required)
	is.Master = owner
	tx.touchIsland(id)
	res.Changed, res.New = true, owner

	if g.Players[owner].Board.Towers == 0 {
		g.flagEnd(EndTowers)
	}
	tx.unify(id)
}

// ---------------------------------------------------------------------------
// Professors
// ---------------------------------------------------------------------------

// UpdateProfessorControl returns the controller of the professor of c for the
// current dining rooms. previous is the controller before the change. A tie
// never transfers control away from previous and never creates a shared
// controller; favored, when not NoPlayer, takes the professor on ties.
// previous loses control once it has no student of that kind left.
func UpdateProfessorControl(g *GameState, c Creature, previous, favored int) int {
	best := 0
	for i := range g.Players {
		if n := g.Players[i].Board.Dining[c]; n > best {
			best = n
		}
	}
	if best == 0 {
		return NoPlayer
	}
	if favored != NoPlayer && g.Players[favored].Board.Dining[c] == best {
		return favored
	}
	if previous != NoPlayer && g.Players[previous].Board.Dining[c] == best {
		return previous
	}
	leader := NoPlayer
	for i := range g.Players {
		if g.Players[i].Board.Dining[c] != best {
			continue
		}
		if leader != NoPlayer {
			return NoPlayer
		}
		leader = i
	}
	return leader
}

// refreshProfessor recomputes and applies control of one professor.
func (tx *Tx) refreshProfessor(c Creature) {
	favored := NoPlayer
	if tx.g.turn.cook {
		favored = tx.g.current
	}
	tx.setProfessor(c, UpdateProfessorControl(tx.g, c, tx.g.ProfessorOwner(c), favored))
}
