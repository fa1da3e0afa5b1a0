package engine

// FusedTowers is the tower count of two fused islands. An island recorded
// with zero towers counts as one.
func FusedTowers(a, b int) int { return max(a, 1) + max(b, 1) }

// unify fuses the island with same-master neighbours on either side.
func (tx *Tx) unify(id int) {
	g := tx.g
	u := &UnionOutcome{Kind: UnionNone, Island: id}
	tx.out.Union = u
	is := g.Islands[id]
	if is.Master == NoPlayer {
		return
	}
	prev, next := g.prevIsland(id), g.nextIsland(id)
	withPrev := prev != id && g.Islands[prev].Master == is.Master
	withNext := next != id && next != prev && g.Islands[next].Master == is.Master

	if withPrev {
		tx.merge(id, prev)
		u.Removed = append(u.Removed, prev)
	}
	if withNext {
		tx.merge(id, next)
		u.Removed = append(u.Removed, next)
	}
	switch {
	case withPrev && withNext:
		u.Kind = UnionBoth
	case withPrev:
		u.Kind = UnionPrevious
	case withNext:
		u.Kind = UnionNext
	}
	if len(g.LiveIslands()) <= 3 {
		// The board never shrinks past three: the match closes on this fusion.
		g.LastRound, g.EndReason = true, EndIslands
		tx.finish()
	}
}

// merge folds island from into island into and deletes from's slot.
func (tx *Tx) merge(into, from int) {
	g := tx.g
	a, b := g.Islands[into], g.Islands[from]
	for c := range a.Students {
		a.Students[c] += b.Students[c]
	}
	a.Towers = FusedTowers(a.Towers, b.Towers)

	// At most one no-entry tile survives a fusion, the rest go back to the card.
	a.NoEntry += b.NoEntry
	if a.NoEntry > 1 {
		if card, ok := g.Character(Herbalist); ok {
			card.NoEntry += a.NoEntry - 1
			tx.touchCharacter(Herbalist)
		}
		a.NoEntry = 1
	}
	if g.MotherNature == from {
		tx.moveMotherNature(into)
	}
	g.Islands[from] = nil
	tx.out.Removed = append(tx.out.Removed, from)
	tx.touchIsland(into)
}
