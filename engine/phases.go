package engine

import "sort"

// ---------------------------------------------------------------------------
// Guards
// ---------------------------------------------------------------------------

func (g *GameState) expect(p int, phase Phase) error {
	if g.IsOver() {
		return reject(CodeInvalidAction, "the match is over")
	}
	if g.Phase != phase {
		return reject(CodeInvalidAction, "expected phase %s, match is in %s", phase, g.Phase)
	}
	if p != g.current {
		return reject(CodeInvalidAction, "it is player %d's turn", g.current)
	}
	return nil
}

// flagEnd schedules the end of the match at the end of the current round.
func (g *GameState) flagEnd(r EndReason) {
	if !g.LastRound {
		g.LastRound = true
		g.EndReason = r
	}
}

// ---------------------------------------------------------------------------
// Setup
// ---------------------------------------------------------------------------

// AvailableTowers lists the colors that still have a free seat.
func (g *GameState) AvailableTowers() []TowerColor {
	var out []TowerColor
	for t := TowerColor(0); int(t) < g.Rules.TowerColors; t++ {
		if g.colorSeats(t) < g.Rules.SeatsPerColor() {
			out = append(out, t)
		}
	}
	return out
}

func (g *GameState) colorSeats(t TowerColor) int {
	n := 0
	for i := range g.Players {
		if g.Players[i].Color == t {
			n++
		}
	}
	return n
}

// AvailableWizards lists the decks nobody has picked.
func (g *GameState) AvailableWizards() []Wizard {
	var out []Wizard
	for w := Wizard(0); w < NumWizards; w++ {
		taken := false
		for i := range g.Players {
			if g.Players[i].Wizard == w {
				taken = true
			}
		}
		if !taken {
			out = append(out, w)
		}
	}
	return out
}

// ChooseTower records the acting player's tower color. The first player of a
// color keeps the towers for everyone sharing it.
func (g *GameState) ChooseTower(p int, color TowerColor) (Outcome, error) {
	if err := g.expect(p, PhaseSetupTower); err != nil {
		return Outcome{}, err
	}
	if int(color) >= g.Rules.TowerColors || g.colorSeats(color) >= g.Rules.SeatsPerColor() {
		return Outcome{}, reject(CodeInvalidTower, "tower color %s is not available", color)
	}
	tx := g.begin()
	tx.assignTower(p, color)
	tx.advanceSetup()
	return tx.commit(), nil
}

func (tx *Tx) assignTower(p int, color TowerColor) {
	pl := tx.player(p)
	pl.Color = color
	if tx.g.colorSeats(color) == 1 {
		pl.Holder = true
		pl.Board.Towers = tx.g.Rules.TowersPerTeam
	}
	tx.touchPlayer(p)
}

// ChooseWizard records the acting player's assistant deck.
func (g *GameState) ChooseWizard(p int, w Wizard) (Outcome, error) {
	if err := g.expect(p, PhaseSetupDeck); err != nil {
		return Outcome{}, err
	}
	ok := false
	for _, free := range g.AvailableWizards() {
		ok = ok || free == w
	}
	if !ok {
		return Outcome{}, reject(CodeInvalidDeck, "deck %d is not available", w)
	}
	tx := g.begin()
	tx.player(p).Wizard = w
	tx.touchPlayer(p)
	tx.advanceSetup()
	return tx.commit(), nil
}

// advanceSetup moves to the next seat still owing a setup choice. Seats of
// disconnected players get the first free option.
func (tx *Tx) advanceSetup() {
	g := tx.g
	for {
		next := NoPlayer
		for i := range g.Players {
			pl := &g.Players[i]
			if (g.Phase == PhaseSetupTower && pl.Color == NoTower) || (g.Phase == PhaseSetupDeck && pl.Wizard == NoWizard) {
				next = i
				break
			}
		}
		if next == NoPlayer {
			if g.Phase == PhaseSetupTower {
				g.Phase = PhaseSetupDeck
				continue
			}
			tx.startRound()
			return
		}
		if g.Players[next].Connected {
			g.current = next
			return
		}
		if g.Phase == PhaseSetupTower {
			tx.assignTower(next, g.AvailableTowers()[0])
		} else {
			tx.player(next).Wizard = g.AvailableWizards()[0]
			tx.touchPlayer(next)
		}
	}
}

// ---------------------------------------------------------------------------
// Rounds
// ---------------------------------------------------------------------------

// startRound refills the clouds and opens the planning phase.
func (tx *Tx) startRound() {
	g := tx.g
	g.Round++
	for i := range g.Clouds {
		cl := &g.Clouds[i]
		for len(cl.Students) < g.Rules.CloudCapacity {
			s := tx.draw()
			if s == NoCreature {
				break
			}
			cl.Students = append(cl.Students, s)
		}
	}
	tx.out.Clouds = true
	tx.out.Refilled = true
	if g.Bag.Total() == 0 {
		g.Action3Valid = false
		g.flagEnd(EndBag)
	}
	for i := range g.Players {
		if g.Players[i].Played != 0 {
			g.Players[i].Played = 0
			tx.touchPlayer(i)
		}
	}

	g.Order = g.Order[:0]
	for i := 0; i < len(g.Players); i++ {
		p := (g.FirstPlayer + i) % len(g.Players)
		if g.Players[p].Connected {
			g.Order = append(g.Order, p)
		}
	}
	g.Phase = PhasePlanning
	g.orderIdx = 0
	g.current = g.Order[0]
}

// PlayableAssistants lists the values p may play now. A card already played
// this round by someone else is allowed only when p holds nothing else.
func (g *GameState) PlayableAssistants(p int) []int {
	taken := map[int]bool{}
	for i := range g.Players {
		if i != p && g.Players[i].Played != 0 {
			taken[g.Players[i].Played] = true
		}
	}
	var fresh, all []int
	for v := 1; v <= DeckSize; v++ {
		if !g.Players[p].HasAssistant(v) {
			continue
		}
		all = append(all, v)
		if !taken[v] {
			fresh = append(fresh, v)
		}
	}
	if len(fresh) > 0 {
		return fresh
	}
	return all
}

// PlayAssistant plays an assistant card during planning.
func (g *GameState) PlayAssistant(p, value int) (Outcome, error) {
	if err := g.expect(p, PhasePlanning); err != nil {
		return Outcome{}, err
	}
	ok := false
	for _, v := range g.PlayableAssistants(p) {
		ok = ok || v == value
	}
	if !ok {
		return Outcome{}, reject(CodeInvalidAssistant, "assistant %d cannot be played", value)
	}
	tx := g.begin()
	pl := tx.player(p)
	pl.Hand[value-1] = false
	pl.Played = value
	tx.touchPlayer(p)
	tx.advancePlanning()
	return tx.commit(), nil
}

func (tx *Tx) advancePlanning() {
	g := tx.g
	for g.orderIdx++; g.orderIdx < len(g.Order); g.orderIdx++ {
		if g.Players[g.Order[g.orderIdx]].Connected {
			g.current = g.Order[g.orderIdx]
			return
		}
	}
	tx.startActions()
}

// startActions sorts the planners by assistant value, keeping planning order
// on equal values, and opens the first turn.
func (tx *Tx) startActions() {
	g := tx.g
	order := make([]int, 0, len(g.Order))
	for _, p := range g.Order {
		if g.Players[p].Played != 0 && g.Players[p].Connected {
			order = append(order, p)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return g.Players[order[i]].Played < g.Players[order[j]].Played
	})
	g.Order = order
	g.orderIdx = -1
	tx.nextTurn()
}

// nextTurn hands the action phase to the next connected player, or closes
// the round.
func (tx *Tx) nextTurn() {
	g := tx.g
	g.turn = turnState{mushroom: NoCreature}
	g.pending = nil
	for g.orderIdx++; g.orderIdx < len(g.Order); g.orderIdx++ {
		p := g.Order[g.orderIdx]
		if !g.Players[p].Connected {
			continue
		}
		g.current = p
		g.turn.movesLeft = min(g.Rules.StudentsToMove, g.Players[p].Board.EntranceCount())
		g.Phase = PhaseAction1
		if g.turn.movesLeft == 0 {
			g.Phase = PhaseAction2
		}
		return
	}
	tx.endRound()
}

func (tx *Tx) endRound() {
	g := tx.g
	for i := range g.Players {
		if g.Players[i].Connected && g.Players[i].HandSize() == 0 {
			g.flagEnd(EndAssistants)
		}
	}
	if g.LastRound {
		tx.finish()
		return
	}
	// The first to act this round plans first in the next one.
	if len(g.Order) > 0 {
		g.FirstPlayer = g.Order[0]
	}
	tx.startRound()
}

func (tx *Tx) finish() {
	g := tx.g
	g.Phase = PhaseEnd
	g.pending = nil
	g.turn = turnState{mushroom: NoCreature}
	g.Winner = ComputeWinner(g)
	tx.out.Ended = true
}

// ---------------------------------------------------------------------------
// Action phases
// ---------------------------------------------------------------------------

// MoveStudent places one entrance student in the dining room or on an island.
func (g *GameState) MoveStudent(p, slot int, dest DestinationKind, island int) (Outcome, error) {
	if err := g.expect(p, PhaseAction1); err != nil {
		return Outcome{}, err
	}
	b := &g.Players[p].Board
	if slot < 0 || slot >= len(b.Entrance) || b.Entrance[slot] == NoCreature {
		return Outcome{}, reject(CodeInvalidStudent, "entrance slot %d is empty", slot)
	}
	c := b.Entrance[slot]
	switch dest {
	case ToDining:
		if b.Dining[c] >= TableCapacity {
			return Outcome{}, reject(CodeTableFull, "the %s table is full", c)
		}
	case ToIsland:
		if _, ok := g.Island(island); !ok {
			return Outcome{}, reject(CodeInvalidIsland, "island %d is not on the board", island)
		}
	default:
		return Outcome{}, reject(CodeInvalidAction, "unknown destination")
	}

	tx := g.begin()
	tx.takeEntrance(p, slot)
	if dest == ToDining {
		tx.addDining(p, c)
		tx.refreshProfessor(c)
	} else {
		tx.addIslandStudent(island, c)
	}
	g.turn.movesLeft--
	if g.turn.movesLeft == 0 {
		g.Phase = PhaseAction2
	}
	return tx.commit(), nil
}

// StepBudget is how far p may move mother nature this turn, -1 for unlimited.
func (g *GameState) StepBudget(p int) int {
	if p == g.current && g.turn.messenger {
		return -1
	}
	return AssistantSteps(g.Players[p].Played)
}

// ReachableIslands lists the islands p may move mother nature to.
func (g *GameState) ReachableIslands(p int) []int {
	budget := g.StepBudget(p)
	var out []int
	for id := g.nextIsland(g.MotherNature); id != g.MotherNature; id = g.nextIsland(id) {
		s := g.Steps(id)
		if budget >= 0 && s > budget {
			break
		}
		out = append(out, id)
	}
	return out
}

// MoveMotherNature moves mother nature clockwise to island and resolves it.
func (g *GameState) MoveMotherNature(p, island int) (Outcome, error) {
	if err := g.expect(p, PhaseAction2); err != nil {
		return Outcome{}, err
	}
	if _, ok := g.Island(island); !ok {
		return Outcome{}, reject(CodeInvalidMotherNature, "island %d is not on the board", island)
	}
	steps := g.Steps(island)
	if steps <= 0 {
		return Outcome{}, reject(CodeInvalidMotherNature, "mother nature must move at least one island")
	}
	if budget := g.StepBudget(p); budget >= 0 && steps > budget {
		return Outcome{}, reject(CodeInvalidMotherNature, "%d steps exceed the budget of %d", steps, budget)
	}

	tx := g.begin()
	g.turn.messenger = false
	tx.moveMotherNature(island)
	is := g.Islands[island]
	if is.NoEntry > 0 {
		is.NoEntry--
		tx.touchIsland(island)
		if card, ok := g.Character(Herbalist); ok {
			card.NoEntry++
			tx.touchCharacter(Herbalist)
		}
		tx.out.Influence = &InfluenceOutcome{Island: island, Blocked: true, Previous: is.Master, New: is.Master}
		tx.out.Union = &UnionOutcome{Kind: UnionNone, Island: island}
	} else {
		tx.resolveIsland(island)
	}
	switch {
	case g.IsOver():
	case g.Action3Valid:
		g.Phase = PhaseAction3
	default:
		tx.nextTurn()
	}
	return tx.commit(), nil
}

// ChooseCloud moves a cloud's students into the entrance and ends the turn.
func (g *GameState) ChooseCloud(p, cloud int) (Outcome, error) {
	if err := g.expect(p, PhaseAction3); err != nil {
		return Outcome{}, err
	}
	if cloud < 0 || cloud >= len(g.Clouds) || len(g.Clouds[cloud].Students) == 0 {
		return Outcome{}, reject(CodeInvalidCloud, "cloud %d is empty", cloud)
	}
	tx := g.begin()
	cl := &g.Clouds[cloud]
	n := tx.fillEntrance(p, cl.Students)
	cl.Students = append([]Creature(nil), cl.Students[n:]...)
	tx.out.Clouds = true
	tx.nextTurn()
	return tx.commit(), nil
}

// ---------------------------------------------------------------------------
// Character interrupt
// ---------------------------------------------------------------------------

// RequestCharacter opens the card interrupt. The acting player must then send
// the card's data, or cancel; either returns to the interrupted phase.
func (g *GameState) RequestCharacter(p int, kind CharacterKind) (Outcome, error) {
	if g.IsOver() || p != g.current {
		return Outcome{}, reject(CodeInvalidAction, "it is player %d's turn", g.current)
	}
	switch g.Phase {
	case PhaseAction1, PhaseAction2, PhaseAction3:
	default:
		return Outcome{}, reject(CodeInvalidAction, "characters cannot be used in phase %s", g.Phase)
	}
	card, ok := g.Character(kind)
	if !g.Rules.Expert || !ok {
		return Outcome{}, reject(CodeCharacterUnavailable, "%s is not in this match", kind)
	}
	if g.turn.characterUsed {
		return Outcome{}, reject(CodeCharacterUsed, "a character was already used this turn")
	}
	if g.Players[p].Coins < card.Price() {
		return Outcome{}, reject(CodeCharacterPrice, "%s costs %d, player has %d", kind, card.Price(), g.Players[p].Coins)
	}
	if !EffectFor(kind).Available(g, card, p) {
		return Outcome{}, reject(CharacterCode(kind), "%s cannot be used now", kind)
	}
	tx := g.begin()
	g.pending = &pendingCharacter{kind: kind, resume: g.Phase}
	g.Phase = PhaseCharacter
	return tx.commit(), nil
}

// UseCharacter applies the pending card with its data payload. Coins are
// charged only once the payload is accepted.
func (g *GameState) UseCharacter(p int, d CharacterData) (Outcome, error) {
	if err := g.expect(p, PhaseCharacter); err != nil {
		return Outcome{}, err
	}
	kind := g.pending.kind
	card, _ := g.Character(kind)
	if g.Players[p].Coins < card.Price() {
		return Outcome{}, reject(CodeCharacterPrice, "%s costs %d, player has %d", kind, card.Price(), g.Players[p].Coins)
	}
	eff := EffectFor(kind)
	if err := eff.Validate(g, card, p, d); err != nil {
		return Outcome{}, err
	}

	tx := g.begin()
	tx.pay(p, card.Price())
	card.Increased = true
	tx.touchCharacter(kind)
	g.turn.characterUsed = true
	resume := g.pending.resume
	g.pending = nil
	eff.Apply(tx, card, p, d)
	if !g.IsOver() {
		g.Phase = resume
	}
	return tx.commit(), nil
}

// CancelCharacter abandons the pending card without charging.
func (g *GameState) CancelCharacter(p int) (Outcome, error) {
	if err := g.expect(p, PhaseCharacter); err != nil {
		return Outcome{}, err
	}
	tx := g.begin()
	g.Phase = g.pending.resume
	g.pending = nil
	return tx.commit(), nil
}

// ---------------------------------------------------------------------------
// Disconnection
// ---------------------------------------------------------------------------

// Disconnect marks a player as gone. The player keeps its islands and
// professors but is skipped from now on. When at most one player remains
// connected the match ends at once.
func (g *GameState) Disconnect(p int) Outcome {
	tx := g.begin()
	if g.IsOver() || p < 0 || p >= len(g.Players) || !g.Players[p].Connected {
		return tx.commit()
	}
	g.Players[p].Connected = false
	tx.touchPlayer(p)

	if g.ConnectedPlayers() <= 1 {
		g.LastRound = true
		g.EndReason = EndDisconnection
		tx.finish()
		if g.Winner == NoPlayer {
			// Nobody holds towers yet: the last seat standing wins.
			for i := range g.Players {
				if g.Players[i].Connected {
					g.Winner = g.Holder(i)
				}
			}
		}
		return tx.commit()
	}
	if p != g.current {
		return tx.commit()
	}
	switch g.Phase {
	case PhaseSetupTower, PhaseSetupDeck:
		tx.advanceSetup()
	case PhasePlanning:
		tx.advancePlanning()
	default:
		tx.nextTurn()
	}
	return tx.commit()
}
