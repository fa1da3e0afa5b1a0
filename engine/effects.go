package engine

// CharacterData is the variant-specific payload of a card use. Fields a card
// does not read are ignored.
type CharacterData struct {
	Island    int        // monk, herbalist, ambassador
	Creature  Creature   // monk, princess, mushroom merchant, trafficker
	Slots     []int      // entrance slots swapped by jester or bard
	Creatures []Creature // card (jester) or dining room (bard) students, paired with Slots
}

// Effect is the behaviour of one character kind. Price and card-local state
// live on the Character; an Effect never keeps a reference to the state it
// was handed.
type Effect interface {
	// Available reports the card-specific preconditions for user.
	Available(g *GameState, card *Character, user int) bool
	// Validate checks a payload without mutating anything.
	Validate(g *GameState, card *Character, user int, d CharacterData) error
	// Apply performs the effect. Validate has accepted d and the price is paid.
	Apply(tx *Tx, card *Character, user int, d CharacterData)
}

// EffectFor returns the effect of a kind. The switch covers the whole catalogue.
func EffectFor(k CharacterKind) Effect {
	switch k {
	case Monk:
		return monk{}
	case Cook:
		return cook{}
	case Ambassador:
		return ambassador{}
	case Messenger:
		return messenger{}
	case Herbalist:
		return herbalist{}
	case Centaur:
		return centaur{}
	case Jester:
		return jester{}
	case Knight:
		return knight{}
	case MushroomMerchant:
		return mushroomMerchant{}
	case Bard:
		return bard{}
	case Princess:
		return princess{}
	case Trafficker:
		return trafficker{}
	}
	panic("engine: unknown character kind " + k.String())
}

// always is embedded by cards without card-specific preconditions.
type always struct{}

func (always) Available(*GameState, *Character, int) bool { return true }

// noData is embedded by cards that take no payload.
type noData struct{}

func (noData) Validate(*GameState, *Character, int, CharacterData) error { return nil }

func hasStudents(card *Character) bool { return card.Students.Total() > 0 }

func liveIsland(g *GameState, k CharacterKind, id int) error {
	if _, ok := g.Island(id); !ok {
		return reject(CharacterCode(k), "island %d is not on the board", id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Monk: a student from the card goes to an island
// ---------------------------------------------------------------------------

type monk struct{}

func (monk) Available(_ *GameState, card *Character, _ int) bool { return hasStudents(card) }

func (monk) Validate(g *GameState, card *Character, _ int, d CharacterData) error {
	if !d.Creature.Valid() || card.Students[d.Creature] == 0 {
		return reject(CharacterCode(Monk), "no %s on the card", d.Creature)
	}
	return liveIsland(g, Monk, d.Island)
}

func (monk) Apply(tx *Tx, card *Character, _ int, d CharacterData) {
	card.Students[d.Creature]--
	tx.addIslandStudent(d.Island, d.Creature)
	if s := tx.draw(); s != NoCreature {
		card.Students[s]++
	}
	tx.touchCharacter(Monk)
}

// ---------------------------------------------------------------------------
// Cook: professors go to the user on ties for the rest of the turn
// ---------------------------------------------------------------------------

type cook struct {
	always
	noData
}

func (cook) Apply(tx *Tx, _ *Character, _ int, _ CharacterData) {
	tx.g.turn.cook = true
	for c := Creature(0); c < NumCreatures; c++ {
		tx.refreshProfessor(c)
	}
}

// ---------------------------------------------------------------------------
// Ambassador: resolve an island as if mother nature ended there
// ---------------------------------------------------------------------------

type ambassador struct{ always }

func (ambassador) Validate(g *GameState, _ *Character, _ int, d CharacterData) error {
	return liveIsland(g, Ambassador, d.Island)
}

func (ambassador) Apply(tx *Tx, _ *Character, _ int, d CharacterData) {
	tx.resolveIsland(d.Island)
}

// ---------------------------------------------------------------------------
// Messenger: next mother nature move ignores the step budget
// ---------------------------------------------------------------------------

type messenger struct {
	always
	noData
}

func (messenger) Apply(tx *Tx, _ *Character, _ int, _ CharacterData) { tx.g.turn.messenger = true }

// ---------------------------------------------------------------------------
// Herbalist: a no-entry tile goes to an island
// ---------------------------------------------------------------------------

type herbalist struct{}

func (herbalist) Available(_ *GameState, card *Character, _ int) bool { return card.NoEntry > 0 }

func (herbalist) Validate(g *GameState, card *Character, _ int, d CharacterData) error {
	if card.NoEntry == 0 {
		return reject(CharacterCode(Herbalist), "no tiles left on the card")
	}
	return liveIsland(g, Herbalist, d.Island)
}

func (herbalist) Apply(tx *Tx, card *Character, _ int, d CharacterData) {
	card.NoEntry--
	tx.g.Islands[d.Island].NoEntry++
	tx.touchIsland(d.Island)
	tx.touchCharacter(Herbalist)
}

// ---------------------------------------------------------------------------
// Centaur, Knight, Mushroom merchant: one-shot influence modifiers
// ---------------------------------------------------------------------------

type centaur struct {
	always
	noData
}

func (centaur) Apply(tx *Tx, _ *Character, _ int, _ CharacterData) { tx.g.turn.centaur = true }

type knight struct {
	always
	noData
}

func (knight) Apply(tx *Tx, _ *Character, _ int, _ CharacterData) { tx.g.turn.knight = true }

type mushroomMerchant struct{ always }

func (mushroomMerchant) Validate(_ *GameState, _ *Character, _ int, d CharacterData) error {
	if !d.Creature.Valid() {
		return reject(CharacterCode(MushroomMerchant), "a creature kind is required")
	}
	return nil
}

func (mushroomMerchant) Apply(tx *Tx, _ *Character, _ int, d CharacterData) {
	tx.g.turn.mushroom = d.Creature
}

// ---------------------------------------------------------------------------
// Jester: swap up to three entrance students with students on the card
// ---------------------------------------------------------------------------

const (
	jesterSwaps = 3
	bardSwaps   = 2
)

type jester struct{}

func (jester) Available(_ *GameState, card *Character, _ int) bool { return hasStudents(card) }

func (jester) Validate(g *GameState, card *Character, user int, d CharacterData) error {
	if err := validateSwapSlots(g, Jester, user, d, jesterSwaps); err != nil {
		return err
	}
	var want Counts
	for _, c := range d.Creatures {
		if !c.Valid() {
			return reject(CharacterCode(Jester), "invalid creature")
		}
		want[c]++
	}
	for c, n := range want {
		if n > card.Students[c] {
			return reject(CharacterCode(Jester), "only %d %s on the card", card.Students[c], Creature(c))
		}
	}
	return nil
}

func (jester) Apply(tx *Tx, card *Character, user int, d CharacterData) {
	for i, slot := range d.Slots {
		want := d.Creatures[i]
		out := tx.takeEntrance(user, slot)
		card.Students[want]--
		card.Students[out]++
		tx.setEntrance(user, slot, want)
	}
	tx.touchCharacter(Jester)
}

// validateSwapSlots checks the entrance half of a jester or bard payload.
func validateSwapSlots(g *GameState, k CharacterKind, user int, d CharacterData, limit int) error {
	if len(d.Slots) == 0 || len(d.Slots) > limit || len(d.Slots) != len(d.Creatures) {
		return reject(CharacterCode(k), "between 1 and %d paired swaps are required", limit)
	}
	entrance := g.Players[user].Board.Entrance
	seen := map[int]bool{}
	for _, s := range d.Slots {
		if s < 0 || s >= len(entrance) || entrance[s] == NoCreature {
			return reject(CharacterCode(k), "entrance slot %d is empty", s)
		}
		if seen[s] {
			return reject(CharacterCode(k), "entrance slot %d used twice", s)
		}
		seen[s] = true
	}
	return nil
}

// ---------------------------------------------------------------------------
// Bard: swap up to two entrance students with dining room students
// ---------------------------------------------------------------------------

type bard struct{}

func (bard) Available(g *GameState, _ *Character, user int) bool {
	return g.Players[user].Board.Dining.Total() > 0
}

func (bard) Validate(g *GameState, _ *Character, user int, d CharacterData) error {
	if err := validateSwapSlots(g, Bard, user, d, bardSwaps); err != nil {
		return err
	}
	b := &g.Players[user].Board
	dining := b.Dining
	for i, c := range d.Creatures {
		if !c.Valid() {
			return reject(CharacterCode(Bard), "invalid creature")
		}
		// Swaps apply in order, each against the dining room the previous left.
		if dining[c] == 0 {
			return reject(CharacterCode(Bard), "no %s in the dining room", c)
		}
		dining[c]--
		out := b.Entrance[d.Slots[i]]
		if dining[out] >= TableCapacity {
			return reject(CharacterCode(Bard), "the %s table is full", out)
		}
		dining[out]++
	}
	return nil
}

func (bard) Apply(tx *Tx, _ *Character, user int, d CharacterData) {
	touched := map[Creature]bool{}
	for i, slot := range d.Slots {
		want := d.Creatures[i]
		out := tx.takeEntrance(user, slot)
		if tx.removeDining(user, want, 1) != 1 {
			panic("engine: bard swap without a " + want.String() + " in the dining room")
		}
		tx.setEntrance(user, slot, want)
		tx.addDining(user, out)
		touched[want], touched[out] = true, true
	}
	for c := Creature(0); c < NumCreatures; c++ {
		if touched[c] {
			tx.refreshProfessor(c)
		}
	}
}

// ---------------------------------------------------------------------------
// Princess: a student from the card goes to the user's dining room
// ---------------------------------------------------------------------------

type princess struct{}

func (princess) Available(_ *GameState, card *Character, _ int) bool { return hasStudents(card) }

func (princess) Validate(g *GameState, card *Character, user int, d CharacterData) error {
	if !d.Creature.Valid() || card.Students[d.Creature] == 0 {
		return reject(CharacterCode(Princess), "no %s on the card", d.Creature)
	}
	if g.Players[user].Board.Dining[d.Creature] >= TableCapacity {
		return reject(CharacterCode(Princess), "the %s table is full", d.Creature)
	}
	return nil
}

func (princess) Apply(tx *Tx, card *Character, user int, d CharacterData) {
	card.Students[d.Creature]--
	tx.addDining(user, d.Creature)
	if s := tx.draw(); s != NoCreature {
		card.Students[s]++
	}
	tx.touchCharacter(Princess)
	tx.refreshProfessor(d.Creature)
}

// ---------------------------------------------------------------------------
// Trafficker: everyone returns up to three students of a kind to the bag
// ---------------------------------------------------------------------------

const traffickerReturns = 3

type trafficker struct{ always }

func (trafficker) Validate(_ *GameState, _ *Character, _ int, d CharacterData) error {
	if !d.Creature.Valid() {
		return reject(CharacterCode(Trafficker), "a creature kind is required")
	}
	return nil
}

func (trafficker) Apply(tx *Tx, _ *Character, _ int, d CharacterData) {
	for i := range tx.g.Players {
		n := tx.removeDining(i, d.Creature, traffickerReturns)
		tx.returnToBag(d.Creature, n)
	}
	tx.refreshProfessor(d.Creature)
}
