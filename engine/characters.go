package engine

import "fmt"

// CharacterKind names one of the twelve character cards.
type CharacterKind uint8

const (
	Monk CharacterKind = iota
	Cook
	Ambassador
	Messenger
	Herbalist
	Centaur
	Jester
	Knight
	MushroomMerchant
	Bard
	Princess
	Trafficker
	NumCharacterKinds
)

var characterNames = [NumCharacterKinds]string{
	Monk:             "monk",
	Cook:             "cook",
	Ambassador:       "ambassador",
	Messenger:        "messenger",
	Herbalist:        "herbalist",
	Centaur:          "centaur",
	Jester:           "jester",
	Knight:           "knight",
	MushroomMerchant: "mushroomMerchant",
	Bard:             "bard",
	Princess:         "princess",
	Trafficker:       "trafficker",
}

func (k CharacterKind) String() string {
	if k < NumCharacterKinds {
		return characterNames[k]
	}
	return fmt.Sprintf("character(%d)", uint8(k))
}

// ParseCharacterKind maps a wire name back to its CharacterKind.
func ParseCharacterKind(s string) (CharacterKind, error) {
	for i, n := range characterNames {
		if n == s {
			return CharacterKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown character %q", s)
}

func (k CharacterKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *CharacterKind) UnmarshalText(b []byte) error {
	v, err := ParseCharacterKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// basePrice is the printed cost of each card.
var basePrice = [NumCharacterKinds]int{
	Monk: 1, Cook: 2, Ambassador: 3, Messenger: 1, Herbalist: 2, Centaur: 3,
	Jester: 1, Knight: 2, MushroomMerchant: 3, Bard: 1, Princess: 2, Trafficker: 3,
}

// reservoir is how many students a card holds on top of it.
var reservoir = [NumCharacterKinds]int{Monk: 4, Jester: 6, Princess: 4}

const herbalistTiles = 4

// Character is one in-play card and its card-local state.
type Character struct {
	Kind      CharacterKind
	Increased bool   // price raised by the first use
	Students  Counts // students resting on the card
	NoEntry   int    // herbalist tiles still on the card
}

// Price is the current cost of the card.
func (c *Character) Price() int {
	if c.Increased {
		return basePrice[c.Kind] + 1
	}
	return basePrice[c.Kind]
}

// BasePrice is the printed cost of the kind.
func BasePrice(k CharacterKind) int { return basePrice[k] }

// drawCharacters picks CharactersInPlay distinct kinds and stocks their reservoirs.
func (g *GameState) drawCharacters() []Character {
	kinds := make([]CharacterKind, NumCharacterKinds)
	for i := range kinds {
		kinds[i] = CharacterKind(i)
	}
	for i := len(kinds) - 1; i > 0; i-- {
		j := g.randN(i + 1)
		kinds[i], kinds[j] = kinds[j], kinds[i]
	}
	cards := make([]Character, CharactersInPlay)
	for i := range cards {
		cards[i] = g.newCharacter(kinds[i])
	}
	return cards
}

func (g *GameState) newCharacter(k CharacterKind) Character {
	ch := Character{Kind: k}
	for i := 0; i < reservoir[k]; i++ {
		if c := g.draw(); c != NoCreature {
			ch.Students[c]++
		}
	}
	if k == Herbalist {
		ch.NoEntry = herbalistTiles
	}
	return ch
}

// SetCharacters replaces the drawn cards with the given kinds. It exists for
// matches that fix their card set up front; reservoir students drawn for the
// previous cards go back to the bag first.
func (g *GameState) SetCharacters(kinds ...CharacterKind) error {
	if !g.Rules.Expert {
		return fmt.Errorf("characters need expert rules")
	}
	if g.Phase != PhaseSetupTower {
		return fmt.Errorf("characters are fixed once setup starts")
	}
	seen := map[CharacterKind]bool{}
	for _, k := range kinds {
		if k >= NumCharacterKinds || seen[k] {
			return fmt.Errorf("invalid character set %v", kinds)
		}
		seen[k] = true
	}
	for _, ch := range g.Characters {
		for c, n := range ch.Students {
			g.Bag[c] += n
		}
	}
	g.Characters = g.Characters[:0]
	for _, k := range kinds {
		g.Characters = append(g.Characters, g.newCharacter(k))
	}
	return nil
}
