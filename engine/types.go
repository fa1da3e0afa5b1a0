package engine

import "fmt"

// Creature is one of the five student kinds.
type Creature uint8

const (
	Gnome Creature = iota
	Unicorn
	Frog
	Dragon
	Fairy
)

// NumCreatures is the number of distinct creature kinds.
const NumCreatures = 5

// NoCreature marks an empty entrance slot.
const NoCreature Creature = 0xFF

var creatureNames = [NumCreatures]string{
	Gnome:   "yellow_gnomes",
	Unicorn: "blue_unicorns",
	Frog:    "green_frogs",
	Dragon:  "red_dragons",
	Fairy:   "pink_fairies",
}

// Valid reports whether c names a real creature kind.
func (c Creature) Valid() bool { return c < NumCreatures }

func (c Creature) String() string {
	if c.Valid() {
		return creatureNames[c]
	}
	return "none"
}

// ParseCreature maps a wire name back to its Creature.
func ParseCreature(s string) (Creature, error) {
	if s == "none" || s == "" {
		return NoCreature, nil
	}
	for i, n := range creatureNames {
		if n == s {
			return Creature(i), nil
		}
	}
	return NoCreature, fmt.Errorf("unknown creature %q", s)
}

func (c Creature) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Creature) UnmarshalText(b []byte) error {
	v, err := ParseCreature(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Counts holds one number per creature kind, indexed by Creature.
type Counts [NumCreatures]int

// Total returns the sum over all kinds.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// TowerColor identifies a tower owner. In four-player matches a color is a team.
type TowerColor uint8

const (
	White TowerColor = iota
	Black
	Grey
)

// NoTower is the color of a player who has not chosen yet.
const NoTower TowerColor = 0xFF

var towerNames = [...]string{White: "white", Black: "black", Grey: "grey"}

func (t TowerColor) String() string {
	if int(t) < len(towerNames) {
		return towerNames[t]
	}
	return "none"
}

// ParseTowerColor maps a wire name back to its TowerColor.
func ParseTowerColor(s string) (TowerColor, error) {
	for i, n := range towerNames {
		if n == s {
			return TowerColor(i), nil
		}
	}
	if s == "none" || s == "" {
		return NoTower, nil
	}
	return NoTower, fmt.Errorf("unknown tower color %q", s)
}

func (t TowerColor) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TowerColor) UnmarshalText(b []byte) error {
	v, err := ParseTowerColor(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Wizard selects one of the four assistant decks. Decks are cosmetic but unique per match.
type Wizard int8

const (
	NumWizards        = 4
	NoWizard   Wizard = -1
)

// Phase is the controller's position in the turn state machine.
type Phase uint8

const (
	PhaseSetupTower Phase = iota // each player picks a tower color
	PhaseSetupDeck               // each player picks a wizard deck
	PhasePlanning                // assistant card choice
	PhaseAction1                 // student placement
	PhaseAction2                 // mother nature movement, influence and fusion
	PhaseAction3                 // cloud choice
	PhaseCharacter               // card use interrupt, waiting for the data payload
	PhaseEnd
)

var phaseNames = [...]string{
	PhaseSetupTower: "setup_tower",
	PhaseSetupDeck:  "setup_deck",
	PhasePlanning:   "planning",
	PhaseAction1:    "action_1",
	PhaseAction2:    "action_2",
	PhaseAction3:    "action_3",
	PhaseCharacter:  "character",
	PhaseEnd:        "end",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// ParsePhase maps a wire name back to its Phase.
func ParsePhase(s string) (Phase, error) {
	for i, n := range phaseNames {
		if n == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// NoPlayer is used wherever an owner or controller is absent.
const NoPlayer = -1

// DestinationKind says where a student leaving the entrance goes.
type DestinationKind uint8

const (
	ToDining DestinationKind = iota
	ToIsland
)

// UnionKind reports how an island fused with its neighbours after a conquest.
type UnionKind uint8

const (
	UnionNone UnionKind = iota
	UnionPrevious
	UnionNext
	UnionBoth
)

var unionNames = [...]string{UnionNone: "none", UnionPrevious: "previous", UnionNext: "next", UnionBoth: "both"}

func (u UnionKind) String() string {
	if int(u) < len(unionNames) {
		return unionNames[u]
	}
	return "none"
}

func (u UnionKind) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *UnionKind) UnmarshalText(b []byte) error {
	for i, n := range unionNames {
		if n == string(b) {
			*u = UnionKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown union kind %q", b)
}
