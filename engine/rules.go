package engine

import "fmt"

const (
	MinPlayers          = 2
	MaxPlayers          = 4
	NumIslands          = 12
	DeckSize            = 10
	StudentsPerCreature = 26
	TableCapacity       = 10
	CharactersInPlay    = 3
	totalCoins          = 20
)

// Rules holds the per-player-count constants of a match.
type Rules struct {
	NumPlayers     int
	Expert         bool // character cards and coins
	EntranceSize   int
	StudentsToMove int // Action1 repetitions per turn
	CloudCapacity  int
	TowersPerTeam  int
	TowerColors    int // number of distinct colors in play
}

// RulesFor returns the rule set for a match of numPlayers.
//
//   - 2 players: entrance 7, move 3, clouds of 3, 8 towers each
//   - 3 players: entrance 9, move 4, clouds of 4, 6 towers each
//   - 4 players: entrance 9, move 5, clouds of 5, 8 towers per team of two
func RulesFor(numPlayers int, expert bool) (Rules, error) {
	r := Rules{NumPlayers: numPlayers, Expert: expert, StudentsToMove: numPlayers + 1}
	switch numPlayers {
	case 2:
		r.EntranceSize, r.TowersPerTeam, r.TowerColors = 7, 8, 2
	case 3:
		r.EntranceSize, r.TowersPerTeam, r.TowerColors = 9, 6, 3
	case 4:
		r.EntranceSize, r.TowersPerTeam, r.TowerColors = 9, 8, 2
	default:
		return Rules{}, fmt.Errorf("unsupported player count %d (want %d-%d)", numPlayers, MinPlayers, MaxPlayers)
	}
	r.CloudCapacity = r.StudentsToMove
	return r, nil
}

// Teams reports whether players share tower colors in pairs.
func (r Rules) Teams() bool { return r.NumPlayers == 4 }

// SeatsPerColor is how many players may pick the same tower color.
func (r Rules) SeatsPerColor() int {
	if r.Teams() {
		return 2
	}
	return 1
}

// StartingReserve is the coin reserve after every player takes their first coin.
func (r Rules) StartingReserve() int {
	if !r.Expert {
		return 0
	}
	return totalCoins - r.NumPlayers
}

// AssistantSteps is the mother-nature step budget granted by an assistant value.
func AssistantSteps(value int) int { return (value + 1) / 2 }
