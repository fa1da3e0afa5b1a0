package protocol

import (
	"slices"

	"github.com/jason-s-yu/archipelago/engine"
)

// StudentCounts is a per-creature count keyed by wire name. Views always
// carry all five kinds.
type StudentCounts map[engine.Creature]int

// CountsOf converts engine counts to their wire form.
func CountsOf(c engine.Counts) StudentCounts {
	out := make(StudentCounts, engine.NumCreatures)
	for k, n := range c {
		out[engine.Creature(k)] = n
	}
	return out
}

// Counts converts back to engine counts, ignoring unknown kinds.
func (s StudentCounts) Counts() engine.Counts {
	var c engine.Counts
	for k, n := range s {
		if k.Valid() {
			c[k] = n
		}
	}
	return c
}

// IslandView is the public content of a live island.
type IslandView struct {
	ID       int           `json:"id"`
	Students StudentCounts `json:"students"`
	Towers   int           `json:"towers"`
	Master   int           `json:"master"`
	NoEntry  int           `json:"noEntry,omitempty"`
}

// IslandViewOf renders an island.
func IslandViewOf(is *engine.Island) IslandView {
	return IslandView{
		ID:       is.ID,
		Students: CountsOf(is.Students),
		Towers:   is.Towers,
		Master:   is.Master,
		NoEntry:  is.NoEntry,
	}
}

// PlayerView is the public content of a player's school board. The hand is
// private; only its size is shown.
type PlayerView struct {
	ID         int               `json:"id"`
	Nickname   string            `json:"nickname"`
	Color      engine.TowerColor `json:"color"`
	Wizard     int               `json:"wizard"`
	Holder     bool              `json:"holder"`
	Entrance   []engine.Creature `json:"entrance"`
	Dining     StudentCounts     `json:"dining"`
	Professors []engine.Creature `json:"professors"`
	Towers     int               `json:"towers"`
	Coins      int               `json:"coins"`
	Played     int               `json:"played"`
	HandSize   int               `json:"handSize"`
	Connected  bool              `json:"connected"`
}

// PlayerViewOf renders a player.
func PlayerViewOf(p *engine.Player) PlayerView {
	return PlayerView{
		ID:         p.ID,
		Nickname:   p.Nickname,
		Color:      p.Color,
		Wizard:     int(p.Wizard),
		Holder:     p.Holder,
		Entrance:   slices.Clone(p.Board.Entrance),
		Dining:     CountsOf(p.Board.Dining),
		Professors: professorsOf(p.Board.Professors),
		Towers:     p.Board.Towers,
		Coins:      p.Coins,
		Played:     p.Played,
		HandSize:   p.HandSize(),
		Connected:  p.Connected,
	}
}

func professorsOf(flags [engine.NumCreatures]bool) []engine.Creature {
	out := []engine.Creature{}
	for c, ok := range flags {
		if ok {
			out = append(out, engine.Creature(c))
		}
	}
	return out
}

// HasProfessor reports whether the player controls the professor of c.
func (v *PlayerView) HasProfessor(c engine.Creature) bool {
	return slices.Contains(v.Professors, c)
}

// PlayerDelta carries the fields of one player that changed. Nil means
// unchanged.
type PlayerDelta struct {
	ID         int                `json:"id"`
	Entrance   []engine.Creature  `json:"entrance,omitempty"`
	Dining     StudentCounts      `json:"dining,omitempty"`
	Professors *[]engine.Creature `json:"professors,omitempty"`
	Towers     *int               `json:"towers,omitempty"`
	Coins      *int               `json:"coins,omitempty"`
	Color      *engine.TowerColor `json:"color,omitempty"`
	Wizard     *int               `json:"wizard,omitempty"`
	Holder     *bool              `json:"holder,omitempty"`
	Played     *int               `json:"played,omitempty"`
	HandSize   *int               `json:"handSize,omitempty"`
	Connected  *bool              `json:"connected,omitempty"`
}

// DiffPlayer returns the fields of next that differ from prev, and whether
// there were any.
func DiffPlayer(prev, next PlayerView) (PlayerDelta, bool) {
	d := PlayerDelta{ID: next.ID}
	changed := false
	if !slices.Equal(prev.Entrance, next.Entrance) {
		d.Entrance = slices.Clone(next.Entrance)
		changed = true
	}
	if prev.Dining.Counts() != next.Dining.Counts() {
		d.Dining = CountsOf(next.Dining.Counts())
		changed = true
	}
	if !slices.Equal(prev.Professors, next.Professors) {
		p := slices.Clone(next.Professors)
		if p == nil {
			p = []engine.Creature{}
		}
		d.Professors = &p
		changed = true
	}
	if prev.Towers != next.Towers {
		d.Towers, changed = Int(next.Towers), true
	}
	if prev.Coins != next.Coins {
		d.Coins, changed = Int(next.Coins), true
	}
	if prev.Color != next.Color {
		c := next.Color
		d.Color, changed = &c, true
	}
	if prev.Wizard != next.Wizard {
		d.Wizard, changed = Int(next.Wizard), true
	}
	if prev.Holder != next.Holder {
		d.Holder, changed = Bool(next.Holder), true
	}
	if prev.Played != next.Played {
		d.Played, changed = Int(next.Played), true
	}
	if prev.HandSize != next.HandSize {
		d.HandSize, changed = Int(next.HandSize), true
	}
	if prev.Connected != next.Connected {
		d.Connected, changed = Bool(next.Connected), true
	}
	return d, changed
}

// Apply merges the present fields of d into v.
func (v *PlayerView) Apply(d PlayerDelta) {
	if d.Entrance != nil {
		v.Entrance = slices.Clone(d.Entrance)
	}
	if d.Dining != nil {
		v.Dining = CountsOf(d.Dining.Counts())
	}
	if d.Professors != nil {
		v.Professors = slices.Clone(*d.Professors)
	}
	if d.Towers != nil {
		v.Towers = *d.Towers
	}
	if d.Coins != nil {
		v.Coins = *d.Coins
	}
	if d.Color != nil {
		v.Color = *d.Color
	}
	if d.Wizard != nil {
		v.Wizard = *d.Wizard
	}
	if d.Holder != nil {
		v.Holder = *d.Holder
	}
	if d.Played != nil {
		v.Played = *d.Played
	}
	if d.HandSize != nil {
		v.HandSize = *d.HandSize
	}
	if d.Connected != nil {
		v.Connected = *d.Connected
	}
}

// CloudView is one cloud and the students waiting on it.
type CloudView struct {
	ID       int               `json:"id"`
	Students []engine.Creature `json:"students"`
}

// CloudViews renders every cloud.
func CloudViews(g *engine.GameState) []CloudView {
	out := make([]CloudView, len(g.Clouds))
	for i, cl := range g.Clouds {
		s := slices.Clone(cl.Students)
		if s == nil {
			s = []engine.Creature{}
		}
		out[i] = CloudView{ID: cl.ID, Students: s}
	}
	return out
}

// CharacterView is one in-play card.
type CharacterView struct {
	Kind      engine.CharacterKind `json:"kind"`
	Price     int                  `json:"price"`
	Increased bool                 `json:"increased"`
	Students  StudentCounts        `json:"students,omitempty"`
	NoEntry   int                  `json:"noEntry,omitempty"`
}

// CharacterViewOf renders a card. Only cards holding students report them.
func CharacterViewOf(c *engine.Character) CharacterView {
	v := CharacterView{Kind: c.Kind, Price: c.Price(), Increased: c.Increased, NoEntry: c.NoEntry}
	if c.Students.Total() > 0 {
		v.Students = CountsOf(c.Students)
	}
	return v
}

// Delta is the subset of match state changed by one accepted action.
// Absent fields are unchanged.
type Delta struct {
	Islands        []IslandView    `json:"islands,omitempty"`
	RemovedIslands []int           `json:"removedIslands,omitempty"`
	Players        []PlayerDelta   `json:"players,omitempty"`
	MotherNature   *int            `json:"motherNature,omitempty"`
	Clouds         []CloudView     `json:"clouds,omitempty"`
	CoinReserve    *int            `json:"coinReserve,omitempty"`
	BagSize        *int            `json:"bagSize,omitempty"`
	Characters     []CharacterView `json:"characters,omitempty"`
}

// Empty reports whether the delta carries nothing.
func (d *Delta) Empty() bool {
	return d == nil || len(d.Islands) == 0 && len(d.RemovedIslands) == 0 && len(d.Players) == 0 &&
		d.MotherNature == nil && len(d.Clouds) == 0 && d.CoinReserve == nil && d.BagSize == nil &&
		len(d.Characters) == 0
}

// RulesView is the fixed rule set of the match.
type RulesView struct {
	EntranceSize   int `json:"entranceSize"`
	StudentsToMove int `json:"studentsToMove"`
	CloudCapacity  int `json:"cloudCapacity"`
	TowersPerTeam  int `json:"towersPerTeam"`
}

// Snapshot is the full public state sent when a match starts.
type Snapshot struct {
	MatchID       string          `json:"matchId"`
	NumPlayers    int             `json:"numPlayers"`
	Expert        bool            `json:"expert"`
	Rules         RulesView       `json:"rules"`
	Characters    []CharacterView `json:"characters,omitempty"`
	Islands       []IslandView    `json:"islands"`
	Players       []PlayerView    `json:"players"`
	Clouds        []CloudView     `json:"clouds"`
	MotherNature  int             `json:"motherNature"`
	BagSize       int             `json:"bagSize"`
	CoinReserve   int             `json:"coinReserve"`
	Phase         engine.Phase    `json:"phase"`
	CurrentPlayer int             `json:"currentPlayer"`
	FirstPlayer   int             `json:"firstPlayer"`
	Round         int             `json:"round"`
}

// SnapshotOf renders the whole public state of g.
func SnapshotOf(matchID string, g *engine.GameState) *Snapshot {
	s := &Snapshot{
		MatchID:    matchID,
		NumPlayers: g.Rules.NumPlayers,
		Expert:     g.Rules.Expert,
		Rules: RulesView{
			EntranceSize:   g.Rules.EntranceSize,
			StudentsToMove: g.Rules.StudentsToMove,
			CloudCapacity:  g.Rules.CloudCapacity,
			TowersPerTeam:  g.Rules.TowersPerTeam,
		},
		Clouds:        CloudViews(g),
		MotherNature:  g.MotherNature,
		BagSize:       g.Bag.Total(),
		CoinReserve:   g.Reserve,
		Phase:         g.Phase,
		CurrentPlayer: g.CurrentPlayer(),
		FirstPlayer:   g.FirstPlayer,
		Round:         g.Round,
	}
	for i := range g.Characters {
		s.Characters = append(s.Characters, CharacterViewOf(&g.Characters[i]))
	}
	for _, id := range g.LiveIslands() {
		is, _ := g.Island(id)
		s.Islands = append(s.Islands, IslandViewOf(is))
	}
	for i := range g.Players {
		s.Players = append(s.Players, PlayerViewOf(&g.Players[i]))
	}
	return s
}
