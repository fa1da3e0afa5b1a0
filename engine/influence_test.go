package engine

import "testing"

// clearBoard empties every island, dining room and professor table.
func clearBoard(g *GameState) {
	for _, is := range g.Islands {
		if is != nil {
			is.Students = Counts{}
			is.Towers = 0
			is.Master = NoPlayer
			is.NoEntry = 0
		}
	}
	for i := range g.Players {
		g.Players[i].Board.Dining = Counts{}
		g.Players[i].Board.Professors = [NumCreatures]bool{}
	}
}

// TestComputeInfluenceTie verifies a tie at the maximum yields no owner and a
// strict maximum yields that player.
func TestComputeInfluenceTie(t *testing.T) {
	g := setupGame(t, 2, false, 1)
	clearBoard(g)
	g.Players[0].Board.Professors[Gnome] = true
	g.Players[1].Board.Professors[Frog] = true
	is := g.Islands[0]
	is.Students[Gnome], is.Students[Frog] = 2, 2

	if got := ComputeInfluence(g, 0); got != NoPlayer {
		t.Errorf("tie: owner = %d, want NoPlayer", got)
	}
	is.Students[Gnome] = 3
	if got := ComputeInfluence(g, 0); got != 0 {
		t.Errorf("strict max: owner = %d, want 0", got)
	}
	is.Master, is.Towers = 1, 1
	if got := ComputeInfluence(g, 0); got != NoPlayer {
		t.Errorf("towers tie: owner = %d, want NoPlayer", got)
	}
	is.Students = Counts{}
	is.Master, is.Towers = NoPlayer, 0
	if got := ComputeInfluence(g, 0); got != NoPlayer {
		t.Errorf("empty island: owner = %d, want NoPlayer", got)
	}
}

// TestComputeInfluenceProperty checks tie and strict-max behaviour over many
// random boards.
func TestComputeInfluenceProperty(t *testing.T) {
	g := setupGame(t, 3, false, 2)
	for n := 0; n < 500; n++ {
		clearBoard(g)
		for c := Creature(0); c < NumCreatures; c++ {
			if owner := g.randN(4) - 1; owner != NoPlayer {
				g.Players[owner].Board.Professors[c] = true
			}
			g.Islands[5].Students[c] = g.randN(4)
		}
		if m := g.randN(4) - 1; m != NoPlayer {
			g.Islands[5].Master, g.Islands[5].Towers = m, 1+g.randN(3)
		}
		scores := InfluenceScores(g, 5)
		best, count, who := -1, 0, NoPlayer
		for p, s := range scores {
			switch {
			case s > best:
				best, count, who = s, 1, p
			case s == best:
				count++
			}
		}
		got := ComputeInfluence(g, 5)
		if count >= 2 && got != NoPlayer {
			t.Fatalf("scores %v tie but owner = %d", scores, got)
		}
		if count == 1 && got != who {
			t.Fatalf("scores %v: owner = %d, want %d", scores, got, who)
		}
	}
}

// TestComputeInfluenceTeams verifies teammates add to their tower holder.
func TestComputeInfluenceTeams(t *testing.T) {
	g := setupGame(t, 4, false, 3)
	clearBoard(g)
	g.Players[1].Board.Professors[Gnome] = true
	g.Players[3].Board.Professors[Frog] = true
	g.Islands[2].Students[Gnome] = 2
	g.Islands[2].Students[Frog] = 1
	if got := ComputeInfluence(g, 2); got != 0 {
		t.Errorf("owner = %d, want holder 0", got)
	}
	g.Players[2].Board.Professors[Dragon] = true
	g.Islands[2].Students[Dragon] = 1
	if got := ComputeInfluence(g, 2); got != NoPlayer {
		t.Errorf("owner = %d, want NoPlayer on 2-2", got)
	}
}

// TestModifierFlags verifies centaur, mushroom merchant and knight adjustments.
func TestModifierFlags(t *testing.T) {
	g := setupGame(t, 2, false, 4)
	clearBoard(g)
	autoPlan(t, g)
	a := g.CurrentPlayer()
	b := 1 - a
	is := g.Islands[7]
	is.Master, is.Towers = b, 3
	g.Players[a].Board.Professors[Gnome] = true
	is.Students[Gnome] = 2

	if got := ComputeInfluence(g, 7); got != b {
		t.Fatalf("owner = %d, want %d", got, b)
	}
	g.turn.centaur = true
	if got := ComputeInfluence(g, 7); got != a {
		t.Errorf("centaur: owner = %d, want %d", got, a)
	}
	g.turn.centaur = false
	g.turn.knight = true
	if s := InfluenceScores(g, 7); s[a] != 4 || s[b] != 3 {
		t.Errorf("knight scores = %v", s)
	}
	g.turn.knight = false
	g.turn.mushroom = Gnome
	if s := InfluenceScores(g, 7); s[a] != 0 {
		t.Errorf("mushroom: score = %d, want 0", s[a])
	}
}

// TestUpdateProfessorControl verifies the professor comparison.
func TestUpdateProfessorControl(t *testing.T) {
	cases := []struct {
		name     string
		dining   [3]int
		previous int
		favored  int
		want     int
	}{
		{"nobody", [3]int{0, 0, 0}, NoPlayer, NoPlayer, NoPlayer},
		{"unique max", [3]int{1, 3, 2}, NoPlayer, NoPlayer, 1},
		{"tie keeps previous", [3]int{3, 3, 0}, 0, NoPlayer, 0},
		{"strictly more transfers", [3]int{3, 4, 0}, 0, NoPlayer, 1},
		{"overtaken by a tie is uncontrolled", [3]int{2, 3, 3}, 0, NoPlayer, NoPlayer},
		{"released at zero", [3]int{0, 0, 0}, 2, NoPlayer, NoPlayer},
		{"released at zero to a leader", [3]int{0, 1, 0}, 2, NoPlayer, 1},
		{"favored wins tie", [3]int{2, 2, 0}, 0, 1, 1},
		{"favored below max", [3]int{3, 2, 0}, 0, 1, 0},
	}
	g := setupGame(t, 3, false, 5)
	for _, tc := range cases {
		clearBoard(g)
		for p, n := range tc.dining {
			g.Players[p].Board.Dining[Fairy] = n
		}
		if got := UpdateProfessorControl(g, Fairy, tc.previous, tc.favored); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

// TestTowerTransfer verifies towers move between holders on a change of master.
func TestTowerTransfer(t *testing.T) {
	g := setupGame(t, 2, false, 6)
	clearBoard(g)
	is := g.Islands[4]
	is.Master, is.Towers = 1, 2
	g.Players[1].Board.Towers = 6
	g.Players[0].Board.Professors[Dragon] = true
	is.Students[Dragon] = 5

	tx := g.begin()
	tx.resolveIsland(4)
	out := tx.commit()
	if !out.Influence.Changed || out.Influence.Previous != 1 || out.Influence.New != 0 {
		t.Fatalf("influence outcome %+v", out.Influence)
	}
	if is.Master != 0 || is.Towers != 2 {
		t.Errorf("island master=%d towers=%d, want 0/2", is.Master, is.Towers)
	}
	if g.Players[0].Board.Towers != 6 || g.Players[1].Board.Towers != 8 {
		t.Errorf("tower areas = %d/%d, want 6/8", g.Players[0].Board.Towers, g.Players[1].Board.Towers)
	}
}

// TestTowerTransferFirstConquest verifies an untowered island takes one tower.
func TestTowerTransferFirstConquest(t *testing.T) {
	g := setupGame(t, 2, false, 6)
	clearBoard(g)
	g.Players[1].Board.Professors[Unicorn] = true
	g.Islands[9].Students[Unicorn] = 1

	tx := g.begin()
	tx.resolveIsland(9)
	tx.commit()
	if g.Islands[9].Master != 1 || g.Islands[9].Towers != 1 || g.Players[1].Board.Towers != 7 {
		t.Errorf("master=%d towers=%d area=%d", g.Islands[9].Master, g.Islands[9].Towers, g.Players[1].Board.Towers)
	}
}

// TestTowerTransferClamped verifies a short tower area places what it has,
// and an empty one cannot conquer.
func TestTowerTransferClamped(t *testing.T) {
	g := setupGame(t, 2, false, 6)
	clearBoard(g)
	is := g.Islands[4]
	is.Master, is.Towers = 1, 3
	g.Players[1].Board.Towers = 5
	g.Players[0].Board.Towers = 1
	g.Players[0].Board.Professors[Dragon] = true
	is.Students[Dragon] = 5

	tx := g.begin()
	tx.resolveIsland(4)
	tx.commit()
	if is.Master != 0 || is.Towers != 1 {
		t.Errorf("master=%d towers=%d, want 0/1", is.Master, is.Towers)
	}
	if g.Players[0].Board.Towers != 0 || g.Players[1].Board.Towers != 8 {
		t.Errorf("areas = %d/%d", g.Players[0].Board.Towers, g.Players[1].Board.Towers)
	}
	if !g.LastRound || g.EndReason != EndTowers {
		t.Errorf("LastRound=%v reason=%s, want towers", g.LastRound, g.EndReason)
	}

	other := g.Islands[8]
	other.Students[Dragon] = 2
	tx = g.begin()
	tx.resolveIsland(8)
	out := tx.commit()
	if out.Influence.Changed || other.Master != NoPlayer {
		t.Error("empty tower area conquered an island")
	}
}
