package engine

import "testing"

// TestSetupFlow verifies tower and deck selection order and uniqueness.
func TestSetupFlow(t *testing.T) {
	g := newTestGame(t, 3, false, 11)
	if g.Phase != PhaseSetupTower || g.CurrentPlayer() != 0 {
		t.Fatalf("Phase=%s current=%d, want setup_tower/0", g.Phase, g.CurrentPlayer())
	}
	if _, err := g.ChooseTower(1, White); err == nil {
		t.Fatal("out-of-turn tower choice accepted")
	}
	if _, err := g.ChooseTower(0, Grey); err != nil {
		t.Fatal(err)
	}
	_, err := g.ChooseTower(1, Grey)
	wantCode(t, err, CodeInvalidTower)
	if _, err := g.ChooseTower(1, White); err != nil {
		t.Fatal(err)
	}
	if _, err := g.ChooseTower(2, Black); err != nil {
		t.Fatal(err)
	}
	if g.Phase != PhaseSetupDeck {
		t.Fatalf("Phase = %s, want setup_deck", g.Phase)
	}
	for i := range g.Players {
		if !g.Players[i].Holder || g.Players[i].Board.Towers != 6 {
			t.Errorf("player %d holder=%v towers=%d", i, g.Players[i].Holder, g.Players[i].Board.Towers)
		}
	}
	if _, err := g.ChooseWizard(0, 3); err != nil {
		t.Fatal(err)
	}
	_, err = g.ChooseWizard(1, 3)
	wantCode(t, err, CodeInvalidDeck)
	g.ChooseWizard(1, 0)
	out, err := g.ChooseWizard(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Refilled || g.Phase != PhasePlanning {
		t.Fatalf("round did not start: refilled=%v phase=%s", out.Refilled, g.Phase)
	}
	if g.CurrentPlayer() != g.FirstPlayer {
		t.Errorf("first planner = %d, want %d", g.CurrentPlayer(), g.FirstPlayer)
	}
	for i, cl := range g.Clouds {
		if len(cl.Students) != 4 {
			t.Errorf("cloud %d has %d students, want 4", i, len(cl.Students))
		}
	}
}

// TestSetupTeams verifies four-player colors are shared in pairs.
func TestSetupTeams(t *testing.T) {
	g := setupGame(t, 4, false, 5)
	if g.Players[0].Color != White || g.Players[1].Color != White || g.Players[2].Color != Black || g.Players[3].Color != Black {
		t.Fatalf("unexpected colors")
	}
	if !g.Players[0].Holder || g.Players[1].Holder || !g.Players[2].Holder || g.Players[3].Holder {
		t.Fatalf("unexpected holders")
	}
	if g.Holder(1) != 0 || g.Holder(3) != 2 {
		t.Errorf("Holder(1)=%d Holder(3)=%d", g.Holder(1), g.Holder(3))
	}
	if g.Players[0].Board.Towers != 8 || g.Players[1].Board.Towers != 0 {
		t.Errorf("towers = %d/%d, want 8/0", g.Players[0].Board.Towers, g.Players[1].Board.Towers)
	}
}

// TestPlanningUniqueAssistants verifies a card already played this round is refused.
func TestPlanningUniqueAssistants(t *testing.T) {
	g := setupGame(t, 2, false, 9)
	first := g.CurrentPlayer()
	if _, err := g.PlayAssistant(first, 4); err != nil {
		t.Fatal(err)
	}
	second := g.CurrentPlayer()
	if second == first {
		t.Fatal("planning did not advance")
	}
	_, err := g.PlayAssistant(second, 4)
	wantCode(t, err, CodeInvalidAssistant)
	if _, err := g.PlayAssistant(second, 11); err == nil {
		t.Fatal("assistant 11 accepted")
	}
}

// TestPlanningDuplicateWhenForced verifies a duplicate is allowed when it is the only card left.
func TestPlanningDuplicateWhenForced(t *testing.T) {
	g := setupGame(t, 2, false, 9)
	first := g.CurrentPlayer()
	second := 1 - first
	for v := range g.Players[second].Hand {
		g.Players[second].Hand[v] = v == 6
	}
	g.PlayAssistant(first, 7)
	if _, err := g.PlayAssistant(second, 7); err != nil {
		t.Fatalf("forced duplicate refused: %v", err)
	}
}

// TestActionOrder verifies the action phase runs by ascending assistant value.
func TestActionOrder(t *testing.T) {
	g := setupGame(t, 3, false, 13)
	planners := append([]int(nil), g.Order...)
	planAll(t, g, 9, 2, 5)
	want := []int{planners[1], planners[2], planners[0]}
	for i, p := range want {
		if g.Order[i] != p {
			t.Fatalf("action order = %v, want %v", g.Order, want)
		}
	}
	if g.Phase != PhaseAction1 || g.CurrentPlayer() != want[0] {
		t.Fatalf("Phase=%s current=%d", g.Phase, g.CurrentPlayer())
	}
}

// TestActionOrderTieKeepsPlanningOrder verifies equal values keep planning order.
func TestActionOrderTieKeepsPlanningOrder(t *testing.T) {
	g := setupGame(t, 2, false, 13)
	planners := append([]int(nil), g.Order...)
	for v := range g.Players[planners[1]].Hand {
		g.Players[planners[1]].Hand[v] = v == 2
	}
	planAll(t, g, 3, 3)
	if g.Order[0] != planners[0] {
		t.Errorf("Order = %v, want planner %d first", g.Order, planners[0])
	}
}

// TestAction1RepeatsThenRejects verifies exactly numPlayers+1 placements per turn.
func TestAction1RepeatsThenRejects(t *testing.T) {
	g := setupGame(t, 2, false, 21)
	autoPlan(t, g)
	p := g.CurrentPlayer()
	for i := 0; i < 3; i++ {
		if g.Phase != PhaseAction1 {
			t.Fatalf("placement %d: phase %s", i, g.Phase)
		}
		if _, err := g.MoveStudent(p, firstStudent(g, p), ToDining, 0); err != nil {
			t.Fatalf("placement %d: %v", i, err)
		}
	}
	if g.Phase != PhaseAction2 {
		t.Fatalf("Phase = %s after 3 placements, want action_2", g.Phase)
	}
	_, err := g.MoveStudent(p, firstStudent(g, p), ToDining, 0)
	wantCode(t, err, CodeInvalidAction)
}

// TestMoveStudentValidation verifies slot, island and table checks.
func TestMoveStudentValidation(t *testing.T) {
	g := setupGame(t, 2, false, 21)
	autoPlan(t, g)
	p := g.CurrentPlayer()
	other := 1 - p

	_, err := g.MoveStudent(other, 0, ToDining, 0)
	wantCode(t, err, CodeInvalidAction)
	_, err = g.MoveStudent(p, 99, ToDining, 0)
	wantCode(t, err, CodeInvalidStudent)
	_, err = g.MoveStudent(p, 0, ToIsland, 42)
	wantCode(t, err, CodeInvalidIsland)

	c := g.Players[p].Board.Entrance[0]
	g.Players[p].Board.Dining[c] = TableCapacity
	_, err = g.MoveStudent(p, 0, ToDining, 0)
	wantCode(t, err, CodeTableFull)
	if g.MovesLeft() != 3 {
		t.Errorf("MovesLeft = %d after rejections, want 3", g.MovesLeft())
	}
}

// TestMoveStudentTakesProfessor verifies professor control follows dining rooms.
func TestMoveStudentTakesProfessor(t *testing.T) {
	g := setupGame(t, 2, false, 21)
	autoPlan(t, g)
	p := g.CurrentPlayer()
	c := g.Players[p].Board.Entrance[0]
	out, err := g.MoveStudent(p, 0, ToDining, 0)
	if err != nil {
		t.Fatal(err)
	}
	if g.ProfessorOwner(c) != p {
		t.Errorf("professor %s owner = %d, want %d", c, g.ProfessorOwner(c), p)
	}
	if !out.Players[p] {
		t.Error("outcome does not name the mover's board")
	}
}

// TestMotherNatureBudget verifies the assistant step budget.
func TestMotherNatureBudget(t *testing.T) {
	g := setupGame(t, 2, false, 17)
	planAll(t, g, 3, 8) // first actor may move 2 steps
	p := g.CurrentPlayer()
	finishAction1(t, g)

	_, err := g.MoveMotherNature(p, g.MotherNature)
	wantCode(t, err, CodeInvalidMotherNature)
	three := g.nextIsland(g.nextIsland(g.nextIsland(g.MotherNature)))
	_, err = g.MoveMotherNature(p, three)
	wantCode(t, err, CodeInvalidMotherNature)

	if got := len(g.ReachableIslands(p)); got != 2 {
		t.Errorf("ReachableIslands = %d, want 2", got)
	}
	two := g.nextIsland(g.nextIsland(g.MotherNature))
	out, err := g.MoveMotherNature(p, two)
	if err != nil {
		t.Fatal(err)
	}
	if g.MotherNature != two || !out.MotherNature || out.Influence == nil || out.Union == nil {
		t.Fatalf("mother nature at %d, outcome %+v", g.MotherNature, out)
	}
	if g.Phase != PhaseAction3 {
		t.Errorf("Phase = %s, want action_3", g.Phase)
	}
}

// TestChooseCloud verifies the cloud refills the entrance and ends the turn.
func TestChooseCloud(t *testing.T) {
	g := setupGame(t, 2, false, 17)
	autoPlan(t, g)
	p := g.CurrentPlayer()
	finishAction1(t, g)
	g.MoveMotherNature(p, g.nextIsland(g.MotherNature))

	g.Clouds[1].Students = nil
	_, err := g.ChooseCloud(p, 1)
	wantCode(t, err, CodeInvalidCloud)
	if _, err := g.ChooseCloud(p, 0); err != nil {
		t.Fatal(err)
	}
	if g.Players[p].Board.EntranceCount() != 7 {
		t.Errorf("entrance = %d, want 7", g.Players[p].Board.EntranceCount())
	}
	if len(g.Clouds[0].Students) != 0 {
		t.Error("cloud not emptied")
	}
	if g.CurrentPlayer() == p || g.Phase != PhaseAction1 {
		t.Errorf("turn did not pass: current=%d phase=%s", g.CurrentPlayer(), g.Phase)
	}
}

// TestRoundRollover verifies the next round starts with refilled clouds and
// the first actor planning first.
func TestRoundRollover(t *testing.T) {
	g := setupGame(t, 2, false, 19)
	planAll(t, g, 6, 2)
	firstActor := g.Order[0]
	playTurn(t, g)
	p := g.CurrentPlayer()
	finishAction1(t, g)
	g.MoveMotherNature(p, g.nextIsland(g.MotherNature))
	out, err := g.ChooseCloud(p, firstNonEmptyCloud(g))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Refilled || g.Phase != PhasePlanning || g.Round != 2 {
		t.Fatalf("refilled=%v phase=%s round=%d", out.Refilled, g.Phase, g.Round)
	}
	if g.CurrentPlayer() != firstActor {
		t.Errorf("first planner = %d, want %d", g.CurrentPlayer(), firstActor)
	}
	for i := range g.Players {
		if g.Players[i].Played != 0 {
			t.Errorf("player %d Played = %d after rollover", i, g.Players[i].Played)
		}
	}
}

func firstNonEmptyCloud(g *GameState) int {
	for i := range g.Clouds {
		if len(g.Clouds[i].Students) > 0 {
			return i
		}
	}
	return -1
}

// TestBagEmptySkipsAction3 verifies that when a refill empties the bag the
// next actor is routed from mother nature straight to the following turn,
// and the match ends with the round.
func TestBagEmptySkipsAction3(t *testing.T) {
	g := setupGame(t, 2, false, 23)
	autoPlan(t, g)
	playTurn(t, g)
	p := g.CurrentPlayer()
	finishAction1(t, g)
	g.MoveMotherNature(p, g.nextIsland(g.MotherNature))

	g.Bag = Counts{2, 2, 2, 0, 0} // exactly two clouds of three
	if _, err := g.ChooseCloud(p, firstNonEmptyCloud(g)); err != nil {
		t.Fatal(err)
	}
	if g.Bag.Total() != 0 || g.Action3Valid {
		t.Fatalf("bag=%d action3Valid=%v, want 0/false", g.Bag.Total(), g.Action3Valid)
	}
	for i, cl := range g.Clouds {
		if len(cl.Students) != 3 {
			t.Errorf("cloud %d has %d students, want 3", i, len(cl.Students))
		}
	}
	if !g.LastRound || g.EndReason != EndBag {
		t.Errorf("LastRound=%v reason=%s", g.LastRound, g.EndReason)
	}

	autoPlan(t, g)
	first := g.CurrentPlayer()
	finishAction1(t, g)
	if _, err := g.MoveMotherNature(first, g.nextIsland(g.MotherNature)); err != nil {
		t.Fatal(err)
	}
	if g.Phase != PhaseAction1 || g.CurrentPlayer() == first {
		t.Fatalf("after move: phase=%s current=%d, want action_1 for the next player", g.Phase, g.CurrentPlayer())
	}
	_, err := g.ChooseCloud(first, 0)
	wantCode(t, err, CodeInvalidAction)

	second := g.CurrentPlayer()
	finishAction1(t, g)
	out, err := g.MoveMotherNature(second, g.nextIsland(g.MotherNature))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Ended || !g.IsOver() {
		t.Fatalf("match not over after the last round")
	}
}

// TestAssistantsExhaustedEndsAtRoundEnd verifies the match ends with the
// round in which a deck ran out, not immediately.
func TestAssistantsExhaustedEndsAtRoundEnd(t *testing.T) {
	g := setupGame(t, 2, false, 29)
	for i := range g.Players {
		for v := range g.Players[i].Hand {
			g.Players[i].Hand[v] = v < 2
		}
	}
	planAll(t, g, 1, 2)
	if g.LastRound {
		t.Fatal("LastRound set before round end")
	}
	playTurn(t, g)
	if g.IsOver() {
		t.Fatal("match ended mid-round")
	}
	playTurn(t, g)
	if g.Phase != PhasePlanning || g.Round != 2 {
		t.Fatalf("phase=%s round=%d, want planning/2", g.Phase, g.Round)
	}
	planAll(t, g, 2, 1)
	playTurn(t, g)
	playTurn(t, g)
	if !g.IsOver() || g.EndReason != EndAssistants {
		t.Fatalf("over=%v reason=%s", g.IsOver(), g.EndReason)
	}
}

// TestDisconnectSkipsPlayer verifies a disconnected player is skipped.
func TestDisconnectSkipsPlayer(t *testing.T) {
	g := setupGame(t, 4, false, 31)
	planners := append([]int(nil), g.Order...)
	g.Disconnect(planners[1])
	if _, err := g.PlayAssistant(planners[0], 5); err != nil {
		t.Fatal(err)
	}
	if g.CurrentPlayer() != planners[2] {
		t.Fatalf("current = %d, want %d", g.CurrentPlayer(), planners[2])
	}
	planAll(t, g, 6, 7)
	if len(g.Order) != 3 {
		t.Fatalf("action order %v includes the disconnected player", g.Order)
	}
	if g.CurrentPlayer() != planners[0] {
		t.Fatalf("current = %d, want %d", g.CurrentPlayer(), planners[0])
	}

	// A disconnect of the actor passes the turn at once.
	out := g.Disconnect(planners[0])
	if out.Ended {
		t.Fatal("match ended with two players connected")
	}
	if g.CurrentPlayer() != planners[2] || g.Phase != PhaseAction1 {
		t.Fatalf("current=%d phase=%s", g.CurrentPlayer(), g.Phase)
	}
	if g.Players[planners[0]].Connected || !out.Players[planners[0]] {
		t.Error("disconnect not recorded in the outcome")
	}
}

// TestDisconnectEndsMatch verifies the last connected player wins.
func TestDisconnectEndsMatch(t *testing.T) {
	g := setupGame(t, 2, false, 37)
	autoPlan(t, g)
	actor := g.CurrentPlayer()
	out := g.Disconnect(1 - actor)
	if !out.Ended || !g.IsOver() {
		t.Fatal("match did not end")
	}
	if g.EndReason != EndDisconnection || g.Winner != actor {
		t.Errorf("reason=%s winner=%d, want disconnection/%d", g.EndReason, g.Winner, actor)
	}
	if g.CurrentPlayer() != NoPlayer {
		t.Errorf("CurrentPlayer = %d after end", g.CurrentPlayer())
	}
	if _, err := g.PlayAssistant(actor, 1); err == nil {
		t.Error("action accepted after the end")
	}
}

// TestDisconnectBeforeTowers verifies the remaining seat wins even when no
// tower colour has been chosen yet.
func TestDisconnectBeforeTowers(t *testing.T) {
	g := newTestGame(t, 2, false, 43)
	g.Disconnect(1)
	if !g.IsOver() || g.Winner != 0 {
		t.Errorf("over=%v winner=%d, want true/0", g.IsOver(), g.Winner)
	}
}

// TestDisconnectDuringSetup verifies missing choices are filled in.
func TestDisconnectDuringSetup(t *testing.T) {
	g := newTestGame(t, 3, false, 41)
	g.Disconnect(1)
	g.ChooseTower(0, White)
	if g.CurrentPlayer() != 2 {
		t.Fatalf("current = %d, want 2", g.CurrentPlayer())
	}
	if g.Players[1].Color != Black {
		t.Errorf("disconnected player got %s, want black", g.Players[1].Color)
	}
	g.ChooseTower(2, Grey)
	g.ChooseWizard(0, 0)
	g.ChooseWizard(2, 2)
	if g.Phase != PhasePlanning || g.Players[1].Wizard != 1 {
		t.Fatalf("phase=%s wizard=%d", g.Phase, g.Players[1].Wizard)
	}
	for _, p := range g.Order {
		if p == 1 {
			t.Fatal("disconnected player is planning")
		}
	}
}
