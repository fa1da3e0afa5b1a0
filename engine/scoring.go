package engine

// TeamProfessors counts the professors controlled by holder and its teammates.
func TeamProfessors(g *GameState, holder int) int {
	n := 0
	for _, p := range g.Teammates(holder) {
		for _, has := range g.Players[p].Board.Professors {
			if has {
				n++
			}
		}
	}
	return n
}

// ComputeWinner returns the winning tower holder, or NoPlayer for a draw.
// Only holders with a connected team member compete. Fewest towers left in
// the tower area wins; equal counts go to the team with more professors; a
// remaining tie is a draw.
func ComputeWinner(g *GameState) int {
	winner := NoPlayer
	bestTowers, bestProfs := 0, 0
	tied := false
	for _, h := range g.Holders() {
		live := false
		for _, p := range g.Teammates(h) {
			live = live || g.Players[p].Connected
		}
		if !live {
			continue
		}
		towers, profs := g.Players[h].Board.Towers, TeamProfessors(g, h)
		switch {
		case winner == NoPlayer && !tied,
			towers < bestTowers,
			towers == bestTowers && profs > bestProfs:
			winner, bestTowers, bestProfs, tied = h, towers, profs, false
		case towers == bestTowers && profs == bestProfs:
			winner, tied = NoPlayer, true
		}
	}
	return winner
}
