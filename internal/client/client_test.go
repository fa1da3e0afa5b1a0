package client

import (
	"fmt"
	"slices"
	"testing"

	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/game"
	"github.com/jason-s-yu/archipelago/internal/logging"
	"github.com/jason-s-yu/archipelago/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seatClient is one in-process client fed through the wire codec.
type seatClient struct {
	rec   *Reconciler
	auto  *AutoPlayer
	inbox []protocol.ServerMessage
}

func deliver(t *testing.T, c *seatClient, msg protocol.ServerMessage) {
	t.Helper()
	b, err := protocol.Encode(msg)
	require.NoError(t, err)
	decoded, err := protocol.DecodeServer(b)
	require.NoError(t, err)
	c.inbox = append(c.inbox, decoded)
}

// playInProcess runs a whole match between auto players against a real
// match controller, with every message going through the codec.
func playInProcess(t *testing.T, players int, expert bool, seed uint64) (*game.Match, []*seatClient) {
	t.Helper()
	nicks := make([]string, players)
	for i := range nicks {
		nicks[i] = fmt.Sprintf("bot%d", i)
	}
	m, err := game.NewMatch(game.Config{Nicknames: nicks, Expert: expert, Seed: seed}, logging.Discard())
	require.NoError(t, err)

	clients := make([]*seatClient, players)
	for i := range clients {
		clients[i] = &seatClient{rec: NewReconciler(), auto: NewAutoPlayer(seed+uint64(i), expert)}
		_, err := clients[i].rec.Handle(protocol.ServerMessage{Object: protocol.ObjJoined, Seat: protocol.Int(i)})
		require.NoError(t, err)
	}
	m.BroadcastFn = func(msg protocol.ServerMessage) {
		for _, c := range clients {
			deliver(t, c, msg)
		}
	}
	m.SendToPlayerFn = func(seat int, msg protocol.ServerMessage) { deliver(t, clients[seat], msg) }
	m.Start()

	for steps := 0; ; steps++ {
		require.Less(t, steps, 500000, "match did not finish")
		progressed := false
		for seat, c := range clients {
			if len(c.inbox) == 0 {
				continue
			}
			progressed = true
			msg := c.inbox[0]
			c.inbox = c.inbox[1:]
			d, err := c.rec.Handle(msg)
			require.NoError(t, err)
			if !d.Prompt.NeedsInput() {
				continue
			}
			out, err := c.auto.Decide(d, c.rec.Mirror)
			require.NoError(t, err)
			line, err := protocol.Encode(out)
			require.NoError(t, err)
			parsed, err := protocol.Decode(line)
			require.NoError(t, err, "auto player sent %s", line)
			c.rec.Sent(parsed)
			_ = m.HandleAction(seat, parsed)
		}
		if !progressed {
			break
		}
	}
	require.True(t, m.Ended(), "clients stalled before the end")
	return m, clients
}

func TestAutoPlayersFinishMatches(t *testing.T) {
	for _, tc := range []struct {
		players int
		expert  bool
	}{
		{2, false}, {3, false}, {4, false}, {2, true}, {3, true}, {4, true},
	} {
		t.Run(fmt.Sprintf("%dp_expert_%v", tc.players, tc.expert), func(t *testing.T) {
			for seed := uint64(1); seed <= 3; seed++ {
				m, clients := playInProcess(t, tc.players, tc.expert, seed)
				g := m.State()
				for seat, c := range clients {
					mirror := c.rec.Mirror
					require.NotNil(t, mirror.End, "seat %d saw no end", seat)
					assert.Equal(t, g.Winner, mirror.End.Winner)
					assert.Equal(t, PromptDone, DecideNextPrompt(mirror.Phase, mirror.MyTurn()))
				}
			}
		})
	}
}

// TestMirrorMatchesServer checks that snapshot plus deltas rebuild exactly
// the public state the server holds.
func TestMirrorMatchesServer(t *testing.T) {
	for _, players := range []int{2, 3, 4} {
		m, clients := playInProcess(t, players, true, 11)
		g := m.State()
		for seat, c := range clients {
			mirror := c.rec.Mirror
			assert.Equal(t, g.MotherNature, mirror.MotherNature, "seat %d", seat)
			assert.Equal(t, g.LiveIslands(), mirror.IslandIDs(), "seat %d", seat)
			for _, id := range g.LiveIslands() {
				is, _ := g.Island(id)
				assert.Equal(t, protocol.IslandViewOf(is), mirror.Islands[id], "seat %d island %d", seat, id)
			}
			for i := range g.Players {
				assert.Equal(t, protocol.PlayerViewOf(&g.Players[i]), mirror.Players[i], "seat %d player %d", seat, i)
			}
			for v := 1; v <= engine.DeckSize; v++ {
				assert.Equal(t, g.Players[seat].HasAssistant(v), slices.Contains(mirror.Hand, v), "seat %d card %d", seat, v)
			}
		}
	}
}

func TestDecideNextPrompt(t *testing.T) {
	cases := []struct {
		phase engine.Phase
		mine  bool
		want  Prompt
	}{
		{engine.PhaseSetupTower, true, PromptTowerColor},
		{engine.PhaseSetupDeck, true, PromptDeck},
		{engine.PhasePlanning, true, PromptAssistant},
		{engine.PhaseAction1, true, PromptMoveStudent},
		{engine.PhaseAction2, true, PromptMotherNature},
		{engine.PhaseAction3, true, PromptCloud},
		{engine.PhaseCharacter, true, PromptCharacterData},
		{engine.PhaseAction1, false, PromptWait},
		{engine.PhaseEnd, true, PromptDone},
		{engine.PhaseEnd, false, PromptDone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DecideNextPrompt(tc.phase, tc.mine), "%s mine=%v", tc.phase, tc.mine)
	}
	assert.False(t, PromptWait.NeedsInput())
	assert.True(t, PromptCharacterData.NeedsInput())
	assert.False(t, PromptDone.NeedsInput())
}
