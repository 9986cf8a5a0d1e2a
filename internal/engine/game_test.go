package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/buckshot-backend/internal/random"
)

func tokenCount(g *Game) int {
	n := g.deck.Len()
	for _, p := range g.joined {
		n += len(p.Items)
	}
	return n
}

// randomCommand picks a plausible command for the current player. It is free
// to produce commands the engine will reject.
func randomCommand(g *Game, cur *Player, pick random.Source) Command {
	others := make([]*Player, 0, len(g.joined))
	for _, p := range g.living() {
		if p != cur {
			others = append(others, p)
		}
	}

	switch roll := pick.Intn(100); {
	case roll < 3:
		p := g.joined[pick.Intn(len(g.joined))]
		return Command{Type: CmdLeave, Player: p.Name}
	case roll < 8:
		for _, p := range g.joined {
			if !p.Connected {
				return Command{Type: CmdJoin, Player: p.Name}
			}
		}
	case roll < 45 && len(cur.Items) > 0:
		req := randomRequest(cur.Items[pick.Intn(len(cur.Items))], others, pick)
		if req.Item == ItemPickpocket && req.Target != "" {
			victim, _ := g.Player(req.Target)
			if len(victim.Items) > 0 {
				steal := randomRequest(victim.Items[pick.Intn(len(victim.Items))], others, pick)
				req.Steal = &steal
			}
		}
		return Command{Type: CmdUseItem, Player: cur.Name, Item: req}
	}

	target := cur.Name
	if len(others) > 0 && pick.Intn(3) > 0 {
		target = others[pick.Intn(len(others))].Name
	}
	return Command{Type: CmdShoot, Player: cur.Name, Target: target}
}

func randomRequest(it ItemType, others []*Player, pick random.Source) ItemRequest {
	req := ItemRequest{Item: it, Shell: ShellBlank, Count: 1 + pick.Intn(3)}
	if pick.Intn(2) == 0 {
		req.Shell = ShellLive
	}
	if len(others) > 0 {
		req.Target = others[pick.Intn(len(others))].Name
	}
	return req
}

func checkInvariants(t *testing.T, g *Game, tokens int) {
	t.Helper()
	s := g.Settings()

	require.Equal(t, tokens, tokenCount(g), "item tokens created or lost")
	for _, p := range g.joined {
		require.LessOrEqual(t, len(p.Items), s.MaxItemsHeld, "%s holds too many items", p.Name)
		require.GreaterOrEqual(t, p.Lives, 0)
		if !s.AllowLifeOverflow {
			require.LessOrEqual(t, p.Lives, s.MaxLives)
		}
		if !p.Alive() {
			require.Empty(t, p.Items, "%s is out but holds items", p.Name)
		}
	}

	alive := g.living()
	switch g.Phase() {
	case PhasePlaying:
		require.GreaterOrEqual(t, len(alive), 2)
		require.Positive(t, g.chamber.Len())
		cur, err := g.Current()
		require.NoError(t, err)
		require.True(t, cur.Competing(), "current player %s cannot compete", cur.Name)
		require.True(t, cur.Connected, "current player %s is disconnected", cur.Name)
	case PhaseEnded:
		require.LessOrEqual(t, len(alive), 1)
		if len(alive) == 1 {
			require.Equal(t, alive[0].Name, g.Winner())
		}
	}
}

func TestRandomPlayKeepsInvariants(t *testing.T) {
	names := []string{"alice", "bob", "carol", "dave", "erin"}

	for seed := int64(1); seed <= 25; seed++ {
		for _, loot := range []bool{false, true} {
			t.Run(fmt.Sprintf("seed=%d/loot=%t", seed, loot), func(t *testing.T) {
				s := DefaultSettings()
				s.MaxPlayers = len(names)
				s.LootOnElimination = loot

				g := NewGame("prop", s, random.New(seed), nil)
				for _, n := range names {
					_, err := g.Apply(Command{Type: CmdJoin, Player: n})
					require.NoError(t, err)
				}
				_, err := g.Apply(Command{Type: CmdStartGame, Player: names[0]})
				require.NoError(t, err)

				tokens := tokenCount(g)
				require.GreaterOrEqual(t, tokens, len(names)*s.MaxItemsHeld)
				pick := random.New(seed * 7919)

				for step := 0; step < 500 && g.Phase() == PhasePlaying; step++ {
					cur, err := g.Current()
					require.NoError(t, err)

					cmd := randomCommand(g, cur, pick)
					out, err := g.Apply(cmd)
					require.False(t, errors.Is(err, ErrInvariant), "step %d %+v: %v", step, cmd, err)

					for _, evt := range EventsOf(out.Events, EvtRoundStarted) {
						dealt := 0
						for _, items := range evt.Dealt {
							dealt += len(items)
						}
						assert.LessOrEqual(t, dealt, s.ItemsPerRound*len(names))
						assert.GreaterOrEqual(t, evt.Live, 1)
						assert.GreaterOrEqual(t, evt.Blank, 1)
					}
					checkInvariants(t, g, tokens)
				}
			})
		}
	}
}
