package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seats(lives ...int) []*Player {
	names := []string{"a", "b", "c", "d", "e", "f"}
	out := make([]*Player, len(lives))
	for i, l := range lives {
		out[i] = &Player{Name: names[i], Lives: l}
	}
	return out
}

func TestTurnOrder_CurrentBeforeAdvance(t *testing.T) {
	to := NewTurnOrder()
	to.Reset(seats(3, 3))
	_, err := to.Current()
	require.ErrorIs(t, err, ErrTurnOrderUninitialized)
}

func TestTurnOrder_AdvanceSkipsEliminated(t *testing.T) {
	cases := []struct {
		name  string
		lives []int
	}{
		{name: "nobody out", lives: []int{3, 3, 3, 3}},
		{name: "first out", lives: []int{0, 3, 3, 3}},
		{name: "middle out", lives: []int{3, 0, -1, 3}},
		{name: "all but one", lives: []int{0, 0, 2, 0}},
		{name: "last out", lives: []int{1, 1, 1, 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			players := seats(tc.lives...)
			to := NewTurnOrder()
			to.Reset(players)

			alive := 0
			for _, p := range players {
				if p.Alive() {
					alive++
				}
			}

			// Each window of `alive` advances visits every living player once.
			for round := 0; round < 3; round++ {
				seen := map[string]int{}
				for range alive {
					require.NoError(t, to.Advance())
					cur, err := to.Current()
					require.NoError(t, err)
					assert.True(t, cur.Alive(), "landed on %s with %d lives", cur.Name, cur.Lives)
					seen[cur.Name]++
				}
				assert.Len(t, seen, alive)
				for name, n := range seen {
					assert.Equal(t, 1, n, "%s visited twice", name)
				}
			}
		})
	}
}

func TestTurnOrder_AdvanceWithNobodyAlive(t *testing.T) {
	to := NewTurnOrder()
	to.Reset(seats(0, -2))
	err := to.Advance()
	require.ErrorIs(t, err, ErrNoEligiblePlayers)
	require.ErrorIs(t, err, ErrInvariant)
}

func TestTurnOrder_AdvanceIgnoresSkipFlag(t *testing.T) {
	players := seats(3, 3, 3)
	players[1].Skipped = true
	to := NewTurnOrder()
	to.Reset(players)

	require.NoError(t, to.Advance())
	require.NoError(t, to.Advance())
	cur, err := to.Current()
	require.NoError(t, err)
	assert.Equal(t, "b", cur.Name)
	assert.True(t, cur.Skipped)
}

func TestTurnOrder_Reverse(t *testing.T) {
	to := NewTurnOrder()
	to.Reset(seats(3, 3, 3, 3))
	require.NoError(t, to.Advance()) // a

	to.Reverse()
	assert.True(t, to.Reversed())

	var got []string
	for range 4 {
		require.NoError(t, to.Advance())
		cur, _ := to.Current()
		got = append(got, cur.Name)
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, got)
}
