package engine

import (
	"fmt"

	"github.com/DoyleJ11/buckshot-backend/internal/random"
)

// Chamber holds the rounds for the current round of play. The next round to
// fire is the tail of the slice.
type Chamber struct {
	rng      random.Source
	maxLive  int
	maxBlank int
	rounds   []Shell
	live     int
	blank    int
}

func NewChamber(rng random.Source, maxLive, maxBlank int) *Chamber {
	return &Chamber{rng: rng, maxLive: maxLive, maxBlank: maxBlank}
}

// Refresh reloads the chamber with between 1 and max rounds of each kind.
func (c *Chamber) Refresh() error {
	if c.maxLive < 1 || c.maxBlank < 1 {
		return fmt.Errorf("%w: chamber bounds live=%d blank=%d", ErrInvariant, c.maxLive, c.maxBlank)
	}

	c.live = random.Between(c.rng, 1, c.maxLive)
	c.blank = random.Between(c.rng, 1, c.maxBlank)

	c.rounds = c.rounds[:0]
	for range c.live {
		c.rounds = append(c.rounds, ShellLive)
	}
	for range c.blank {
		c.rounds = append(c.rounds, ShellBlank)
	}
	c.Shuffle()
	return nil
}

func (c *Chamber) Shuffle() {
	c.rng.Shuffle(len(c.rounds), func(i, j int) {
		c.rounds[i], c.rounds[j] = c.rounds[j], c.rounds[i]
	})
}

// Pop removes and returns the next round.
func (c *Chamber) Pop() (Shell, error) {
	n := len(c.rounds)
	if n == 0 {
		return "", ErrChamberEmpty
	}
	s := c.rounds[n-1]
	c.rounds = c.rounds[:n-1]
	return s, nil
}

func (c *Chamber) Peek() (Shell, error) {
	if len(c.rounds) == 0 {
		return "", ErrChamberEmpty
	}
	return c.rounds[len(c.rounds)-1], nil
}

// Add loads n extra rounds of kind s and reshuffles.
func (c *Chamber) Add(s Shell, n int) {
	for range n {
		c.rounds = append(c.rounds, s)
	}
	c.Shuffle()
}

// InvertNext flips the next round between live and blank.
func (c *Chamber) InvertNext() error {
	n := len(c.rounds)
	if n == 0 {
		return ErrChamberEmpty
	}
	if c.rounds[n-1] == ShellLive {
		c.rounds[n-1] = ShellBlank
	} else {
		c.rounds[n-1] = ShellLive
	}
	return nil
}

func (c *Chamber) Len() int { return len(c.rounds) }

// Loaded returns the counts drawn by the last Refresh.
func (c *Chamber) Loaded() (live, blank int) { return c.live, c.blank }

// Remaining counts what is left without revealing order.
func (c *Chamber) Remaining() (live, blank int) {
	for _, s := range c.rounds {
		if s == ShellLive {
			live++
		} else {
			blank++
		}
	}
	return live, blank
}
