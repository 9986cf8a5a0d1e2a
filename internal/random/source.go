// Package random provides the process-wide random source used by every lobby.
//
// A single Source is created at startup (from a configured seed, or from
// crypto/rand when none is given) and passed to each game. Tests construct their
// own Source with a fixed seed so chamber draws and coin flips are reproducible.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// Source is the randomness the game engine depends on.
type Source interface {
	// Intn returns a uniform int in [0, n). It panics if n <= 0.
	Intn(n int) int
	// Shuffle performs a Fisher-Yates shuffle over n elements.
	Shuffle(n int, swap func(i, j int))
}

// Locked is a seeded Source safe for use from many lobby goroutines.
type Locked struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Locked source seeded with seed.
func New(seed int64) *Locked {
	return &Locked{rng: rand.New(rand.NewSource(seed))}
}

func (l *Locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

func (l *Locked) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := n - 1; i > 0; i-- {
		j := l.rng.Intn(i + 1)
		swap(i, j)
	}
}

// Between returns a uniform int in [lo, hi]. lo > hi is treated as lo.
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
