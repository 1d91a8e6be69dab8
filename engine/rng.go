package engine

import (
	"math/rand"
	"sync"
)

// Dice is the randomness the engine draws on. *RNG is the production
// implementation; tests substitute scripted values.
type Dice interface {
	// Roll returns an integer in [1, sides].
	Roll(sides int) int
	// Percent returns a float in [0, 100).
	Percent() float64
	// Chance reports true with probability p (0..1).
	Chance(p float64) bool
	// Pick returns an index in [0, n).
	Pick(n int) int
	// Between returns an integer in [min, max].
	Between(min, max int) int
}

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every call. An RNG is safe for concurrent use,
// so one seeded source can serve every session of a server.
type RNG struct {
	mu   sync.Mutex
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Roll returns a random integer in [1, sides].
func (r *RNG) Roll(sides int) int {
	if sides < 1 {
		return 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos++
	return r.src.Intn(sides) + 1
}

// Percent returns a uniform float in [0, 100).
func (r *RNG) Percent() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos++
	return r.src.Float64() * 100
}

// Chance reports true with probability p.
func (r *RNG) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos++
	return r.src.Float64() < p
}

// Pick returns a uniform index in [0, n). n must be positive.
func (r *RNG) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos++
	return r.src.Intn(n)
}

// Between returns a uniform integer in [min, max]. A fixed amount
// (min == max) does not consume randomness.
func (r *RNG) Between(min, max int) int {
	if max <= min {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos++
	return min + r.src.Intn(max-min+1)
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of RNG calls made since creation.
func (r *RNG) Position() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}
