package mert

import "math/rand"

// RNG is a counted pseudo-random source. Every draw increments a counter
// that is persisted with the run state; restoring a run replays the
// recorded number of draws from the same seed, so a resumed run sees a
// bit-identical stream.
type RNG struct {
	seed  int64
	src   *rand.Rand
	draws uint64
}

// NewRNG returns a counted source seeded with seed.
func NewRNG(seed int64) *RNG {
	return &RNG{seed: seed, src: rand.New(rand.NewSource(seed))}
}

// RestoreRNG returns a source seeded with seed whose first draws values
// have already been consumed.
func RestoreRNG(seed int64, draws uint64) *RNG {
	r := NewRNG(seed)
	for i := uint64(0); i < draws; i++ {
		r.src.Float64()
	}
	r.draws = draws
	return r
}

// Float64 draws the next value in [0.0, 1.0).
func (r *RNG) Float64() float64 {
	r.draws++
	return r.src.Float64()
}

// Seed returns the seed the source was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Draws returns the number of values drawn so far.
func (r *RNG) Draws() uint64 { return r.draws }
