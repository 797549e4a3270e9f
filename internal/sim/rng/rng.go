// Package rng is the seedable random variate source shared by the scheduler,
// agents, and models. All randomness in a simulation flows through a single
// injected Source, so a fixed seed reproduces the full run.
package rng

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrInvalidProbability reports a probability argument outside [0,1].
var ErrInvalidProbability = errors.New("probability outside [0,1]")

// ValidateProbability rejects NaN and values outside [0,1].
func ValidateProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidProbability, p)
	}
	return nil
}

// Source supplies the variate draws the engine needs. Implementations are not
// safe for concurrent use; the engine is single-threaded by design.
type Source interface {
	// Bernoulli returns true with probability p. Panics for p outside [0,1];
	// user-supplied probabilities must be validated at construction.
	Bernoulli(p float64) bool
	// UniformInt returns an integer uniformly drawn from [low, high).
	// Panics when low >= high, matching the rand.Intn convention.
	UniformInt(low, high int) int
	Float64() float64
	// Perm returns a fresh random permutation of [0, n).
	Perm(n int) []int
}

// Rand is the standard Source, backed by a seeded math/rand generator.
type Rand struct {
	r *rand.Rand
}

func New(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

func (s *Rand) Bernoulli(p float64) bool {
	if err := ValidateProbability(p); err != nil {
		panic(err)
	}
	return s.r.Float64() < p
}

func (s *Rand) UniformInt(low, high int) int {
	if low >= high {
		panic(fmt.Sprintf("rng: empty interval [%d,%d)", low, high))
	}
	return low + s.r.Intn(high-low)
}

func (s *Rand) Float64() float64 { return s.r.Float64() }

func (s *Rand) Perm(n int) []int { return s.r.Perm(n) }
