// Package rngtest provides a scripted rng.Source for driving agents and
// models through exact decision sequences in tests.
package rngtest

import "github.com/Tobimaru/ABM-Mesa/internal/sim/rng"

var _ rng.Source = (*Script)(nil)

// Script consumes queued draws in order. When a queue is exhausted the draw
// falls through to Fallback, or to a fixed default when Fallback is nil:
// Bernoulli false, UniformInt low, Float64 0, Perm identity.
type Script struct {
	Bern     []bool
	Ints     []int
	Floats   []float64
	Perms    [][]int
	Fallback rng.Source
}

func (s *Script) Bernoulli(p float64) bool {
	if err := rng.ValidateProbability(p); err != nil {
		panic(err)
	}
	if len(s.Bern) > 0 {
		v := s.Bern[0]
		s.Bern = s.Bern[1:]
		return v
	}
	if s.Fallback != nil {
		return s.Fallback.Bernoulli(p)
	}
	return false
}

func (s *Script) UniformInt(low, high int) int {
	if len(s.Ints) > 0 {
		v := s.Ints[0]
		s.Ints = s.Ints[1:]
		if v < low || v >= high {
			panic("rngtest: scripted int outside requested interval")
		}
		return v
	}
	if s.Fallback != nil {
		return s.Fallback.UniformInt(low, high)
	}
	return low
}

func (s *Script) Float64() float64 {
	if len(s.Floats) > 0 {
		v := s.Floats[0]
		s.Floats = s.Floats[1:]
		return v
	}
	if s.Fallback != nil {
		return s.Fallback.Float64()
	}
	return 0
}

func (s *Script) Perm(n int) []int {
	if len(s.Perms) > 0 {
		v := s.Perms[0]
		s.Perms = s.Perms[1:]
		if len(v) != n {
			panic("rngtest: scripted perm has wrong length")
		}
		return append([]int(nil), v...)
	}
	if s.Fallback != nil {
		return s.Fallback.Perm(n)
	}
	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}
	return identity
}
