package market

import (
	"math"
	"testing"

	"github.com/Tobimaru/ABM-Mesa/internal/sim/rng/rngtest"
)

func TestNew_RejectsNonPositiveUnitPrice(t *testing.T) {
	if _, err := New(Config{Agents: 4, UnitPrice: -1}); err == nil {
		t.Fatalf("accepted negative unit price")
	}
}

// Forced scenario: 4 agents, unit price 1.0, outcome 1, guesses [1,1,0,0].
// The two correct agents split the 4.0 pool for +2.0 each; everyone pays 1.0.
func TestStep_ForcedPayoutSplit(t *testing.T) {
	src := &rngtest.Script{
		// Draw order within Step: outcome, then one guess per agent in
		// identity permutation order.
		Bern: []bool{true, true, true, false, false},
	}
	m, err := NewWithSource(Config{Agents: 4, UnitPrice: 1.0}, src)
	if err != nil {
		t.Fatalf("NewWithSource: %v", err)
	}

	m.Step()

	if m.Pool() != 4.0 {
		t.Fatalf("pool = %v, want 4.0", m.Pool())
	}
	if m.Outcome() != 1 {
		t.Fatalf("outcome = %d, want 1", m.Outcome())
	}
	want := []float64{1.0, 1.0, -1.0, -1.0}
	for i, p := range m.predictors {
		if p.Earnings() != want[i] {
			t.Fatalf("agent %d earnings = %v, want %v", i, p.Earnings(), want[i])
		}
	}
}

func TestStep_ZeroCorrectGuessersNoPayout(t *testing.T) {
	src := &rngtest.Script{
		// Outcome 1, all four guesses 0.
		Bern: []bool{true, false, false, false, false},
	}
	m, err := NewWithSource(Config{Agents: 4, UnitPrice: 1.0}, src)
	if err != nil {
		t.Fatalf("NewWithSource: %v", err)
	}

	m.Step()

	for i, p := range m.predictors {
		if p.Earnings() != -1.0 {
			t.Fatalf("agent %d earnings = %v, want -1.0 (investment only)", i, p.Earnings())
		}
	}

	// The undistributed pool is not banked: the next tick recomputes it.
	src.Bern = []bool{true, true, true, true, true}
	m.Step()
	if m.Pool() != 4.0 {
		t.Fatalf("pool = %v after skipped payout, want 4.0 (no carry-over)", m.Pool())
	}
	for i, p := range m.predictors {
		if p.Earnings() != -1.0 { // -2 invested, +1 share of 4/4
			t.Fatalf("agent %d earnings = %v, want -1.0", i, p.Earnings())
		}
	}
}

// Whenever at least one agent is correct, the distributed increase sums to
// exactly the pool.
func TestStep_PoolConservation(t *testing.T) {
	m, err := New(Config{Agents: 31, UnitPrice: 0.5, Seed: 21})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	const invested = 31 * 0.5

	prev := make([]float64, 31)
	for tick := 0; tick < 100; tick++ {
		m.Step()

		correct := 0
		distributed := 0.0
		for i, p := range m.predictors {
			delta := p.Earnings() - prev[i]
			prev[i] = p.Earnings()
			if p.LastGuess() == m.Outcome() {
				correct++
				distributed += delta + 0.5 // add back the investment
			} else if delta != -0.5 {
				t.Fatalf("tick %d: wrong guesser %d delta = %v, want -0.5", tick, i, delta)
			}
		}
		if correct == 0 {
			if distributed != 0 {
				t.Fatalf("tick %d: payout with zero correct guessers", tick)
			}
			continue
		}
		if math.Abs(distributed-invested) > 1e-9 {
			t.Fatalf("tick %d: distributed %v of pool %v", tick, distributed, invested)
		}
	}
}

func TestDeterminism_SameSeedSameDigests(t *testing.T) {
	cfg := Config{Agents: 50, UnitPrice: 1.0, Seed: 77}
	m1, err := New(cfg)
	if err != nil {
		t.Fatalf("model 1: %v", err)
	}
	m2, err := New(cfg)
	if err != nil {
		t.Fatalf("model 2: %v", err)
	}
	for tick := 0; tick < 60; tick++ {
		m1.Step()
		m2.Step()
		if d1, d2 := m1.Digest(), m2.Digest(); d1 != d2 {
			t.Fatalf("digest mismatch at tick %d: %s vs %s", tick, d1, d2)
		}
	}
}

func TestSnapshot_MaxEarningsDerived(t *testing.T) {
	m, err := New(Config{Agents: 20, UnitPrice: 1.0, Seed: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 25; i++ {
		m.Step()
	}
	s := m.Snapshot()
	max := s.Agents[0].Earnings
	for _, a := range s.Agents[1:] {
		if a.Earnings > max {
			max = a.Earnings
		}
	}
	if s.MaxEarnings != max {
		t.Fatalf("snapshot max earnings %v, recomputed %v", s.MaxEarnings, max)
	}

	again := m.Snapshot()
	if again.MaxEarnings != s.MaxEarnings || again.Tick != s.Tick {
		t.Fatalf("snapshot reads differ between steps")
	}
}
