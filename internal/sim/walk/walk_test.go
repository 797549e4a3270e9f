package walk

import (
	"math"
	"testing"

	"github.com/Tobimaru/ABM-Mesa/internal/sim/grid"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/rng/rngtest"
)

func TestNew_RejectsBadTravelProbability(t *testing.T) {
	_, err := New(Config{Agents: 5, TravelProbLow: 0.2, TravelProbHigh: 1.5})
	if err == nil {
		t.Fatalf("accepted travel probability 1.5")
	}
}

func TestNew_InitialClusterRegion(t *testing.T) {
	cfg := Config{Agents: 30, Width: 20, Height: 20, TravelProbLow: 0.1, TravelProbHigh: 0.9, Seed: 5}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	side := int(math.Ceil(math.Sqrt(30))) // 6
	x0 := (20 - side) / 2
	y0 := (20 - side) / 2
	for _, a := range m.Snapshot().Agents {
		if a.X < x0 || a.X >= x0+side || a.Y < y0 || a.Y >= y0+side {
			t.Fatalf("walker %d starts at (%d,%d), outside the centered %dx%d region", a.ID, a.X, a.Y, side, side)
		}
	}
}

func TestNew_TwoFixedSubpopulations(t *testing.T) {
	m, err := New(Config{Agents: 200, TravelProbLow: 0.25, TravelProbHigh: 0.75, Seed: 11})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	low, high := 0, 0
	for _, a := range m.Snapshot().Agents {
		switch a.TravelProb {
		case 0.25:
			low++
		case 0.75:
			high++
		default:
			t.Fatalf("walker %d has travel probability %v, not one of the two fixed values", a.ID, a.TravelProb)
		}
	}
	if low == 0 || high == 0 {
		t.Fatalf("subpopulation empty: low=%d high=%d", low, high)
	}
}

// A single always-moving walker at (0,0) with the variate source forced to
// pick the (1,1) neighbor must end up exactly there after one step.
func TestStep_ForcedMoveToDiagonalNeighbor(t *testing.T) {
	// Construction draws: subpopulation choice, then x and y offsets.
	src := &rngtest.Script{
		Bern: []bool{true}, // creation: pick TravelProbHigh = 1.0
		Ints: []int{0, 0},  // creation: offset inside the 1x1 cluster region
	}
	m, err := NewWithSource(Config{
		Agents:         1,
		Width:          10,
		Height:         10,
		TravelProbLow:  1.0,
		TravelProbHigh: 1.0,
	}, src)
	if err != nil {
		t.Fatalf("NewWithSource: %v", err)
	}
	if err := m.Grid().MoveAgent(0, grid.Pos{X: 0, Y: 0}); err != nil {
		t.Fatalf("move to origin: %v", err)
	}

	hood := m.Grid().Neighborhood(grid.Pos{X: 0, Y: 0}, true, false)
	target := -1
	for i, p := range hood {
		if p == (grid.Pos{X: 1, Y: 1}) {
			target = i
		}
	}
	if target < 0 {
		t.Fatalf("(1,1) not in toroidal neighborhood of (0,0): %v", hood)
	}

	// Step draws: Perm (identity fallback), travel Bernoulli, neighbor index.
	src.Bern = []bool{true}
	src.Ints = []int{target}
	m.Step()

	pos, _ := m.Grid().PositionOf(0)
	if pos != (grid.Pos{X: 1, Y: 1}) {
		t.Fatalf("walker at (%d,%d) after forced step, want (1,1)", pos.X, pos.Y)
	}
}

func TestStep_StationaryWhenTravelFails(t *testing.T) {
	src := &rngtest.Script{
		Bern: []bool{false}, // creation: TravelProbLow
		Ints: []int{0, 0},
	}
	m, err := NewWithSource(Config{Agents: 1, Width: 10, Height: 10, TravelProbLow: 0.0, TravelProbHigh: 0.5}, src)
	if err != nil {
		t.Fatalf("NewWithSource: %v", err)
	}
	before, _ := m.Grid().PositionOf(0)

	src.Bern = []bool{false} // travel draw fails
	m.Step()

	after, _ := m.Grid().PositionOf(0)
	if before != after {
		t.Fatalf("walker moved from %+v to %+v on a failed travel draw", before, after)
	}
}

func TestDeterminism_SameSeedSameDigests(t *testing.T) {
	cfg := Config{Agents: 40, Width: 30, Height: 30, TravelProbLow: 0.2, TravelProbHigh: 0.8, Seed: 1337}
	m1, err := New(cfg)
	if err != nil {
		t.Fatalf("model 1: %v", err)
	}
	m2, err := New(cfg)
	if err != nil {
		t.Fatalf("model 2: %v", err)
	}
	for tick := 0; tick < 50; tick++ {
		m1.Step()
		m2.Step()
		if d1, d2 := m1.Digest(), m2.Digest(); d1 != d2 {
			t.Fatalf("digest mismatch at tick %d: %s vs %s", tick, d1, d2)
		}
	}
}

func TestSnapshot_IdempotentBetweenSteps(t *testing.T) {
	m, err := New(Config{Agents: 10, Seed: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Step()
	s1 := m.Snapshot()
	s2 := m.Snapshot()
	if s1.Tick != s2.Tick || len(s1.Agents) != len(s2.Agents) {
		t.Fatalf("snapshot headers differ: %+v vs %+v", s1, s2)
	}
	for i := range s1.Agents {
		if s1.Agents[i] != s2.Agents[i] {
			t.Fatalf("agent row %d differs between reads: %+v vs %+v", i, s1.Agents[i], s2.Agents[i])
		}
	}
}

func TestStep_GridStaysConsistent(t *testing.T) {
	m, err := New(Config{Agents: 25, Width: 12, Height: 12, Seed: 9})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 30; i++ {
		m.Step()
	}
	for _, a := range m.Snapshot().Agents {
		occ := m.Grid().Occupants(grid.Pos{X: a.X, Y: a.Y})
		found := false
		for _, id := range occ {
			if id == a.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("walker %d records (%d,%d) but is not in that cell's occupant set", a.ID, a.X, a.Y)
		}
	}
}
