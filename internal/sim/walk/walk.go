// Package walk is the biased random-walk model: a population of walkers on a
// toroidal multi-occupancy grid, each moving to a random Moore neighbor with
// its own fixed travel probability.
package walk

import (
	"fmt"
	"math"

	"github.com/Tobimaru/ABM-Mesa/internal/sim/grid"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/rng"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/sched"
)

type Config struct {
	Agents int
	Width  int
	Height int
	// Each walker is assigned TravelProbLow or TravelProbHigh with equal
	// chance at creation; the value is immutable afterwards.
	TravelProbLow  float64
	TravelProbHigh float64
	// Bounded instead of wrapping edges. The model defaults to toroidal.
	Bounded bool
	Seed    int64
}

func (c *Config) applyDefaults() {
	if c.Agents <= 0 {
		c.Agents = 50
	}
	if c.Width <= 0 {
		c.Width = 40
	}
	if c.Height <= 0 {
		c.Height = 40
	}
	if c.TravelProbLow == 0 && c.TravelProbHigh == 0 {
		c.TravelProbLow = 0.2
		c.TravelProbHigh = 0.8
	}
}

func (c Config) validate() error {
	for _, p := range []float64{c.TravelProbLow, c.TravelProbHigh} {
		if err := rng.ValidateProbability(p); err != nil {
			return fmt.Errorf("travel probability: %w", err)
		}
	}
	return nil
}

// Walker is the random-walk agent. Its only private state is the immutable
// travel probability drawn at creation.
type Walker struct {
	id         int
	model      *Model
	travelProb float64
}

func (w *Walker) AgentID() int        { return w.id }
func (w *Walker) TravelProb() float64 { return w.travelProb }

// Step draws Bernoulli(travelProb); on success the walker moves to one
// neighbor chosen uniformly from its current Moore neighborhood, otherwise it
// stays put. There is no terminal state.
func (w *Walker) Step() {
	if !w.model.src.Bernoulli(w.travelProb) {
		return
	}
	pos, ok := w.model.grid.PositionOf(w.id)
	if !ok {
		return
	}
	hood := w.model.grid.Neighborhood(pos, true, false)
	if len(hood) == 0 {
		return
	}
	next := hood[w.model.src.UniformInt(0, len(hood))]
	// The target comes from the neighborhood of the current cell, so the
	// move cannot fail.
	_ = w.model.grid.MoveAgent(w.id, next)
}

// Model owns the grid, the scheduler, and the walker population.
type Model struct {
	cfg     Config
	src     rng.Source
	grid    *grid.MultiGrid
	sched   *sched.RandomActivation
	walkers []*Walker
	tick    uint64
}

// New builds a model with its own seeded variate source.
func New(cfg Config) (*Model, error) {
	cfg.applyDefaults()
	return NewWithSource(cfg, rng.New(cfg.Seed))
}

// NewWithSource builds a model around an injected variate source, which tests
// use to force exact decision sequences.
func NewWithSource(cfg Config, src rng.Source) (*Model, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g, err := grid.New(cfg.Width, cfg.Height, !cfg.Bounded)
	if err != nil {
		return nil, err
	}
	m := &Model{
		cfg:   cfg,
		src:   src,
		grid:  g,
		sched: sched.NewRandomActivation(src),
	}

	// Walkers start inside a square sub-region of side ceil(sqrt(N)) centered
	// on the grid, so the population begins clustered rather than spread
	// uniformly. The heuristic is preserved from the source model as-is.
	side := int(math.Ceil(math.Sqrt(float64(cfg.Agents))))
	sideX, sideY := side, side
	if sideX > cfg.Width {
		sideX = cfg.Width
	}
	if sideY > cfg.Height {
		sideY = cfg.Height
	}
	x0 := (cfg.Width - sideX) / 2
	y0 := (cfg.Height - sideY) / 2

	for i := 0; i < cfg.Agents; i++ {
		prob := cfg.TravelProbLow
		if src.Bernoulli(0.5) {
			prob = cfg.TravelProbHigh
		}
		w := &Walker{id: i, model: m, travelProb: prob}
		pos := grid.Pos{
			X: x0 + src.UniformInt(0, sideX),
			Y: y0 + src.UniformInt(0, sideY),
		}
		if err := m.grid.PlaceAgent(w.id, pos); err != nil {
			return nil, fmt.Errorf("place walker %d: %w", w.id, err)
		}
		if err := m.sched.Add(w); err != nil {
			return nil, fmt.Errorf("register walker %d: %w", w.id, err)
		}
		m.walkers = append(m.walkers, w)
	}
	return m, nil
}

// Step advances the model one tick: all walkers activate in a fresh random
// order. The walk model has no post-activation aggregate phase.
func (m *Model) Step() {
	m.sched.Step()
	m.tick++
}

func (m *Model) Tick() uint64          { return m.tick }
func (m *Model) Grid() *grid.MultiGrid { return m.grid }
func (m *Model) AgentCount() int       { return len(m.walkers) }
