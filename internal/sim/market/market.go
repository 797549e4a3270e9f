// Package market is the stock-predictor model: every tick each agent pays a
// fixed unit price into a pool and guesses the binary market outcome; the
// pool is split equally among the correct guessers. A tick with no correct
// guess pays out nothing, and the undistributed pool is not carried forward.
package market

import (
	"fmt"

	"github.com/Tobimaru/ABM-Mesa/internal/sim/rng"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/sched"
)

type Config struct {
	Agents    int
	UnitPrice float64
	Seed      int64
}

func (c *Config) applyDefaults() {
	if c.Agents <= 0 {
		c.Agents = 100
	}
	if c.UnitPrice == 0 {
		c.UnitPrice = 1.0
	}
}

func (c Config) validate() error {
	if c.UnitPrice <= 0 {
		return fmt.Errorf("unit price must be positive, got %v", c.UnitPrice)
	}
	return nil
}

// Predictor guesses the market outcome each tick. Guesses carry no memory
// across ticks; the agent never conditions on past outcomes or earnings.
type Predictor struct {
	id        int
	model     *Model
	earnings  float64
	lastGuess int
}

func (p *Predictor) AgentID() int      { return p.id }
func (p *Predictor) Earnings() float64 { return p.earnings }
func (p *Predictor) LastGuess() int    { return p.lastGuess }

// Step records a fresh fair-coin guess and pays the participation cost.
// The cost is paid regardless of the eventual outcome.
func (p *Predictor) Step() {
	p.lastGuess = 0
	if p.model.src.Bernoulli(0.5) {
		p.lastGuess = 1
	}
	p.earnings -= p.model.cfg.UnitPrice
}

// Model owns the scheduler, the predictor population, and the shared pool
// state updated in the post-activation phase of each tick.
type Model struct {
	cfg        Config
	src        rng.Source
	sched      *sched.RandomActivation
	predictors []*Predictor

	pool    float64
	outcome int
	tick    uint64
}

// New builds a model with its own seeded variate source.
func New(cfg Config) (*Model, error) {
	cfg.applyDefaults()
	return NewWithSource(cfg, rng.New(cfg.Seed))
}

// NewWithSource builds a model around an injected variate source.
func NewWithSource(cfg Config, src rng.Source) (*Model, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := &Model{
		cfg:   cfg,
		src:   src,
		sched: sched.NewRandomActivation(src),
	}
	for i := 0; i < cfg.Agents; i++ {
		p := &Predictor{id: i, model: m}
		if err := m.sched.Add(p); err != nil {
			return nil, fmt.Errorf("register predictor %d: %w", i, err)
		}
		m.predictors = append(m.predictors, p)
	}
	return m, nil
}

// Step advances one tick: recompute the pool, draw a fresh market outcome,
// activate all agents, then run the payout pass. The outcome draw precedes
// activation but agents never read it, so guesses stay independent of it.
func (m *Model) Step() {
	m.pool = float64(len(m.predictors)) * m.cfg.UnitPrice
	m.outcome = 0
	if m.src.Bernoulli(0.5) {
		m.outcome = 1
	}

	m.sched.Step()

	correct := 0
	for _, p := range m.predictors {
		if p.lastGuess == m.outcome {
			correct++
		}
	}
	// Zero correct guessers: skip the payout entirely. The pool is neither
	// redistributed nor banked for later ticks.
	if correct > 0 {
		share := m.pool / float64(correct)
		for _, p := range m.predictors {
			if p.lastGuess == m.outcome {
				p.earnings += share
			}
		}
	}
	m.tick++
}

func (m *Model) Tick() uint64    { return m.tick }
func (m *Model) Pool() float64   { return m.pool }
func (m *Model) Outcome() int    { return m.outcome }
func (m *Model) AgentCount() int { return len(m.predictors) }
