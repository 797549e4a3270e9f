// Package config loads the yaml run catalog consumed by the driver: named
// run specs carrying the model kind, seed, step budget, and per-model
// parameters.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Tobimaru/ABM-Mesa/internal/sim/market"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/rng"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/walk"
)

const (
	ModelWalk   = "walk"
	ModelMarket = "market"
)

type Config struct {
	DefaultRun string    `yaml:"default_run"`
	Runs       []RunSpec `yaml:"runs"`
}

type RunSpec struct {
	ID     string `yaml:"id"`
	Model  string `yaml:"model"`
	Seed   int64  `yaml:"seed"`
	Steps  int    `yaml:"steps"`
	Agents int    `yaml:"agents"`

	// Random-walk parameters.
	Grid           GridSpec `yaml:"grid,omitempty"`
	TravelProbLow  float64  `yaml:"travel_prob_low,omitempty"`
	TravelProbHigh float64  `yaml:"travel_prob_high,omitempty"`

	// Stock-predictor parameters.
	UnitPrice float64 `yaml:"unit_price,omitempty"`
}

type GridSpec struct {
	Width   int  `yaml:"width"`
	Height  int  `yaml:"height"`
	Bounded bool `yaml:"bounded,omitempty"`
}

// Load reads the run catalog. A missing path yields the built-in defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("models.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("models.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultRun: "walk_demo",
		Runs: []RunSpec{
			{
				ID:             "walk_demo",
				Model:          ModelWalk,
				Seed:           1337,
				Steps:          100,
				Agents:         50,
				Grid:           GridSpec{Width: 40, Height: 40},
				TravelProbLow:  0.2,
				TravelProbHigh: 0.8,
			},
			{
				ID:        "market_demo",
				Model:     ModelMarket,
				Seed:      1337,
				Steps:     200,
				Agents:    100,
				UnitPrice: 1.0,
			},
		},
	}
}

func (c *Config) Normalize() {
	for i := range c.Runs {
		r := &c.Runs[i]
		r.ID = strings.TrimSpace(r.ID)
		r.Model = strings.ToLower(strings.TrimSpace(r.Model))
		if r.Steps <= 0 {
			r.Steps = 100
		}
	}
	if strings.TrimSpace(c.DefaultRun) == "" && len(c.Runs) > 0 {
		c.DefaultRun = c.Runs[0].ID
	}
}

func (c Config) Validate() error {
	if len(c.Runs) == 0 {
		return fmt.Errorf("no runs declared")
	}
	seen := map[string]struct{}{}
	for _, r := range c.Runs {
		if r.ID == "" {
			return fmt.Errorf("run with empty id")
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate run id: %s", r.ID)
		}
		seen[r.ID] = struct{}{}
		switch r.Model {
		case ModelWalk:
			for _, p := range []float64{r.TravelProbLow, r.TravelProbHigh} {
				if err := rng.ValidateProbability(p); err != nil {
					return fmt.Errorf("run %s: %w", r.ID, err)
				}
			}
			if r.Grid.Width < 0 || r.Grid.Height < 0 {
				return fmt.Errorf("run %s: negative grid dimensions", r.ID)
			}
		case ModelMarket:
			if r.UnitPrice < 0 {
				return fmt.Errorf("run %s: negative unit price", r.ID)
			}
		default:
			return fmt.Errorf("run %s: unknown model %q", r.ID, r.Model)
		}
		if r.Agents < 0 {
			return fmt.Errorf("run %s: negative agent count", r.ID)
		}
	}
	if _, ok := c.Run(c.DefaultRun); !ok {
		return fmt.Errorf("default run %q not declared", c.DefaultRun)
	}
	return nil
}

// Run looks up a run spec by id.
func (c Config) Run(id string) (RunSpec, bool) {
	for _, r := range c.Runs {
		if r.ID == id {
			return r, true
		}
	}
	return RunSpec{}, false
}

// WalkConfig translates the spec into the walk model's config.
func (r RunSpec) WalkConfig() walk.Config {
	return walk.Config{
		Agents:         r.Agents,
		Width:          r.Grid.Width,
		Height:         r.Grid.Height,
		TravelProbLow:  r.TravelProbLow,
		TravelProbHigh: r.TravelProbHigh,
		Bounded:        r.Grid.Bounded,
		Seed:           r.Seed,
	}
}

// MarketConfig translates the spec into the stock-predictor model's config.
func (r RunSpec) MarketConfig() market.Config {
	return market.Config{
		Agents:    r.Agents,
		UnitPrice: r.UnitPrice,
		Seed:      r.Seed,
	}
}
