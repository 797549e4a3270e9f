// abmrun drives a configured simulation run: build the model, step it for
// the configured number of ticks, and record snapshots to the step log and
// the run index between steps. The engine itself stays a pure library; this
// binary is the orchestration collaborator.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Tobimaru/ABM-Mesa/internal/persistence/indexdb"
	persistlog "github.com/Tobimaru/ABM-Mesa/internal/persistence/log"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/config"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/market"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/walk"
)

// simModel is the slice of the model surface the driver needs; both model
// variants satisfy it.
type simModel interface {
	Step()
	Tick() uint64
	Digest() string
	AgentCount() int
}

func main() {
	var (
		configPath = flag.String("config", "./configs/models.yaml", "run catalog path")
		runSpecID  = flag.String("run", "", "run spec id (default: catalog default_run)")
		steps      = flag.Int("steps", 0, "override step count (0 keeps the spec's)")
		seed       = flag.Int64("seed", 0, "override seed (0 keeps the spec's)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
		logEvery   = flag.Int("log_every", 1, "write a step record every N ticks")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[abmrun] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadCatalog(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	specID := *runSpecID
	if specID == "" {
		specID = cfg.DefaultRun
	}
	spec, ok := cfg.Run(specID)
	if !ok {
		logger.Fatalf("run spec %q not found in %s", specID, *configPath)
	}
	if *steps > 0 {
		spec.Steps = *steps
	}
	if *seed != 0 {
		spec.Seed = *seed
	}
	if *logEvery < 1 {
		*logEvery = 1
	}

	m, snapshotStep, err := buildModel(spec)
	if err != nil {
		logger.Fatalf("build model: %v", err)
	}

	runID := fmt.Sprintf("%s-%s", spec.ID, uuid.NewString()[:8])
	runDir := filepath.Join(*dataDir, "runs", runID)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open run index: %v", err)
		}
		defer idx.Close()

		params, _ := json.Marshal(spec)
		err = idx.RecordRunStart(indexdb.RunRow{
			RunID:    runID,
			ConfigID: spec.ID,
			Model:    spec.Model,
			Seed:     spec.Seed,
			Agents:   m.AgentCount(),
			Steps:    spec.Steps,
			Params:   string(params),
		})
		if err != nil {
			logger.Fatalf("record run start: %v", err)
		}
	}

	runLog := persistlog.NewRunLogger(runDir)
	defer runLog.Close()

	logger.Printf("run %s: model=%s agents=%d steps=%d seed=%d", runID, spec.Model, m.AgentCount(), spec.Steps, spec.Seed)

	start := time.Now()
	for i := 1; i <= spec.Steps; i++ {
		m.Step()
		if i%*logEvery != 0 && i != spec.Steps {
			continue
		}
		rec := persistlog.StepRecord{
			RunID:  runID,
			Model:  spec.Model,
			Step:   m.Tick(),
			Digest: m.Digest(),
		}
		snapshotStep(&rec)
		if err := runLog.WriteStep(rec); err != nil {
			logger.Fatalf("write step log: %v", err)
		}
		_ = idx.WriteStep(indexdb.StepRow{RunID: runID, Step: rec.Step, Digest: rec.Digest})
	}
	elapsed := time.Since(start)

	finalDigest := m.Digest()
	if err := idx.FinishRun(runID, finalDigest); err != nil {
		logger.Fatalf("finish run: %v", err)
	}

	logger.Printf("run %s: done in %s (%.0f ticks/s)", runID, elapsed.Round(time.Millisecond), float64(spec.Steps)/elapsed.Seconds())
	logger.Printf("run %s: final digest %s", runID, finalDigest)
	printSummary(logger, runID, m)
}

func loadCatalog(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// No catalog on disk: fall back to the built-in default runs.
		return config.Load("")
	}
	return config.Load(path)
}

// buildModel constructs the model for a run spec and returns a closure that
// fills the variant-specific snapshot into a step record.
func buildModel(spec config.RunSpec) (simModel, func(*persistlog.StepRecord), error) {
	switch spec.Model {
	case config.ModelWalk:
		m, err := walk.New(spec.WalkConfig())
		if err != nil {
			return nil, nil, err
		}
		return m, func(rec *persistlog.StepRecord) {
			snap := m.Snapshot()
			rec.Walk = &snap
		}, nil
	case config.ModelMarket:
		m, err := market.New(spec.MarketConfig())
		if err != nil {
			return nil, nil, err
		}
		return m, func(rec *persistlog.StepRecord) {
			snap := m.Snapshot()
			rec.Market = &snap
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown model %q", spec.Model)
	}
}

func printSummary(logger *log.Logger, runID string, m simModel) {
	switch model := m.(type) {
	case *market.Model:
		snap := model.Snapshot()
		logger.Printf("run %s: max earnings %.2f across %d agents", runID, snap.MaxEarnings, len(snap.Agents))
	case *walk.Model:
		snap := model.Snapshot()
		logger.Printf("run %s: %d walkers on %dx%d grid", runID, len(snap.Agents), snap.Width, snap.Height)
	}
}
