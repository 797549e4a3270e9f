// Package indexdb keeps a queryable sqlite catalog of completed and running
// simulations: one row per run plus per-step digest rows. It indexes run
// results for analysis; it never stores resumable simulation state.
package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan StepRow
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

// RunRow describes a run at start time. Params carries the JSON-encoded run
// spec for later inspection.
type RunRow struct {
	RunID     string
	ConfigID  string
	Model     string
	Seed      int64
	Agents    int
	Steps     int
	Params    string
	StartedAt string
}

// StepRow is one per-tick aggregate row.
type StepRow struct {
	RunID  string
	Step   uint64
	Digest string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Generous buffer: step rows arrive once per tick and must not stall
		// the run loop.
		ch: make(chan StepRow, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			config_id TEXT NOT NULL,
			model TEXT NOT NULL,
			seed INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			params TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			final_digest TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model, started_at);`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (run_id, step)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordRunStart inserts the run row synchronously, so the run is visible in
// the index before its first step lands.
func (s *SQLiteIndex) RecordRunStart(r RunRow) error {
	if s == nil {
		return nil
	}
	if r.StartedAt == "" {
		r.StartedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, config_id, model, seed, agents, steps, params, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.ConfigID, r.Model, r.Seed, r.Agents, r.Steps, r.Params, r.StartedAt,
	)
	return err
}

// FinishRun stamps the run with its completion time and final digest after
// all pending step rows have drained.
func (s *SQLiteIndex) FinishRun(runID, finalDigest string) error {
	if s == nil {
		return nil
	}
	s.drain()
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, final_digest = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), finalDigest, runID,
	)
	return err
}

// WriteStep enqueues a step row. Rows are dropped rather than blocking the
// run loop if the writer falls behind; the JSONL step log remains the source
// of truth.
func (s *SQLiteIndex) WriteStep(row StepRow) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- row:
	default:
	}
	return nil
}

func (s *SQLiteIndex) loop() {
	for row := range s.ch {
		_, _ = s.db.Exec(
			`INSERT OR REPLACE INTO steps (run_id, step, digest) VALUES (?, ?, ?)`,
			row.RunID, row.Step, row.Digest,
		)
	}
}

// drain waits for already-enqueued step rows to be written. Used before
// finishing a run and by queries in tests.
func (s *SQLiteIndex) drain() {
	for {
		if len(s.ch) == 0 {
			// The writer may still be inside an Exec; a probe query on the
			// single connection serializes behind it.
			var one int
			_ = s.db.QueryRow(`SELECT 1`).Scan(&one)
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// GetRun returns the run row plus completion fields.
func (s *SQLiteIndex) GetRun(runID string) (RunRow, string, string, error) {
	var (
		r                       RunRow
		finishedAt, finalDigest sql.NullString
	)
	err := s.db.QueryRow(
		`SELECT run_id, config_id, model, seed, agents, steps, params, started_at, finished_at, final_digest
		 FROM runs WHERE run_id = ?`, runID,
	).Scan(&r.RunID, &r.ConfigID, &r.Model, &r.Seed, &r.Agents, &r.Steps, &r.Params, &r.StartedAt, &finishedAt, &finalDigest)
	if err != nil {
		return RunRow{}, "", "", err
	}
	return r, finishedAt.String, finalDigest.String, nil
}

// CountSteps returns the number of indexed step rows for a run.
func (s *SQLiteIndex) CountSteps(runID string) (int, error) {
	s.drain()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM steps WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
