// Package log writes per-run step records as zstd-compressed JSONL, the
// stream external analysis and visualization collaborators replay.
package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Tobimaru/ABM-Mesa/internal/sim/market"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/walk"
)

// StepRecord is one JSONL line: the snapshot of a model after one tick.
// Exactly one of Walk or Market is set, matching the run's model kind.
type StepRecord struct {
	RunID  string           `json:"run_id"`
	Model  string           `json:"model"`
	Step   uint64           `json:"step"`
	Digest string           `json:"digest,omitempty"`
	Walk   *walk.Snapshot   `json:"walk,omitempty"`
	Market *market.Snapshot `json:"market,omitempty"`
}

// JSONLZstdWriter appends JSON lines to a single zstd-compressed file. The
// file is created lazily on first write.
type JSONLZstdWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewJSONLZstdWriter(path string) *JSONLZstdWriter {
	return &JSONLZstdWriter{path: path}
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		if err := w.openLocked(); err != nil {
			return err
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	return nil
}

// RunLogger writes one StepRecord per tick into the run's directory.
type RunLogger struct{ w *JSONLZstdWriter }

func NewRunLogger(runDir string) *RunLogger {
	return &RunLogger{w: NewJSONLZstdWriter(filepath.Join(runDir, "steps.jsonl.zst"))}
}

func (l *RunLogger) WriteStep(v StepRecord) error { return l.w.Write(v) }
func (l *RunLogger) Close() error                 { return l.w.Close() }
