package log_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	persistlog "github.com/Tobimaru/ABM-Mesa/internal/persistence/log"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/market"
	"github.com/Tobimaru/ABM-Mesa/internal/sim/walk"
)

func TestStepRecordSchema_ValidatesBothModels(t *testing.T) {
	schemaPath := filepath.Join("..", "..", "..", "schemas", "step_record.schema.json")
	schema, err := jsonschema.Compile(schemaPath)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	validate := func(rec persistlog.StepRecord) {
		t.Helper()
		b, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	wm, err := walk.New(walk.Config{Agents: 5, Width: 8, Height: 8, Seed: 2})
	if err != nil {
		t.Fatalf("walk model: %v", err)
	}
	wm.Step()
	wsnap := wm.Snapshot()
	validate(persistlog.StepRecord{
		RunID:  "walk-1",
		Model:  "walk",
		Step:   wsnap.Tick,
		Digest: wm.Digest(),
		Walk:   &wsnap,
	})

	mm, err := market.New(market.Config{Agents: 5, UnitPrice: 1.0, Seed: 2})
	if err != nil {
		t.Fatalf("market model: %v", err)
	}
	mm.Step()
	msnap := mm.Snapshot()
	validate(persistlog.StepRecord{
		RunID:  "market-1",
		Model:  "market",
		Step:   msnap.Tick,
		Digest: mm.Digest(),
		Market: &msnap,
	})
}

func TestStepRecordSchema_RejectsRecordWithoutSnapshot(t *testing.T) {
	schemaPath := filepath.Join("..", "..", "..", "schemas", "step_record.schema.json")
	schema, err := jsonschema.Compile(schemaPath)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	var v any
	_ = json.Unmarshal([]byte(`{"run_id":"r","model":"walk","step":1}`), &v)
	if err := schema.Validate(v); err == nil {
		t.Fatalf("schema accepted a record with no snapshot payload")
	}
}
