package walk

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// AgentView is the read-only per-walker snapshot row.
type AgentView struct {
	ID         int     `json:"id"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	TravelProb float64 `json:"travel_prob"`
}

// Snapshot is the point-in-time view consumed by visualization and
// orchestration collaborators. Reading it never mutates the model, so
// repeated reads between steps yield identical results.
type Snapshot struct {
	Tick   uint64      `json:"tick"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Agents []AgentView `json:"agents"`
}

// Snapshot enumerates walkers in id order.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		Tick:   m.tick,
		Width:  m.cfg.Width,
		Height: m.cfg.Height,
		Agents: make([]AgentView, 0, len(m.walkers)),
	}
	for _, w := range m.walkers {
		pos, _ := m.grid.PositionOf(w.id)
		s.Agents = append(s.Agents, AgentView{
			ID:         w.id,
			X:          pos.X,
			Y:          pos.Y,
			TravelProb: w.travelProb,
		})
	}
	return s
}

// Digest returns a sha256 hex digest over the canonical model state. Two
// runs with the same seed and config produce the same digest sequence.
func (m *Model) Digest() string {
	h := sha256.New()
	tmp := make([]byte, 8)
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp, v)
		h.Write(tmp)
	}
	writeU64(m.tick)
	writeU64(uint64(m.cfg.Width))
	writeU64(uint64(m.cfg.Height))
	for _, w := range m.walkers {
		pos, _ := m.grid.PositionOf(w.id)
		writeU64(uint64(w.id))
		writeU64(uint64(int64(pos.X)))
		writeU64(uint64(int64(pos.Y)))
		writeU64(math.Float64bits(w.travelProb))
	}
	return hex.EncodeToString(h.Sum(nil))
}
