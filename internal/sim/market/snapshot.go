package market

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// AgentView is the read-only per-predictor snapshot row.
type AgentView struct {
	ID       int     `json:"id"`
	Earnings float64 `json:"earnings"`
}

// Snapshot is the point-in-time view for external collaborators. MaxEarnings
// is derived at read time, not stored.
type Snapshot struct {
	Tick        uint64      `json:"tick"`
	Pool        float64     `json:"pool"`
	Outcome     int         `json:"outcome"`
	MaxEarnings float64     `json:"max_earnings"`
	Agents      []AgentView `json:"agents"`
}

// Snapshot enumerates predictors in id order. Repeated reads between steps
// yield identical results.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		Tick:    m.tick,
		Pool:    m.pool,
		Outcome: m.outcome,
		Agents:  make([]AgentView, 0, len(m.predictors)),
	}
	for i, p := range m.predictors {
		if i == 0 || p.earnings > s.MaxEarnings {
			s.MaxEarnings = p.earnings
		}
		s.Agents = append(s.Agents, AgentView{ID: p.id, Earnings: p.earnings})
	}
	return s
}

// Digest returns a sha256 hex digest over the canonical model state.
func (m *Model) Digest() string {
	h := sha256.New()
	tmp := make([]byte, 8)
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp, v)
		h.Write(tmp)
	}
	writeU64(m.tick)
	writeU64(math.Float64bits(m.pool))
	writeU64(uint64(m.outcome))
	for _, p := range m.predictors {
		writeU64(uint64(p.id))
		writeU64(math.Float64bits(p.earnings))
		writeU64(uint64(p.lastGuess))
	}
	return hex.EncodeToString(h.Sum(nil))
}
