// Package sched activates agents once per tick. The only activation policy is
// random activation: a fresh permutation is drawn every step, so no agent
// holds a systematic first-mover advantage across ticks.
package sched

import (
	"errors"
	"fmt"

	"github.com/Tobimaru/ABM-Mesa/internal/sim/rng"
)

// ErrDuplicateAgent reports a second Add for an agent id already registered.
var ErrDuplicateAgent = errors.New("agent id already registered")

// Agent is one unit of autonomous behavior. Step runs a full activation and
// returns only when the agent is done mutating its own and shared state.
type Agent interface {
	AgentID() int
	Step()
}

// RandomActivation holds the registered agents and re-randomizes their
// activation order on every Step. Registration happens during model
// construction; there is no dynamic add or remove after setup.
type RandomActivation struct {
	src    rng.Source
	agents []Agent
	ids    map[int]struct{}
}

func NewRandomActivation(src rng.Source) *RandomActivation {
	return &RandomActivation{
		src: src,
		ids: make(map[int]struct{}),
	}
}

func (s *RandomActivation) Add(a Agent) error {
	id := a.AgentID()
	if _, ok := s.ids[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateAgent, id)
	}
	s.ids[id] = struct{}{}
	s.agents = append(s.agents, a)
	return nil
}

// Step draws a fresh permutation and activates every agent in that order,
// synchronously. Each activation completes before the next begins. An empty
// scheduler is a no-op, not an error.
func (s *RandomActivation) Step() {
	if len(s.agents) == 0 {
		return
	}
	for _, i := range s.src.Perm(len(s.agents)) {
		s.agents[i].Step()
	}
}

func (s *RandomActivation) Count() int { return len(s.agents) }

// Agents returns the registered agents in registration order, for snapshot
// enumeration. The returned slice is a copy.
func (s *RandomActivation) Agents() []Agent {
	return append([]Agent(nil), s.agents...)
}
