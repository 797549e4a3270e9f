// Package grid implements the 2-D multi-occupancy lattice agents live on.
// A MultiGrid is either toroidal (coordinates wrap at every edge) or bounded
// (out-of-range targets are rejected). Cells hold sets of agent ids; a cell
// never excludes co-location.
package grid

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrOutOfBounds reports a placement or move target outside a bounded
	// grid. Toroidal grids wrap instead and never return it.
	ErrOutOfBounds = errors.New("position outside grid bounds")
	// ErrAlreadyPlaced reports a second PlaceAgent call for the same agent.
	// Re-placement is not a move; agents are placed exactly once.
	ErrAlreadyPlaced = errors.New("agent already placed")
	// ErrNotPlaced reports a move for an agent that was never placed.
	ErrNotPlaced = errors.New("agent not placed")
)

// Pos is a cell coordinate, 0 <= X < W and 0 <= Y < H once normalized.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// MultiGrid maps cells to occupant sets and agents to their single recorded
// position. The two views are kept bidirectionally consistent by every
// mutation.
type MultiGrid struct {
	width  int
	height int
	torus  bool

	cells []map[int]struct{} // indexed y*width+x, allocated lazily
	pos   map[int]Pos
}

func New(width, height int, torus bool) (*MultiGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	return &MultiGrid{
		width:  width,
		height: height,
		torus:  torus,
		cells:  make([]map[int]struct{}, width*height),
		pos:    make(map[int]Pos),
	}, nil
}

func (g *MultiGrid) Width() int  { return g.width }
func (g *MultiGrid) Height() int { return g.height }
func (g *MultiGrid) Torus() bool { return g.torus }

// AgentCount returns the number of placed agents.
func (g *MultiGrid) AgentCount() int { return len(g.pos) }

// Normalize wraps p onto the grid for toroidal grids and reports whether the
// result is a valid cell. Bounded grids leave p unchanged.
func (g *MultiGrid) Normalize(p Pos) (Pos, bool) {
	if g.torus {
		p.X = mod(p.X, g.width)
		p.Y = mod(p.Y, g.height)
		return p, true
	}
	return p, p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// PlaceAgent records the agent at p. Each agent is placed exactly once.
func (g *MultiGrid) PlaceAgent(id int, p Pos) error {
	if _, ok := g.pos[id]; ok {
		return fmt.Errorf("%w: agent %d", ErrAlreadyPlaced, id)
	}
	p, ok := g.Normalize(p)
	if !ok {
		return fmt.Errorf("%w: (%d,%d) on %dx%d grid", ErrOutOfBounds, p.X, p.Y, g.width, g.height)
	}
	g.addToCell(id, p)
	g.pos[id] = p
	return nil
}

// MoveAgent relocates the agent to p. The target is validated before any
// state changes, so a failed move leaves the grid untouched and a successful
// one is atomic from the caller's perspective.
func (g *MultiGrid) MoveAgent(id int, p Pos) error {
	cur, ok := g.pos[id]
	if !ok {
		return fmt.Errorf("%w: agent %d", ErrNotPlaced, id)
	}
	p, ok = g.Normalize(p)
	if !ok {
		return fmt.Errorf("%w: (%d,%d) on %dx%d grid", ErrOutOfBounds, p.X, p.Y, g.width, g.height)
	}
	if p == cur {
		return nil
	}
	delete(g.cells[g.index(cur)], id)
	g.addToCell(id, p)
	g.pos[id] = p
	return nil
}

// PositionOf returns the recorded position of an agent.
func (g *MultiGrid) PositionOf(id int) (Pos, bool) {
	p, ok := g.pos[id]
	return p, ok
}

// Occupants returns the ids in the cell at p, sorted ascending so snapshot
// reads are stable. Out-of-range cells on bounded grids are empty.
func (g *MultiGrid) Occupants(p Pos) []int {
	p, ok := g.Normalize(p)
	if !ok {
		return nil
	}
	cell := g.cells[g.index(p)]
	if len(cell) == 0 {
		return nil
	}
	ids := make([]int, 0, len(cell))
	for id := range cell {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Neighborhood returns the cells adjacent to p: the 8 Moore neighbors, or the
// 4 von Neumann neighbors when moore is false. Toroidal grids wrap; bounded
// grids omit out-of-range neighbors, so edge and corner cells return fewer.
// Enumeration order is fixed (row-major over the 3x3 window) and duplicates
// from wrap-around on tiny grids are removed, so indexing the result with a
// uniform draw is reproducible.
func (g *MultiGrid) Neighborhood(p Pos, moore, includeCenter bool) []Pos {
	out := make([]Pos, 0, 9)
	seen := make(map[Pos]struct{}, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				if !includeCenter {
					continue
				}
			} else if !moore && dx != 0 && dy != 0 {
				continue
			}
			n, ok := g.Normalize(Pos{X: p.X + dx, Y: p.Y + dy})
			if !ok {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

func (g *MultiGrid) addToCell(id int, p Pos) {
	i := g.index(p)
	if g.cells[i] == nil {
		g.cells[i] = make(map[int]struct{})
	}
	g.cells[i][id] = struct{}{}
}

func (g *MultiGrid) index(p Pos) int { return p.Y*g.width + p.X }

func mod(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
