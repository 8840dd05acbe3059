// Package spatial provides the uniform-grid broad phase.
package spatial

import (
	"cmp"
	"iter"
	"math"
	"slices"

	"github.com/san-kum/ballpit/internal/arena"
	"github.com/san-kum/ballpit/internal/dynamo"
)

// Cell is a grid coordinate: (floor(x/size), floor(y/size)).
type Cell struct {
	X, Y int
}

// Pair is an unordered candidate pair stored with A.Index() < B.Index().
type Pair struct {
	A, B arena.Handle
}

type entry struct {
	h      arena.Handle
	cell   Cell
	radius float64
}

// neighbourhood is the 3x3 block around a cell, own cell included.
var neighbourhood = [9][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {0, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Grid buckets particles by cell. It holds handles only and is rebuilt from
// scratch every substep.
//
// With cell size 2*maxRadius any overlapping pair sits in the same or an
// adjacent cell. A particle whose diameter exceeds the cell size can miss
// collisions; Oversized reports how many such entries the last rebuild saw.
type Grid struct {
	cellSize    float64
	invCellSize float64
	cells       map[Cell][]int // cell -> positions in entries
	entries     []entry
	byHandle    map[arena.Handle]int
	oversized   int
}

// NewGrid creates a grid. Pass 2*maxRadius as the cell size.
func NewGrid(cellSize float64) *Grid {
	if !(cellSize > 0) {
		cellSize = 1
	}
	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		cells:       make(map[Cell][]int),
		byHandle:    make(map[arena.Handle]int),
	}
}

func (g *Grid) CellSize() float64 { return g.cellSize }

// CellOf returns the cell containing pos.
func (g *Grid) CellOf(pos dynamo.Vec2) Cell {
	return Cell{
		X: int(math.Floor(pos.X * g.invCellSize)),
		Y: int(math.Floor(pos.Y * g.invCellSize)),
	}
}

// Clear empties every cell, keeping bucket capacity for the next rebuild.
func (g *Grid) Clear() {
	for c, bucket := range g.cells {
		if len(bucket) == 0 {
			delete(g.cells, c)
			continue
		}
		g.cells[c] = bucket[:0]
	}
	g.entries = g.entries[:0]
	clear(g.byHandle)
	g.oversized = 0
}

// Rebuild replaces the grid contents with the given particles.
func (g *Grid) Rebuild(particles iter.Seq2[arena.Handle, *dynamo.Particle]) {
	g.Clear()
	for h, p := range particles {
		g.insert(h, p.Position, p.Radius)
	}
}

func (g *Grid) insert(h arena.Handle, pos dynamo.Vec2, radius float64) {
	c := g.CellOf(pos)
	i := len(g.entries)
	g.entries = append(g.entries, entry{h: h, cell: c, radius: radius})
	g.cells[c] = append(g.cells[c], i)
	g.byHandle[h] = i
	if 2*radius > g.cellSize {
		g.oversized++
	}
}

// Len returns the number of indexed particles.
func (g *Grid) Len() int { return len(g.entries) }

// Oversized returns how many indexed particles are wider than a cell.
func (g *Grid) Oversized() int { return g.oversized }

// CandidatesFor returns every other particle in h's cell and its eight
// neighbours, in ascending slot order. Unknown handles yield nil.
func (g *Grid) CandidatesFor(h arena.Handle) []arena.Handle {
	i, ok := g.byHandle[h]
	if !ok {
		return nil
	}
	c := g.entries[i].cell

	var out []arena.Handle
	for _, off := range neighbourhood {
		for _, j := range g.cells[Cell{X: c.X + off[0], Y: c.Y + off[1]}] {
			if j != i {
				out = append(out, g.entries[j].h)
			}
		}
	}
	slices.SortFunc(out, func(a, b arena.Handle) int {
		return cmp.Compare(a.Index(), b.Index())
	})
	return out
}

// Pairs appends every candidate pair to dst, each once, sorted by
// (A.Index, B.Index).
func (g *Grid) Pairs(dst []Pair) []Pair {
	start := len(dst)
	for i, e := range g.entries {
		for _, off := range neighbourhood {
			for _, j := range g.cells[Cell{X: e.cell.X + off[0], Y: e.cell.Y + off[1]}] {
				other := g.entries[j].h
				// Each pair is emitted only from its lower-index side.
				if j == i || !e.h.Less(other) {
					continue
				}
				dst = append(dst, Pair{A: e.h, B: other})
			}
		}
	}

	slices.SortFunc(dst[start:], func(p, q Pair) int {
		if c := cmp.Compare(p.A.Index(), q.A.Index()); c != 0 {
			return c
		}
		return cmp.Compare(p.B.Index(), q.B.Index())
	})
	return dst
}
