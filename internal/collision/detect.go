package collision

import (
	"math"

	"github.com/san-kum/ballpit/internal/arena"
	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/spatial"
)

// DefaultEpsilon is the squared distance below which two centres count as
// coincident.
const DefaultEpsilon = 1e-9

// fallbackNormal separates coincident centres.
var fallbackNormal = dynamo.V(1, 0)

// Contact is a confirmed overlap. Normal points from B towards A.
type Contact struct {
	A, B        arena.Handle
	Normal      dynamo.Vec2
	Penetration float64
	DistSq      float64
}

// Detector turns candidate pairs into contacts. It keeps its pair buffer
// between calls.
type Detector struct {
	Epsilon float64
	pairs   []spatial.Pair
}

func NewDetector(eps float64) *Detector {
	if !(eps > 0) {
		eps = DefaultEpsilon
	}
	return &Detector{Epsilon: eps}
}

// Detect appends every overlapping pair in the grid to dst. Order follows
// the grid's canonical (A.Index, B.Index) order.
func (d *Detector) Detect(grid *spatial.Grid, store *arena.Store, dst []Contact) []Contact {
	d.pairs = grid.Pairs(d.pairs[:0])
	for _, pair := range d.pairs {
		a, b := store.GetPairMut(pair.A, pair.B)
		if a == nil || b == nil {
			continue
		}
		if c, ok := Test(a, b, d.Epsilon); ok {
			c.A, c.B = pair.A, pair.B
			dst = append(dst, c)
		}
	}
	return dst
}

// Test is the exact circle-circle check. The returned contact has no
// handles set.
func Test(a, b *dynamo.Particle, eps float64) (Contact, bool) {
	delta := a.Position.Sub(b.Position)
	distSq := delta.LenSq()
	sum := a.Radius + b.Radius
	if distSq > sum*sum {
		return Contact{}, false
	}

	c := Contact{DistSq: distSq}
	if distSq <= eps {
		c.Normal = fallbackNormal
		c.Penetration = sum - math.Sqrt(distSq)
		return c, true
	}

	dist := math.Sqrt(distSq)
	c.Normal = delta.Scale(1 / dist)
	c.Penetration = sum - dist
	return c, true
}
