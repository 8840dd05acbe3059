package spatial

import (
	"math/rand"
	"testing"

	"github.com/san-kum/ballpit/internal/arena"
	"github.com/san-kum/ballpit/internal/dynamo"
)

func fill(positions []dynamo.Vec2, radius float64) (*arena.Store, []arena.Handle) {
	s := arena.NewStore(len(positions))
	hs := make([]arena.Handle, len(positions))
	for i, pos := range positions {
		hs[i] = s.Insert(dynamo.Particle{Position: pos, PrevPosition: pos, Radius: radius, Mass: 1})
	}
	return s, hs
}

func TestCellOf(t *testing.T) {
	g := NewGrid(20)

	tests := []struct {
		pos  dynamo.Vec2
		want Cell
	}{
		{dynamo.V(0, 0), Cell{0, 0}},
		{dynamo.V(19.9, 20), Cell{0, 1}},
		{dynamo.V(-0.1, 5), Cell{-1, 0}},
		{dynamo.V(-20, -20.5), Cell{-1, -2}},
	}
	for _, tt := range tests {
		if got := g.CellOf(tt.pos); got != tt.want {
			t.Errorf("CellOf(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestPairsMatchesBruteForce(t *testing.T) {
	const (
		n      = 400
		radius = 6.0
	)
	rng := rand.New(rand.NewSource(7))
	positions := make([]dynamo.Vec2, n)
	for i := range positions {
		positions[i] = dynamo.V(rng.Float64()*300-20, rng.Float64()*200-20)
	}
	s, hs := fill(positions, radius)

	g := NewGrid(2 * radius)
	g.Rebuild(s.All())
	pairs := g.Pairs(nil)

	got := make(map[Pair]bool, len(pairs))
	for _, p := range pairs {
		if got[p] {
			t.Fatalf("duplicate pair %v", p)
		}
		if p.A.Index() >= p.B.Index() {
			t.Fatalf("pair %v not canonical", p)
		}
		got[p] = true
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if positions[i].Sub(positions[j]).Len() <= 2*radius && !got[Pair{A: hs[i], B: hs[j]}] {
				t.Errorf("overlapping pair (%d,%d) missing from candidates", i, j)
			}
		}
	}
}

func TestPairsSorted(t *testing.T) {
	positions := []dynamo.Vec2{
		dynamo.V(50, 50), dynamo.V(1, 1), dynamo.V(52, 50), dynamo.V(3, 1), dynamo.V(51, 52),
	}
	s, _ := fill(positions, 2)

	g := NewGrid(4)
	g.Rebuild(s.All())
	pairs := g.Pairs(nil)

	for i := 1; i < len(pairs); i++ {
		a, b := pairs[i-1], pairs[i]
		if a.A.Index() > b.A.Index() || (a.A.Index() == b.A.Index() && a.B.Index() >= b.B.Index()) {
			t.Fatalf("pairs out of order at %d: %v then %v", i, a, b)
		}
	}
}

func TestCandidatesFor(t *testing.T) {
	positions := []dynamo.Vec2{
		dynamo.V(5, 5),   // cell (0,0)
		dynamo.V(15, 5),  // cell (1,0), neighbour
		dynamo.V(15, 15), // cell (1,1), neighbour
		dynamo.V(25, 5),  // cell (2,0), too far
	}
	s, hs := fill(positions, 5)

	g := NewGrid(10)
	g.Rebuild(s.All())

	got := g.CandidatesFor(hs[0])
	if len(got) != 2 || got[0] != hs[1] || got[1] != hs[2] {
		t.Errorf("CandidatesFor = %v, want [%v %v]", got, hs[1], hs[2])
	}
	if got := g.CandidatesFor(arena.Handle{}); got != nil {
		t.Errorf("unknown handle yielded %v", got)
	}
}

func TestRebuildReplacesContents(t *testing.T) {
	s, hs := fill([]dynamo.Vec2{dynamo.V(0, 0), dynamo.V(1, 0)}, 1)

	g := NewGrid(2)
	g.Rebuild(s.All())
	if n := len(g.Pairs(nil)); n != 1 {
		t.Fatalf("expected 1 pair, got %d", n)
	}

	s.GetMut(hs[1]).Position = dynamo.V(100, 100)
	g.Rebuild(s.All())
	if n := len(g.Pairs(nil)); n != 0 {
		t.Errorf("stale bucket kept %d pairs after rebuild", n)
	}
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}
}

func TestOversized(t *testing.T) {
	s := arena.NewStore(2)
	s.Insert(dynamo.Particle{Radius: 5, Mass: 1})
	s.Insert(dynamo.Particle{Position: dynamo.V(50, 0), Radius: 11, Mass: 1})

	g := NewGrid(20)
	g.Rebuild(s.All())

	if g.Oversized() != 1 {
		t.Errorf("Oversized() = %d, want 1", g.Oversized())
	}
}

func BenchmarkGridPairs(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	positions := make([]dynamo.Vec2, 2000)
	for i := range positions {
		positions[i] = dynamo.V(rng.Float64()*640, rng.Float64()*480)
	}
	s, _ := fill(positions, 5)
	g := NewGrid(10)
	var pairs []Pair

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Rebuild(s.All())
		pairs = g.Pairs(pairs[:0])
	}
}
