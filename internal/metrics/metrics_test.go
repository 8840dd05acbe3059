package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/ballpit/internal/dynamo"
)

func feed(m dynamo.Metric, stats ...dynamo.FrameStats) {
	for _, s := range stats {
		m.Observe(s)
	}
}

func TestEnergy(t *testing.T) {
	m := NewEnergy()
	if m.Value() != 0 {
		t.Errorf("empty value = %v, want 0", m.Value())
	}

	feed(m, dynamo.FrameStats{KineticEnergy: 10}, dynamo.FrameStats{KineticEnergy: 30})
	if math.Abs(m.Value()-20) > 1e-12 {
		t.Errorf("expected mean 20, got %v", m.Value())
	}
	if len(m.Samples()) != 2 {
		t.Errorf("expected 2 samples, got %d", len(m.Samples()))
	}

	m.Reset()
	if m.Value() != 0 || len(m.Samples()) != 0 {
		t.Error("reset did not clear samples")
	}
}

func TestPenetration(t *testing.T) {
	m := NewPenetration()
	feed(m,
		dynamo.FrameStats{MaxPenetration: 0.5},
		dynamo.FrameStats{MaxPenetration: 3},
		dynamo.FrameStats{MaxPenetration: 1},
	)
	if m.Value() != 3 {
		t.Errorf("expected 3, got %v", m.Value())
	}
}

func TestWallHits(t *testing.T) {
	m := NewWallHits()
	feed(m, dynamo.FrameStats{WallHits: 4}, dynamo.FrameStats{WallHits: 0})
	if m.Value() != 2 {
		t.Errorf("expected 2, got %v", m.Value())
	}
}

func TestSettled(t *testing.T) {
	m := NewSettled(1)
	feed(m,
		dynamo.FrameStats{KineticEnergy: 5},
		dynamo.FrameStats{KineticEnergy: 0.5},
		dynamo.FrameStats{KineticEnergy: 0.1},
		dynamo.FrameStats{KineticEnergy: 0},
	)
	if m.Value() != 0.75 {
		t.Errorf("expected 0.75, got %v", m.Value())
	}
}

func TestStandardNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Standard() {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 metrics, got %d", len(seen))
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2, 5})

	if s.N != 5 || s.Min != 1 || s.Max != 5 {
		t.Errorf("unexpected bounds %+v", s)
	}
	if s.Mean != 3 {
		t.Errorf("mean = %v, want 3", s.Mean)
	}
	if math.Abs(s.StdDev-math.Sqrt(2.5)) > 1e-12 {
		t.Errorf("stddev = %v, want %v", s.StdDev, math.Sqrt(2.5))
	}
	if s.Median != 3 {
		t.Errorf("median = %v, want 3", s.Median)
	}
}

func TestSummarizeEdge(t *testing.T) {
	if s := Summarize(nil); s.N != 0 {
		t.Errorf("expected empty summary, got %+v", s)
	}
	if s := Summarize([]float64{7}); s.StdDev != 0 || s.Median != 7 {
		t.Errorf("single sample summary %+v", s)
	}
}
