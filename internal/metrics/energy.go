package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// Energy is the mean kinetic energy over all observed frames.
type Energy struct {
	name    string
	samples []float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s dynamo.FrameStats) {
	e.samples = append(e.samples, s.KineticEnergy)
}

func (e *Energy) Value() float64 {
	if len(e.samples) == 0 {
		return 0
	}
	return stat.Mean(e.samples, nil)
}

func (e *Energy) Reset() {
	e.samples = e.samples[:0]
}

// Samples returns the per-frame history; the slice is owned by e.
func (e *Energy) Samples() []float64 { return e.samples }

// Settled is the fraction of frames whose kinetic energy stayed below the
// threshold. A pile at rest approaches 1.
type Settled struct {
	name      string
	threshold float64
	calm      int
	samples   int
}

func NewSettled(threshold float64) *Settled {
	return &Settled{
		name:      "settled",
		threshold: threshold,
	}
}

func (s *Settled) Name() string { return s.name }

func (s *Settled) Observe(st dynamo.FrameStats) {
	s.samples++
	if st.KineticEnergy < s.threshold {
		s.calm++
	}
}

func (s *Settled) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.calm) / float64(s.samples)
}

func (s *Settled) Reset() {
	s.calm = 0
	s.samples = 0
}
