package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// Penetration tracks the deepest overlap seen before resolution.
type Penetration struct {
	name    string
	samples []float64
}

func NewPenetration() *Penetration {
	return &Penetration{name: "max_penetration"}
}

func (p *Penetration) Name() string { return p.name }

func (p *Penetration) Observe(s dynamo.FrameStats) {
	p.samples = append(p.samples, s.MaxPenetration)
}

func (p *Penetration) Value() float64 {
	if len(p.samples) == 0 {
		return 0
	}
	return floats.Max(p.samples)
}

func (p *Penetration) Reset() {
	p.samples = p.samples[:0]
}

// WallHits is the mean number of boundary contacts per frame.
type WallHits struct {
	name    string
	sum     int
	samples int
}

func NewWallHits() *WallHits {
	return &WallHits{name: "wall_hits"}
}

func (w *WallHits) Name() string { return w.name }

func (w *WallHits) Observe(s dynamo.FrameStats) {
	w.sum += s.WallHits
	w.samples++
}

func (w *WallHits) Value() float64 {
	if w.samples == 0 {
		return 0
	}
	return float64(w.sum) / float64(w.samples)
}

func (w *WallHits) Reset() {
	w.sum = 0
	w.samples = 0
}

// DefaultSettledThreshold is the kinetic energy below which a frame
// counts as calm.
const DefaultSettledThreshold = 50.0

// Standard returns a fresh set of the built-in metrics.
func Standard() []dynamo.Metric {
	return []dynamo.Metric{
		NewEnergy(),
		NewPenetration(),
		NewWallHits(),
		NewSettled(DefaultSettledThreshold),
	}
}
