package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// Runner steps a simulation at a fixed dt. It does no wall-clock pacing;
// interactive hosts pace themselves and call Step directly.
type Runner struct {
	Sim     *Simulation
	Dt      float64
	Drivers []Driver
}

func NewRunner(s *Simulation, dt float64, drivers ...Driver) *Runner {
	return &Runner{Sim: s, Dt: dt, Drivers: drivers}
}

// Run performs up to frames steps. The callback sees the stats of every
// completed step and may stop the run early by returning false.
func (r *Runner) Run(ctx context.Context, frames int, callback func(dynamo.FrameStats) bool) error {
	if !(r.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %v", dynamo.ErrInvalidConfig, r.Dt)
	}
	if frames < 0 {
		return fmt.Errorf("%w: frames must be non-negative, got %d", dynamo.ErrInvalidConfig, frames)
	}

	for range frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for _, d := range r.Drivers {
			if err := d.Tick(r.Sim); err != nil {
				return fmt.Errorf("frame %d: %w", r.Sim.Frame(), err)
			}
		}

		r.Sim.Step(r.Dt)

		if callback != nil && !callback(r.Sim.Stats()) {
			return nil
		}
	}
	return nil
}
