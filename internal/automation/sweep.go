package automation

import (
	"context"
	"fmt"

	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/metrics"
	"github.com/san-kum/ballpit/internal/sim"
)

// ParameterSweep runs one preset across a range of a single tunable.
type ParameterSweep struct {
	Preset   string
	Param    string
	Min      float64
	Max      float64
	NumSteps int
	Frames   int
}

// SweepResult holds the metrics of one sweep point.
type SweepResult struct {
	ParamValue float64
	Particles  int
	Metrics    map[string]float64
}

// SweepParams lists the tunables a sweep can vary.
var SweepParams = []string{"restitution", "damping", "substeps", "gravity", "correction_floor"}

// ApplyParam sets one named tunable on cfg.
func ApplyParam(cfg *config.Config, name string, v float64) error {
	switch name {
	case "restitution":
		cfg.Spawn.Restitution = v
	case "damping":
		cfg.Sim.Damping = v
	case "substeps":
		cfg.Sim.Substeps = int(v)
	case "gravity":
		cfg.Sim.Gravity.Y = v
	case "correction_floor":
		cfg.Sim.CorrectionFloor = v
	default:
		return fmt.Errorf("unknown sweep parameter: %s", name)
	}
	return nil
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)
	}

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.Min + float64(i)*paramStep

		cfg := config.GetPreset(sweep.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", sweep.Preset)
		}
		if err := ApplyParam(cfg, sweep.Param, paramVal); err != nil {
			return nil, err
		}
		if sweep.Frames > 0 {
			cfg.Run.Frames = sweep.Frames
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%v: %w", sweep.Param, paramVal, err)
		}

		particles, m, err := Evaluate(ctx, cfg)
		if err != nil {
			return nil, err
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			Particles:  particles,
			Metrics:    m,
		})
	}

	return results, nil
}

// Evaluate runs cfg with its spawner and the standard metrics and returns
// the final ball count and metric values.
func Evaluate(ctx context.Context, cfg *config.Config) (int, map[string]float64, error) {
	opts := make([]sim.Option, 0, 4)
	for _, m := range metrics.Standard() {
		opts = append(opts, sim.WithMetric(m))
	}
	s, err := sim.New(cfg.Sim, opts...)
	if err != nil {
		return 0, nil, err
	}
	if err := sim.NewRunner(s, cfg.Run.Dt(), sim.NewSpawner(cfg.Spawn)).Run(ctx, cfg.Run.Frames, nil); err != nil {
		return 0, nil, err
	}
	return s.Len(), s.Metrics(), nil
}
