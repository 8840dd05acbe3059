package sim

import (
	"context"
	"log/slog"
	"sync"

	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
)

// Result is the outcome of one ensemble member.
type Result struct {
	Seed    int64
	Frames  int
	Final   dynamo.FrameStats
	Bodies  []dynamo.Body
	Metrics map[string]float64
}

// Ensemble runs the same configuration with consecutive spawner seeds,
// one goroutine per run.
type Ensemble struct {
	base      config.Config
	numRuns   int
	seedStart int64
	log       *slog.Logger
	metrics   func() []dynamo.Metric
}

func NewEnsemble(cfg *config.Config, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{
		base:      *cfg,
		numRuns:   numRuns,
		seedStart: seedStart,
		log:       slog.New(slog.DiscardHandler),
	}
}

func (e *Ensemble) WithLogger(l *slog.Logger) *Ensemble {
	if l != nil {
		e.log = l
	}
	return e
}

// WithMetrics registers a factory so every run gets its own metric set.
func (e *Ensemble) WithMetrics(fn func() []dynamo.Metric) *Ensemble {
	e.metrics = fn
	return e
}

func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfg := e.base
			cfg.Spawn.Seed = e.seedStart + int64(idx)
			results[idx], errs[idx] = e.runOne(ctx, cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (e *Ensemble) runOne(ctx context.Context, cfg config.Config) (*Result, error) {
	opts := []Option{WithLogger(e.log.With("seed", cfg.Spawn.Seed))}
	if e.metrics != nil {
		for _, m := range e.metrics() {
			opts = append(opts, WithMetric(m))
		}
	}

	s, err := New(cfg.Sim, opts...)
	if err != nil {
		return nil, err
	}
	runner := NewRunner(s, cfg.Run.Dt(), NewSpawner(cfg.Spawn))
	if err := runner.Run(ctx, cfg.Run.Frames, nil); err != nil {
		return nil, err
	}

	return &Result{
		Seed:    cfg.Spawn.Seed,
		Frames:  s.Frame(),
		Final:   s.Stats(),
		Bodies:  s.Snapshot(),
		Metrics: s.Metrics(),
	}, nil
}
