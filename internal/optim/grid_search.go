package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"maps"

	"github.com/san-kum/ballpit/internal/automation"
	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
)

// GridSearch evaluates every combination of a set of tunables and keeps the
// one that minimises a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	trials     int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Trials reports how many combinations the last Search ran.
func (g *GridSearch) Trials() int { return g.trials }

// Search runs base once per combination. Combinations that produce an
// invalid configuration are skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("grid search: %d params but %d ranges", len(g.paramNames), len(g.ranges))
	}

	g.trials = 0
	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, metricName, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("grid search: no valid combination: %w", dynamo.ErrInvalidConfig)
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if depth == len(g.paramNames) {
		cfg := *base
		for name, v := range current {
			if err := automation.ApplyParam(&cfg, name, v); err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			if errors.Is(err, dynamo.ErrInvalidConfig) {
				return nil
			}
			return err
		}

		_, m, err := automation.Evaluate(ctx, &cfg)
		if err != nil {
			return err
		}
		g.trials++

		val, ok := m[metricName]
		if !ok {
			return fmt.Errorf("grid search: unknown metric %q", metricName)
		}
		if val < *best || *bestParams == nil {
			*best = val
			*bestParams = maps.Clone(current)
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := maps.Clone(current)
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
