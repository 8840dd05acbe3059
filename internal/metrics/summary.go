package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a sample set, typically one metric across ensemble runs.
type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Median float64
}

func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	s := Summary{
		N:   len(xs),
		Min: floats.Min(xs),
		Max: floats.Max(xs),
	}
	s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}

	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	floats.Argsort(sorted, make([]int, len(sorted)))
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return s
}
