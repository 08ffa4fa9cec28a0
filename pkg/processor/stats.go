package processor

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// percentile returns the p-th percentile (0 <= p <= 100) of x, linearly
// interpolated between the closest ranks.
func percentile(x []float64, p float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return floats.Min(x)
	}
	if p >= 100 {
		return floats.Max(x)
	}
	cp := slices.Clone(x)
	slices.Sort(cp)
	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

// meanStd returns the population mean and standard deviation of x.
func meanStd(x []float64) (float64, float64) {
	mean, variance := stat.PopMeanVariance(x, nil)
	return mean, math.Sqrt(variance)
}

// finite returns the values of x that are not NaN.
func finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
