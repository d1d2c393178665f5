package stats

import (
	"math"
	"sort"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance calculates the sample variance
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)
	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return sumSquaredDiff / float64(len(values)-1)
}

// StdDev calculates the sample standard deviation
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Quantile calculates the q-th quantile (0-1) with linear interpolation
// between closest ranks
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// LinearFit holds the result of a least-squares linear regression.
type LinearFit struct {
	Slope     float64
	Intercept float64
}

// LinearRegression fits y = slope*x + intercept by least squares.
// Returns a zero fit when fewer than two points are given.
func LinearRegression(x, y []float64) LinearFit {
	n := len(x)
	if n < 2 || len(y) != n {
		return LinearFit{}
	}

	meanX := Mean(x)
	meanY := Mean(y)

	var sumXY, sumX2 float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		sumXY += dx * (y[i] - meanY)
		sumX2 += dx * dx
	}

	if sumX2 == 0 {
		return LinearFit{Intercept: meanY}
	}

	slope := sumXY / sumX2
	return LinearFit{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
	}
}

// At evaluates the fitted line at x.
func (f LinearFit) At(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// Logistic squashes a non-negative raw statistic into [0,1). The scale
// parameter sets the raw value that maps to roughly 0.46; larger raw values
// approach 1 asymptotically.
func Logistic(raw, scale float64) float64 {
	if raw <= 0 || scale <= 0 {
		return 0
	}
	// Shifted so that raw=0 maps to exactly 0 rather than 0.5
	return 2.0/(1.0+math.Exp(-raw/scale)) - 1.0
}

// Clamp constrains v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
