package forecast

import (
	"math"
	"math/rand"

	mstats "github.com/montanaflynn/stats"
)

// Interval is a fractional confidence band around a point estimate: the true
// value is expected to land in [point*(1+Lower), point*(1+Upper)].
type Interval struct {
	Lower float64
	Upper float64
}

// Width returns the fractional width of the band.
func (iv Interval) Width() float64 {
	return iv.Upper - iv.Lower
}

// defaultBand is used when no residual history exists yet.
const defaultBand = 0.15

// simulateInterval estimates a 90% confidence band by Monte Carlo resampling
// over recorded forecast-error residuals. Each draw resamples len(residuals)
// errors with replacement and takes their mean, so the simulated spread is the
// sampling distribution of the mean error: it narrows as history accumulates
// (at constant variance) and widens when recent errors are volatile.
func simulateInterval(residuals []float64, draws int, seed int64) Interval {
	if len(residuals) == 0 {
		return Interval{Lower: -defaultBand, Upper: defaultBand}
	}
	if draws <= 0 {
		draws = 1000
	}

	rng := rand.New(rand.NewSource(seed))
	n := len(residuals)

	means := make([]float64, draws)
	for d := 0; d < draws; d++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += residuals[rng.Intn(n)]
		}
		means[d] = sum / float64(n)
	}

	lower, err := mstats.Percentile(means, 5)
	if err != nil {
		return Interval{Lower: -defaultBand, Upper: defaultBand}
	}
	upper, err := mstats.Percentile(means, 95)
	if err != nil {
		return Interval{Lower: -defaultBand, Upper: defaultBand}
	}

	// A degenerate band (single repeated residual) still gets a floor so the
	// interval is never a point.
	if upper-lower < 1e-9 {
		sd, _ := mstats.StandardDeviationSample(residuals)
		floor := math.Max(sd/math.Sqrt(float64(n)), 0.01)
		return Interval{Lower: lower - floor, Upper: upper + floor}
	}

	return Interval{Lower: lower, Upper: upper}
}
