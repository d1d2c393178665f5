package stats

import (
	"math"
	"testing"
)

func TestLinearRegression(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 3, 5, 7, 9} // y = 2x + 1

	fit := LinearRegression(x, y)
	if math.Abs(fit.Slope-2) > 1e-9 {
		t.Errorf("slope = %f, want 2", fit.Slope)
	}
	if math.Abs(fit.Intercept-1) > 1e-9 {
		t.Errorf("intercept = %f, want 1", fit.Intercept)
	}
	if got := fit.At(10); math.Abs(got-21) > 1e-9 {
		t.Errorf("At(10) = %f, want 21", got)
	}
}

func TestLinearRegressionDegenerate(t *testing.T) {
	if fit := LinearRegression(nil, nil); fit.Slope != 0 || fit.Intercept != 0 {
		t.Errorf("empty input should give zero fit, got %+v", fit)
	}

	// Vertical stack of points has no slope
	fit := LinearRegression([]float64{2, 2, 2}, []float64{1, 5, 9})
	if fit.Slope != 0 {
		t.Errorf("constant x should give zero slope, got %f", fit.Slope)
	}
	if math.Abs(fit.Intercept-5) > 1e-9 {
		t.Errorf("constant x intercept = %f, want mean 5", fit.Intercept)
	}
}

func TestQuantile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	if got := Quantile(values, 0.5); math.Abs(got-3) > 1e-9 {
		t.Errorf("median = %f, want 3", got)
	}
	if got := Quantile(values, 0); got != 1 {
		t.Errorf("q0 = %f, want 1", got)
	}
	if got := Quantile(values, 1); got != 5 {
		t.Errorf("q1 = %f, want 5", got)
	}
	if got := Quantile(nil, 0.5); got != 0 {
		t.Errorf("empty quantile = %f, want 0", got)
	}
}

func TestLogisticBounds(t *testing.T) {
	cases := []float64{0, 0.001, 0.5, 1, 10, 1000, 1e9}
	for _, raw := range cases {
		got := Logistic(raw, 1)
		if got < 0 || got >= 1 {
			t.Errorf("Logistic(%f, 1) = %f, want [0,1)", raw, got)
		}
	}

	if got := Logistic(0, 1); got != 0 {
		t.Errorf("Logistic(0) = %f, want exactly 0", got)
	}

	// Monotonic in raw
	prev := -1.0
	for _, raw := range cases {
		got := Logistic(raw, 1)
		if got < prev {
			t.Errorf("Logistic not monotonic at raw=%f", raw)
		}
		prev = got
	}
}

func TestVariance(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := Variance(values)
	if math.Abs(got-4.571428571428571) > 1e-9 {
		t.Errorf("variance = %f, want 4.5714...", got)
	}

	if Variance([]float64{42}) != 0 {
		t.Error("single value variance should be 0")
	}
}
