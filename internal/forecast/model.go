// Package forecast implements the predictive schedule/cost engine. The
// forecasting model is an interface with variants so callers depend only on
// the forecast contract, and the deterministic fallback for short histories
// lives behind the same interface instead of branching in callers.
package forecast

import (
	"errors"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
	"github.com/sitepulse/sitepulse-backend-go/internal/stats"
)

// Model variant names recorded on snapshots.
const (
	ModelBaseline           = "baseline"
	ModelTrendExtrapolation = "trend_extrapolation"
	ModelSequence           = "sequence_model"
)

// ErrNoTrend is returned when the history shows no forward progress to
// extrapolate from.
var ErrNoTrend = errors.New("no positive progress trend in history")

// ScheduleModel projects a completion time from the percent-complete time
// series.
type ScheduleModel interface {
	Name() string

	// ProjectCompletion returns the projected time at which percent
	// complete reaches 100.
	ProjectCompletion(history []models.ProgressEntry, now time.Time) (time.Time, error)
}

// TrendExtrapolation is the deterministic fallback for short histories: a
// least-squares line through (elapsed hours, percent complete), solved for
// 100%.
type TrendExtrapolation struct{}

// Name returns the variant name
func (TrendExtrapolation) Name() string { return ModelTrendExtrapolation }

// ProjectCompletion extrapolates the linear trend to 100 percent.
func (TrendExtrapolation) ProjectCompletion(history []models.ProgressEntry, now time.Time) (time.Time, error) {
	if len(history) == 0 {
		return time.Time{}, ErrNoTrend
	}

	origin := history[0].RecordedAt
	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, e := range history {
		xs[i] = e.RecordedAt.Sub(origin).Hours()
		ys[i] = e.PercentComplete
	}

	fit := stats.LinearRegression(xs, ys)
	if fit.Slope <= 0 {
		return time.Time{}, ErrNoTrend
	}

	hoursTo100 := (100 - fit.Intercept) / fit.Slope
	completion := origin.Add(time.Duration(hoursTo100 * float64(time.Hour)))
	if completion.Before(now) {
		completion = now
	}
	return completion, nil
}

// SequenceModel is Holt double exponential smoothing over the progress
// series: a smoothed level plus a smoothed trend, extrapolated forward. It
// adapts to recent velocity changes where the plain linear fit cannot.
type SequenceModel struct {
	Alpha float64 // level smoothing factor
	Beta  float64 // trend smoothing factor
}

// NewSequenceModel creates a sequence model with the standard smoothing
// factors.
func NewSequenceModel() *SequenceModel {
	return &SequenceModel{Alpha: 0.5, Beta: 0.3}
}

// Name returns the variant name
func (*SequenceModel) Name() string { return ModelSequence }

// ProjectCompletion runs the smoother over the series and extrapolates the
// final level/trend pair to 100 percent.
func (m *SequenceModel) ProjectCompletion(history []models.ProgressEntry, now time.Time) (time.Time, error) {
	if len(history) < 2 {
		return time.Time{}, ErrNoTrend
	}

	// Average sampling interval carries the trend term's time unit
	span := history[len(history)-1].RecordedAt.Sub(history[0].RecordedAt)
	stepHours := span.Hours() / float64(len(history)-1)
	if stepHours <= 0 {
		return time.Time{}, ErrNoTrend
	}

	level := history[0].PercentComplete
	trend := history[1].PercentComplete - history[0].PercentComplete

	for i := 1; i < len(history); i++ {
		y := history[i].PercentComplete
		prevLevel := level
		level = m.Alpha*y + (1-m.Alpha)*(level+trend)
		trend = m.Beta*(level-prevLevel) + (1-m.Beta)*trend
	}

	if trend <= 0 {
		return time.Time{}, ErrNoTrend
	}

	remaining := 100 - level
	if remaining < 0 {
		remaining = 0
	}
	stepsTo100 := remaining / trend

	last := history[len(history)-1].RecordedAt
	completion := last.Add(time.Duration(stepsTo100 * stepHours * float64(time.Hour)))
	if completion.Before(now) {
		completion = now
	}
	return completion, nil
}
