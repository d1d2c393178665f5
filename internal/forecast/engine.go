package forecast

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sitepulse/sitepulse-backend-go/internal/models"
)

// Engine produces forecast snapshots. Model selection is by history length:
// short histories use deterministic trend extrapolation, longer ones the
// sequence model; the cost side always runs the ensemble.
type Engine struct {
	minSequencePoints int
	simulationDraws   int

	trend    ScheduleModel
	sequence ScheduleModel
	ensemble *EnsembleModel
}

// NewEngine creates a forecast engine.
func NewEngine(minSequencePoints, simulationDraws int, ensembleWeights [3]float64) *Engine {
	if minSequencePoints <= 0 {
		minSequencePoints = 10
	}
	return &Engine{
		minSequencePoints: minSequencePoints,
		simulationDraws:   simulationDraws,
		trend:             TrendExtrapolation{},
		sequence:          NewSequenceModel(),
		ensemble:          NewEnsembleModel(ensembleWeights),
	}
}

// Forecast produces a snapshot from the project's progress history and its
// recorded forecast-error residuals. Zero history yields a baseline snapshot
// flagged low-confidence; callers persist it but suppress it from alerts.
func (e *Engine) Forecast(p *models.Project, history []models.ProgressEntry, residuals []float64, now time.Time) (*models.ForecastSnapshot, error) {
	now = now.UTC()
	hash := inputsHash(p, history, residuals)

	if len(history) == 0 {
		return e.baseline(p, now, hash), nil
	}

	model := e.trend
	if len(history) >= e.minSequencePoints {
		model = e.sequence
	}

	completion, err := model.ProjectCompletion(history, now)
	if err == ErrNoTrend {
		// Stalled project: no velocity to extrapolate. Fall back to the
		// trend model, and finally to the planned end pushed by the
		// observed slip to date.
		if model != e.trend {
			completion, err = e.trend.ProjectCompletion(history, now)
		}
		if err != nil {
			completion = stalledCompletion(p, history, now)
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to project completion: %w", err)
	}

	latest := history[len(history)-1]
	finalCost := e.ensemble.EstimateFinalCost(p, latest)

	// Seed the simulation from the inputs hash so identical inputs produce
	// identical intervals.
	interval := simulateInterval(residuals, e.simulationDraws, hashSeed(hash))

	remaining := completion.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	snapshot := &models.ForecastSnapshot{
		ProjectID:   p.ID,
		GeneratedAt: now,
		Model:       model.Name(),
		InputsHash:  hash,

		CompletionDate:      completion,
		CompletionLowerDate: now.Add(scaleDuration(remaining, 1+interval.Lower)),
		CompletionUpperDate: now.Add(scaleDuration(remaining, 1+interval.Upper)),

		FinalCost:      finalCost,
		FinalCostLower: finalCost * (1 + interval.Lower),
		FinalCostUpper: finalCost * (1 + interval.Upper),
	}

	snapshot.RiskLevel = riskLevel(
		scheduleSlip(p, completion),
		costOverrun(p, finalCost),
		interval.Width(),
	)

	return snapshot, nil
}

// baseline is the zero-history snapshot: forecast equals the planned
// baseline, risk LOW, flagged low-confidence.
func (e *Engine) baseline(p *models.Project, now time.Time, hash string) *models.ForecastSnapshot {
	return &models.ForecastSnapshot{
		ProjectID:   p.ID,
		GeneratedAt: now,
		Model:       ModelBaseline,
		InputsHash:  hash,

		CompletionDate:      p.PlannedEnd,
		CompletionLowerDate: p.PlannedEnd,
		CompletionUpperDate: p.PlannedEnd,

		FinalCost:      p.Budget,
		FinalCostLower: p.Budget,
		FinalCostUpper: p.Budget,

		RiskLevel:     models.RiskLow,
		LowConfidence: true,
	}
}

// stalledCompletion handles a history with no forward velocity: the planned
// end pushed out by however long the project has already been stalled.
func stalledCompletion(p *models.Project, history []models.ProgressEntry, now time.Time) time.Time {
	slip := now.Sub(history[len(history)-1].RecordedAt)
	if slip < 0 {
		slip = 0
	}
	completion := p.PlannedEnd.Add(slip)
	if completion.Before(now) {
		completion = now
	}
	return completion
}

// scheduleSlip returns the completion slip as a fraction of planned duration.
func scheduleSlip(p *models.Project, completion time.Time) float64 {
	dur := p.PlannedEnd.Sub(p.PlannedStart)
	if dur <= 0 {
		return 0
	}
	slip := completion.Sub(p.PlannedEnd)
	if slip <= 0 {
		return 0
	}
	return slip.Hours() / dur.Hours()
}

// costOverrun returns the forecast overrun as a fraction of budget.
func costOverrun(p *models.Project, finalCost float64) float64 {
	if p.Budget <= 0 {
		return 0
	}
	overrun := finalCost - p.Budget
	if overrun <= 0 {
		return 0
	}
	return overrun / p.Budget
}

func scaleDuration(d time.Duration, factor float64) time.Duration {
	scaled := time.Duration(float64(d) * factor)
	if scaled < 0 {
		return 0
	}
	return scaled
}

// inputsHash is a deterministic digest of the exact input vector: two
// snapshots with equal hashes were computed from identical data.
func inputsHash(p *models.Project, history []models.ProgressEntry, residuals []float64) string {
	h := sha256.New()

	fmt.Fprintf(h, "project:%d|budget:%.6f|start:%d|end:%d|spi:%.6f|cpi:%.6f|actual:%.6f\n",
		p.ID, p.Budget, p.PlannedStart.Unix(), p.PlannedEnd.Unix(), p.SPI, p.CPI, p.ActualCost)

	for _, e := range history {
		fmt.Fprintf(h, "h:%d|%.6f|%.6f|%.6f\n", e.RecordedAt.Unix(), e.PercentComplete, e.ActualCost, e.EarnedValue)
	}
	for _, r := range residuals {
		fmt.Fprintf(h, "r:%.9f\n", r)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// hashSeed derives a deterministic RNG seed from the inputs hash.
func hashSeed(hash string) int64 {
	b, err := hex.DecodeString(hash)
	if err != nil || len(b) < 8 {
		return 1
	}
	return int64(binary.BigEndian.Uint64(b[:8]))
}
