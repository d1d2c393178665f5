package forecast

import "github.com/sitepulse/sitepulse-backend-go/internal/models"

// costEstimator is one independent estimate-at-completion model.
type costEstimator func(p *models.Project, latest models.ProgressEntry) float64

// EnsembleModel combines independent cost estimators with fixed weights. The
// weights are configuration, not learned in-process.
type EnsembleModel struct {
	weights [3]float64
}

// NewEnsembleModel creates the cost ensemble with normalized weights for the
// CPI-, SPI- and remaining-scope-based estimators, in that order.
func NewEnsembleModel(weights [3]float64) *EnsembleModel {
	return &EnsembleModel{weights: weights}
}

// estimateCPI projects final cost as budget divided by the cost performance
// index: spending efficiency to date continues.
func estimateCPI(p *models.Project, _ models.ProgressEntry) float64 {
	cpi := p.CPI
	if cpi <= 0 {
		cpi = 1
	}
	return p.Budget / cpi
}

// estimateSPI projects final cost with combined schedule and cost efficiency;
// running late typically costs money.
func estimateSPI(p *models.Project, latest models.ProgressEntry) float64 {
	cpi := p.CPI
	if cpi <= 0 {
		cpi = 1
	}
	spi := p.SPI
	if spi <= 0 {
		spi = 1
	}
	remaining := p.Budget - latest.EarnedValue
	if remaining < 0 {
		remaining = 0
	}
	return latest.ActualCost + remaining/(cpi*spi)
}

// estimateRemainingScope projects final cost as actuals to date plus the
// remaining scope at planned rates: past variance is treated as sunk.
func estimateRemainingScope(p *models.Project, latest models.ProgressEntry) float64 {
	remaining := p.Budget - latest.EarnedValue
	if remaining < 0 {
		remaining = 0
	}
	return latest.ActualCost + remaining
}

// EstimateFinalCost combines the estimators into one point estimate.
func (m *EnsembleModel) EstimateFinalCost(p *models.Project, latest models.ProgressEntry) float64 {
	estimators := [3]costEstimator{estimateCPI, estimateSPI, estimateRemainingScope}

	var combined float64
	for i, est := range estimators {
		combined += m.weights[i] * est(p, latest)
	}
	return combined
}
