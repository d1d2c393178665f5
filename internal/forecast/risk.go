package forecast

import "github.com/sitepulse/sitepulse-backend-go/internal/models"

// riskLevel maps schedule slip, cost overrun and interval width onto the
// categorical risk level. All inputs are fractions (0.10 = 10%). The mapping
// is deterministic with fixed thresholds.
func riskLevel(slip, overrun, width float64) models.RiskLevel {
	// Severe single-dimension breaches are critical outright
	if slip > 0.25 || overrun > 0.30 {
		return models.RiskCritical
	}

	// Combined slip+overrun is at least HIGH; wide uncertainty escalates it
	if slip > 0.10 && overrun > 0.15 {
		if width > 0.30 {
			return models.RiskCritical
		}
		return models.RiskHigh
	}

	if slip > 0.15 || overrun > 0.20 {
		return models.RiskHigh
	}

	if slip > 0.05 || overrun > 0.05 || width > 0.40 {
		return models.RiskMedium
	}

	return models.RiskLow
}
