package waste

import "github.com/sitepulse/sitepulse-backend-go/internal/models"

// Unit-impact factors express, per category, what fraction of the project
// budget (or planned duration) a fully saturated score of 1.0 would put at
// risk. Impact therefore scales with project size: the same score on a larger
// project means a larger absolute impact.
var costFactors = map[models.WasteCategory]float64{
	models.WasteDefects:           0.08,
	models.WasteOverproduction:    0.04,
	models.WasteWaiting:           0.06,
	models.WasteNonUtilizedTalent: 0.05,
	models.WasteTransportation:    0.03,
	models.WasteInventory:         0.04,
	models.WasteMotion:            0.02,
	models.WasteExtraProcessing:   0.05,
}

var timeFactors = map[models.WasteCategory]float64{
	models.WasteDefects:           0.07,
	models.WasteOverproduction:    0.02,
	models.WasteWaiting:           0.09,
	models.WasteNonUtilizedTalent: 0.04,
	models.WasteTransportation:    0.03,
	models.WasteInventory:         0.02,
	models.WasteMotion:            0.03,
	models.WasteExtraProcessing:   0.05,
}

func costImpactFactor(category models.WasteCategory, p *models.Project) float64 {
	return costFactors[category] * p.Budget
}

func timeImpactFactor(category models.WasteCategory, p *models.Project) float64 {
	return timeFactors[category] * p.PlannedDurationHours()
}
