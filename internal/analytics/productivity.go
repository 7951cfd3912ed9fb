package analytics

import "math"

// ProductivityIndex converts energy and discipline into an output estimate.
type ProductivityIndex struct {
	Index            float64 `json:"productivity_index"`
	FocusHours       float64 `json:"focus_hours"`
	OutputMultiplier float64 `json:"output_multiplier"`
	Zone             string  `json:"zone"`
}

// Productivity combines a logarithmic energy term with the discipline
// composite. Negative balances contribute no energy term.
func Productivity(energy int64, d DisciplineMetrics) ProductivityIndex {
	e := float64(energy)
	energyTerm := 15 * math.Log1p(math.Max(e, 0)/100)
	index := energyTerm + 10*d.composite()
	return ProductivityIndex{
		Index:            index,
		FocusHours:       index * 0.5,
		OutputMultiplier: 1 + (e-50)/500,
		Zone:             productivityZone(energyTerm),
	}
}

func productivityZone(energyTerm float64) string {
	switch {
	case energyTerm < 10:
		return "Recovery"
	case energyTerm < 20:
		return "Normal"
	case energyTerm < 30:
		return "Enhanced"
	case energyTerm < 40:
		return "Peak"
	default:
		return "Superhuman"
	}
}
