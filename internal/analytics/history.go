package analytics

import "math"

// EnergyDay is one day of ledger activity.
type EnergyDay struct {
	Day       string `json:"day"`
	Energy    int64  `json:"energy"`
	Gains     int64  `json:"gains"`
	Losses    int64  `json:"losses"`
	MovingAvg int64  `json:"moving_avg"`
	Trend     int64  `json:"trend"`
}

// EnergyHistory annotates days (newest first) with a moving average over the
// window of up to seven rows ending at each row, and the change from the
// previous row. Averages round half up, so -2.5 becomes -2.
func EnergyHistory(days []EnergyDay) []EnergyDay {
	out := make([]EnergyDay, len(days))
	for i, d := range days {
		window := days[max(0, i-6) : i+1]
		var sum int64
		for _, w := range window {
			sum += w.Energy
		}
		d.MovingAvg = int64(math.Floor(float64(sum)/float64(len(window)) + 0.5))
		if i > 0 {
			d.Trend = d.Energy - days[i-1].Energy
		} else {
			d.Trend = 0
		}
		out[i] = d
	}
	return out
}
