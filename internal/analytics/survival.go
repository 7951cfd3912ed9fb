package analytics

import "math"

// minAttempts is the number of closed streaks needed before the user's own
// history replaces the priors.
const minAttempts = 3

// relapseHistoryLen caps SurvivalCurve.RelapseHistory.
const relapseHistoryLen = 10

// DangerZone is a streak length at which the user tends to fail.
type DangerZone struct {
	Day  int    `json:"day"`
	Risk string `json:"risk"`
}

// SurvivalInput is the user's streak history and counters.
type SurvivalInput struct {
	Lengths       []int // archived streak lengths, oldest first
	CurrentStreak int
	MaxStreak     int
}

// SurvivalCurve projects the chance of a streak surviving to 7, 30 and 90 days.
type SurvivalCurve struct {
	CurrentStreak  int          `json:"current_streak"`
	MaxStreak      int          `json:"max_streak"`
	TotalAttempts  int          `json:"total_attempts"`
	MedianSurvival float64      `json:"median_survival"`
	SurvivalDay7   float64      `json:"survival_day_7"`
	SurvivalDay30  float64      `json:"survival_day_30"`
	SurvivalDay90  float64      `json:"survival_day_90"`
	DangerZones    []DangerZone `json:"danger_zones"`
	RelapseHistory []int        `json:"relapse_history"`
}

// Survival fits an exponential decay to the user's streak history.
//
// MedianSurvival is the arithmetic mean of the archived lengths, not a true
// median; the survival probabilities are derived from it and depend on that
// exact value. With fewer than three archived streaks fixed priors are used.
func Survival(in SurvivalInput) SurvivalCurve {
	c := SurvivalCurve{
		CurrentStreak:  in.CurrentStreak,
		MaxStreak:      in.MaxStreak,
		TotalAttempts:  len(in.Lengths),
		RelapseHistory: recentLengths(in.Lengths, relapseHistoryLen),
	}

	if len(in.Lengths) < minAttempts {
		c.MedianSurvival = 14.0
		c.SurvivalDay7 = 0.85
		c.SurvivalDay30 = 0.40
		c.SurvivalDay90 = 0.15
		c.DangerZones = []DangerZone{
			{Day: 3, Risk: "high"},
			{Day: 7, Risk: "high"},
			{Day: 30, Risk: "high"},
		}
		return c
	}

	sum := 0
	for _, l := range in.Lengths {
		sum += l
	}
	mean := float64(sum) / float64(len(in.Lengths))
	c.MedianSurvival = mean
	c.SurvivalDay7 = survivalAt(7, mean)
	c.SurvivalDay30 = survivalAt(30, mean)
	c.SurvivalDay90 = survivalAt(90, mean)
	c.DangerZones = dangerZones(in.Lengths, 3)
	return c
}

// survivalAt is exp(-t/mean). Archived streaks are at least one day long,
// so mean is positive.
func survivalAt(t, mean float64) float64 {
	return math.Exp(-t / mean)
}

// dangerZones returns the n most frequent lengths; ties keep first-seen order.
func dangerZones(lengths []int, n int) []DangerZone {
	counts := make(map[int]int)
	var order []int
	for _, l := range lengths {
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}

	// Stable selection: a later length only displaces an earlier one with a
	// strictly higher count.
	ranked := make([]int, len(order))
	copy(ranked, order)
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && counts[ranked[j]] > counts[ranked[j-1]]; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	zones := make([]DangerZone, len(ranked))
	for i, l := range ranked {
		zones[i] = DangerZone{Day: l, Risk: "high"}
	}
	return zones
}

// recentLengths returns up to n lengths, newest first.
func recentLengths(lengths []int, n int) []int {
	out := []int{}
	for i := len(lengths) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, lengths[i])
	}
	return out
}
