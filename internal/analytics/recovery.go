package analytics

import "math"

// RecoveryPhase describes where a streak sits in the four-stage recovery model.
type RecoveryPhase struct {
	StreakDays          int     `json:"streak_days"`
	Phase               string  `json:"phase"`
	PhaseNumber         int     `json:"phase_number"`
	ProgressPercent     float64 `json:"progress_percent"`
	DopamineRecovery    float64 `json:"dopamine_recovery"`
	AndrogenSensitivity float64 `json:"androgen_sensitivity"`
	PrefrontalChanges   float64 `json:"prefrontal_changes"`
	Description         string  `json:"description"`
}

// Classify maps a streak length to its recovery phase. Ranges are half-open:
// [0,7) Withdrawal, [7,30) Stabilization, [30,90) Momentum, [90,∞) Transformation.
// Negative input is treated as day 0.
func Classify(streakDays int) RecoveryPhase {
	if streakDays < 0 {
		streakDays = 0
	}
	d := float64(streakDays)

	switch {
	case streakDays < 7:
		return RecoveryPhase{
			StreakDays:       streakDays,
			Phase:            "Withdrawal",
			PhaseNumber:      1,
			ProgressPercent:  d / 7 * 100,
			DopamineRecovery: 10 + 2*d,
			Description:      "Dopamine receptors beginning to upregulate. Strongest urges.",
		}
	case streakDays < 30:
		return RecoveryPhase{
			StreakDays:          streakDays,
			Phase:               "Stabilization",
			PhaseNumber:         2,
			ProgressPercent:     (d - 7) / 23 * 100,
			DopamineRecovery:    25 + 1.5*(d-7),
			AndrogenSensitivity: math.Min(100, 4*(d-7)),
			PrefrontalChanges:   5 + 0.5*d,
			Description:         "Androgen sensitivity increasing. Energy fluctuations stabilizing.",
		}
	case streakDays < 90:
		return RecoveryPhase{
			StreakDays:          streakDays,
			Phase:               "Momentum",
			PhaseNumber:         3,
			ProgressPercent:     (d - 30) / 60 * 100,
			DopamineRecovery:    60 + 0.5*(d-30),
			AndrogenSensitivity: 100,
			PrefrontalChanges:   20 + 0.8*(d-30),
			Description:         "Prefrontal cortex showing structural changes. Executive control improves.",
		}
	default:
		return RecoveryPhase{
			StreakDays:          streakDays,
			Phase:               "Transformation",
			PhaseNumber:         4,
			ProgressPercent:     100,
			DopamineRecovery:    100,
			AndrogenSensitivity: 100,
			PrefrontalChanges:   100,
			Description:         "Full neurochemical reset achieved. New baseline established.",
		}
	}
}
