package analytics

import "math"

// Component weights of the discipline composite.
const (
	weightConsistency = 0.25
	weightStability   = 0.40
	weightActivity    = 0.20
	weightGoals       = 0.15

	// WindowDays is the trailing window used for consistency and adherence.
	WindowDays = 30
)

// DisciplineInput is everything the discipline score depends on.
type DisciplineInput struct {
	CheckInDays    int // distinct check-in days in the trailing window
	ActiveDays     int // days in the window with exercise or meditation
	CurrentStreak  int
	CompletedGoals int
	TotalGoals     int
}

// DisciplineMetrics is the composite discipline score and its components.
type DisciplineMetrics struct {
	Overall           float64 `json:"overall_score"`
	Grade             string  `json:"grade"`
	Consistency       float64 `json:"consistency"`
	StreakStability   float64 `json:"streak_stability"`
	ActivityAdherence float64 `json:"activity_adherence"`
	GoalProgress      float64 `json:"goal_progress"`
}

// Discipline computes the weighted composite score. Missing data yields zero
// components, so an empty history scores 0 with grade D.
func Discipline(in DisciplineInput) DisciplineMetrics {
	m := DisciplineMetrics{
		Consistency:       clamp01(float64(in.CheckInDays) / WindowDays),
		StreakStability:   streakStability(in.CurrentStreak),
		ActivityAdherence: clamp01(float64(in.ActiveDays) / WindowDays),
	}
	if in.TotalGoals > 0 {
		m.GoalProgress = clamp01(float64(in.CompletedGoals) / float64(in.TotalGoals))
	}
	// Snap away float noise so exact boundary scores grade correctly.
	m.Overall = math.Round(100*m.composite()*1e9) / 1e9
	m.Grade = Grade(m.Overall)
	return m
}

// composite is the weighted component sum in [0,1].
func (m DisciplineMetrics) composite() float64 {
	return weightConsistency*m.Consistency +
		weightStability*m.StreakStability +
		weightActivity*m.ActivityAdherence +
		weightGoals*m.GoalProgress
}

// streakStability rewards long streaks with diminishing returns: s/(s+7).
func streakStability(streak int) float64 {
	if streak <= 0 {
		return 0
	}
	s := float64(streak)
	return s / (s + 7)
}

// Grade maps an overall score to a letter grade.
func Grade(overall float64) string {
	switch {
	case overall >= 90:
		return "S"
	case overall >= 80:
		return "A"
	case overall >= 70:
		return "B"
	case overall >= 60:
		return "C"
	default:
		return "D"
	}
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
