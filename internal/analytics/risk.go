package analytics

import "time"

// Risk levels.
const (
	RiskLow      = "LOW"
	RiskModerate = "MODERATE"
	RiskCritical = "CRITICAL"
)

// Factor impact classes.
const (
	ImpactHigh       = "high_risk"
	ImpactMedium     = "medium_risk"
	ImpactProtection = "protection"
)

const (
	baseRisk    = 0.20
	minRisk     = 0.05
	maxRisk     = 0.95
	stressLimit = 7.0
)

// RiskInput is everything the relapse-risk rules look at.
type RiskInput struct {
	Now       time.Time // already in the user's local zone
	Streak    int
	AvgStress *float64 // mean stress over the trailing 3 days; nil if unreported
}

// RiskFactor is one triggered rule.
type RiskFactor struct {
	Name        string `json:"name"`
	Impact      string `json:"impact"`
	Description string `json:"description"`
}

// RiskAssessment is the predicted relapse probability with its explanation.
type RiskAssessment struct {
	Probability float64      `json:"risk_probability"`
	Level       string       `json:"risk_level"`
	Factors     []RiskFactor `json:"factors"`
}

// PredictRisk applies the additive rule set to a base probability of 0.20
// and clamps the result to [0.05, 0.95].
func PredictRisk(in RiskInput) RiskAssessment {
	p := baseRisk
	factors := []RiskFactor{}

	if lateNight(in.Now.Hour()) {
		p += 0.35
		factors = append(factors, RiskFactor{
			Name:        "Late Night Hours",
			Impact:      ImpactHigh,
			Description: "Willpower is lowest during late night hours",
		})
	}

	switch {
	case in.Streak < 7:
		p += 0.25
		factors = append(factors, RiskFactor{
			Name:        "Early Streak Phase",
			Impact:      ImpactMedium,
			Description: "First 7 days have highest relapse rates",
		})
	case in.Streak > 30:
		p -= 0.15
		factors = append(factors, RiskFactor{
			Name:        "Habit Formation",
			Impact:      ImpactProtection,
			Description: "Strong momentum protects against impulses",
		})
	}

	if in.AvgStress != nil && *in.AvgStress > stressLimit {
		p += 0.20
		factors = append(factors, RiskFactor{
			Name:        "High Stress Levels",
			Impact:      ImpactHigh,
			Description: "Recent high stress correlates with relapse",
		})
	}

	p = clamp(p, minRisk, maxRisk)
	return RiskAssessment{
		Probability: p,
		Level:       riskLevel(p),
		Factors:     factors,
	}
}

// lateNight covers 22:00 through 04:59.
func lateNight(hour int) bool {
	return hour >= 22 || hour <= 4
}

func riskLevel(p float64) string {
	switch {
	case p > 0.7:
		return RiskCritical
	case p > 0.4:
		return RiskModerate
	default:
		return RiskLow
	}
}
