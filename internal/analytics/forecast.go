package analytics

import "math"

// Trend labels.
const (
	TrendInsufficient  = "insufficient_data"
	TrendStrongGrowth  = "strong_growth"
	TrendGrowth        = "growth"
	TrendStable        = "stable"
	TrendDeclining     = "declining"
	ConfidenceHigh     = "high"
	ConfidenceMedium   = "medium"
	ConfidenceLow      = "low"
	minForecastHistory = 7
)

// ForecastResult projects the energy balance 30, 60 and 90 days out.
type ForecastResult struct {
	Current                float64 `json:"current"`
	Forecast30Optimistic   float64 `json:"forecast_30d_optimistic"`
	Forecast30Conservative float64 `json:"forecast_30d_conservative"`
	Forecast60Optimistic   float64 `json:"forecast_60d_optimistic"`
	Forecast60Conservative float64 `json:"forecast_60d_conservative"`
	Forecast90Optimistic   float64 `json:"forecast_90d_optimistic"`
	Forecast90Conservative float64 `json:"forecast_90d_conservative"`
	DailyGrowth            float64 `json:"daily_growth"`
	Confidence             string  `json:"confidence"`
	Trend                  string  `json:"trend"`
}

// InsufficientForecast is returned when fewer than seven days of balances exist.
func InsufficientForecast() ForecastResult {
	return ForecastResult{Confidence: ConfidenceLow, Trend: TrendInsufficient}
}

// Forecast projects the balance from daily end-of-day balances (oldest
// first, trailing 30 days) and the current streak.
//
// The observed daily growth compares the mean of the last seven balances
// with the mean of the up to seven preceding them; with nothing preceding,
// observed growth is zero. The optimistic and conservative bands take the
// larger of the observed growth and a share of the streak-expected gain.
func Forecast(balances []float64, streak int) ForecastResult {
	if len(balances) < minForecastHistory {
		return InsufficientForecast()
	}

	n := len(balances)
	recent := balances[n-minForecastHistory:]
	older := balances[max(0, n-2*minForecastHistory) : n-minForecastHistory]

	recentAvg := mean(recent)
	var dailyGrowth float64
	if len(older) > 0 {
		dailyGrowth = (recentAvg - mean(older)) / minForecastHistory
	}

	expected := ExpectedDailyGain(streak)
	optimistic := math.Max(dailyGrowth, 0.8*expected)
	conservative := math.Max(0.5*dailyGrowth, 0.3*expected)

	current := balances[n-1]
	project := func(growth float64, days int) float64 {
		return math.Round(current + growth*float64(days))
	}

	return ForecastResult{
		Current:                current,
		Forecast30Optimistic:   project(optimistic, 30),
		Forecast30Conservative: project(conservative, 30),
		Forecast60Optimistic:   project(optimistic, 60),
		Forecast60Conservative: project(conservative, 60),
		Forecast90Optimistic:   project(optimistic, 90),
		Forecast90Conservative: project(conservative, 90),
		DailyGrowth:            math.Round(dailyGrowth*10) / 10,
		Confidence:             confidence(stddev(balances)),
		Trend:                  trend(dailyGrowth),
	}
}

// ExpectedDailyGain is the energy a streak of this length is expected to
// earn per day: 10 + 2·streak up to a week, then 10 + 5·(streak−7) + 14.
func ExpectedDailyGain(streak int) float64 {
	s := float64(max(streak, 0))
	if streak <= 7 {
		return 10 + 2*s
	}
	return 10 + 5*(s-7) + 14
}

func confidence(sd float64) string {
	switch {
	case sd < 50:
		return ConfidenceHigh
	case sd < 100:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func trend(dailyGrowth float64) string {
	switch {
	case dailyGrowth > 5:
		return TrendStrongGrowth
	case dailyGrowth > 0:
		return TrendGrowth
	case dailyGrowth > -5:
		return TrendStable
	default:
		return TrendDeclining
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}
