package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func at(hour int) time.Time {
	return time.Date(2026, 3, 10, hour, 15, 0, 0, time.UTC)
}

func TestDisciplineEmpty(t *testing.T) {
	m := Discipline(DisciplineInput{})
	assert.Equal(t, 0.0, m.Overall)
	assert.Equal(t, "D", m.Grade)
	assert.Equal(t, 0.0, m.GoalProgress)
}

func TestDisciplinePerfect(t *testing.T) {
	m := Discipline(DisciplineInput{
		CheckInDays:    30,
		ActiveDays:     30,
		CurrentStreak:  63,
		CompletedGoals: 2,
		TotalGoals:     2,
	})
	// stability 63/70 = 0.9
	assert.InDelta(t, 0.9, m.StreakStability, 1e-9)
	assert.InDelta(t, 100*(0.25+0.40*0.9+0.20+0.15), m.Overall, 1e-9)
	assert.Equal(t, "S", m.Grade)
}

func TestDisciplineClampsWindow(t *testing.T) {
	m := Discipline(DisciplineInput{CheckInDays: 45, ActiveDays: 31})
	assert.Equal(t, 1.0, m.Consistency)
	assert.Equal(t, 1.0, m.ActivityAdherence)
}

func TestGradeBoundaries(t *testing.T) {
	tests := []struct {
		overall float64
		want    string
	}{
		{90, "S"}, {89.99, "A"}, {80, "A"}, {70, "B"}, {60, "C"}, {59.9, "D"}, {0, "D"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.overall), "Grade(%v)", tt.overall)
	}
}

func TestDisciplineExactBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		in    DisciplineInput
		want  float64
		grade string
	}{
		{"ninety", DisciplineInput{CheckInDays: 30, ActiveDays: 30, CurrentStreak: 105, CompletedGoals: 1, TotalGoals: 2}, 90, "S"},
		{"sixty", DisciplineInput{CheckInDays: 12, ActiveDays: 9, CurrentStreak: 73, CompletedGoals: 1, TotalGoals: 2}, 60, "C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Discipline(tt.in)
			assert.Equal(t, tt.want, m.Overall)
			assert.Equal(t, tt.grade, m.Grade)
		})
	}
}

func TestPredictRiskBaseline(t *testing.T) {
	r := PredictRisk(RiskInput{Now: at(14), Streak: 10, AvgStress: ptr(3)})
	assert.InDelta(t, 0.20, r.Probability, 1e-9)
	assert.Equal(t, RiskLow, r.Level)
	assert.Empty(t, r.Factors)
	assert.NotNil(t, r.Factors)
}

func TestPredictRiskCritical(t *testing.T) {
	r := PredictRisk(RiskInput{Now: at(23), Streak: 2, AvgStress: ptr(9)})
	// 0.20 + 0.35 + 0.25 + 0.20 = 1.00, clamped
	assert.InDelta(t, 0.95, r.Probability, 1e-9)
	assert.Equal(t, RiskCritical, r.Level)
	require.Len(t, r.Factors, 3)
	assert.Equal(t, "Late Night Hours", r.Factors[0].Name)
	assert.Equal(t, "Early Streak Phase", r.Factors[1].Name)
	assert.Equal(t, "High Stress Levels", r.Factors[2].Name)
}

func TestPredictRiskProtection(t *testing.T) {
	r := PredictRisk(RiskInput{Now: at(12), Streak: 45})
	assert.InDelta(t, 0.05, r.Probability, 1e-9)
	assert.Equal(t, RiskLow, r.Level)
	require.Len(t, r.Factors, 1)
	assert.Equal(t, ImpactProtection, r.Factors[0].Impact)
}

func TestPredictRiskBounds(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		for _, streak := range []int{0, 3, 7, 30, 31, 400} {
			for _, stress := range []*float64{nil, ptr(0), ptr(7), ptr(7.5), ptr(10)} {
				r := PredictRisk(RiskInput{Now: at(hour), Streak: streak, AvgStress: stress})
				assert.GreaterOrEqual(t, r.Probability, 0.05)
				assert.LessOrEqual(t, r.Probability, 0.95)
			}
		}
	}
}

func TestLateNightWindow(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		want := hour >= 22 || hour <= 4
		assert.Equal(t, want, lateNight(hour), "hour %d", hour)
	}
}

func TestSurvivalPriors(t *testing.T) {
	for _, lengths := range [][]int{nil, {5}, {5, 9}} {
		c := Survival(SurvivalInput{Lengths: lengths})
		assert.Equal(t, 14.0, c.MedianSurvival)
		assert.Equal(t, 0.85, c.SurvivalDay7)
		assert.Equal(t, 0.40, c.SurvivalDay30)
		assert.Equal(t, 0.15, c.SurvivalDay90)
		assert.Equal(t, []DangerZone{{3, "high"}, {7, "high"}, {30, "high"}}, c.DangerZones)
		assert.Equal(t, len(lengths), c.TotalAttempts)
	}
}

func TestSurvivalFitted(t *testing.T) {
	c := Survival(SurvivalInput{Lengths: []int{3, 7, 3, 14, 7, 2}, CurrentStreak: 4, MaxStreak: 14})
	assert.InDelta(t, 6.0, c.MedianSurvival, 1e-9)
	assert.InDelta(t, 0.311403, c.SurvivalDay7, 1e-6)
	assert.InDelta(t, 0.006738, c.SurvivalDay30, 1e-6)
	assert.Greater(t, c.SurvivalDay7, c.SurvivalDay30)
	assert.Greater(t, c.SurvivalDay30, c.SurvivalDay90)
	assert.Equal(t, []DangerZone{{3, "high"}, {7, "high"}, {14, "high"}}, c.DangerZones)
	assert.Equal(t, []int{2, 7, 14, 3, 7, 3}, c.RelapseHistory)
	assert.Equal(t, 6, c.TotalAttempts)
}

func TestSurvivalRelapseHistoryCapped(t *testing.T) {
	lengths := make([]int, 15)
	for i := range lengths {
		lengths[i] = i + 1
	}
	c := Survival(SurvivalInput{Lengths: lengths})
	require.Len(t, c.RelapseHistory, 10)
	assert.Equal(t, 15, c.RelapseHistory[0])
	assert.Equal(t, 6, c.RelapseHistory[9])
}

func TestClassify(t *testing.T) {
	p := Classify(0)
	assert.Equal(t, 1, p.PhaseNumber)
	assert.Equal(t, 0.0, p.ProgressPercent)

	p = Classify(7)
	assert.Equal(t, 2, p.PhaseNumber)
	assert.InDelta(t, 0.0, p.ProgressPercent, 1e-9)

	p = Classify(90)
	assert.Equal(t, 4, p.PhaseNumber)
	assert.Equal(t, 100.0, p.ProgressPercent)
	assert.Equal(t, 100.0, p.DopamineRecovery)
}

func TestClassifyMonotonic(t *testing.T) {
	prev := Classify(0)
	for d := 1; d <= 200; d++ {
		p := Classify(d)
		assert.GreaterOrEqual(t, p.PhaseNumber, prev.PhaseNumber, "day %d", d)
		assert.GreaterOrEqual(t, p.DopamineRecovery, prev.DopamineRecovery, "day %d", d)
		assert.LessOrEqual(t, p.DopamineRecovery, 100.0)
		prev = p
	}
}

func TestForecastInsufficient(t *testing.T) {
	for n := 0; n < 7; n++ {
		f := Forecast(make([]float64, n), 10)
		assert.Equal(t, InsufficientForecast(), f)
	}
	f := InsufficientForecast()
	assert.Equal(t, ConfidenceLow, f.Confidence)
	assert.Equal(t, TrendInsufficient, f.Trend)
	assert.Zero(t, f.Forecast30Optimistic)
}

func TestForecastGrowth(t *testing.T) {
	balances := make([]float64, 14)
	for i := range balances {
		balances[i] = 100 + 10*float64(i)
	}
	f := Forecast(balances, 3)
	// recent mean 200, older mean 130, growth 10/day
	assert.InDelta(t, 10.0, f.DailyGrowth, 1e-9)
	assert.Equal(t, 230.0, f.Current)
	assert.Equal(t, TrendStrongGrowth, f.Trend)
	// expected gain at streak 3 is 16, optimistic = max(10, 12.8)
	assert.Equal(t, 614.0, f.Forecast30Optimistic)
	// conservative = max(5, 4.8)
	assert.Equal(t, 380.0, f.Forecast30Conservative)
	assert.Equal(t, ConfidenceHigh, f.Confidence)
}

func TestForecastBandsOrdered(t *testing.T) {
	balances := []float64{50, 40, 60, 20, 80, 10, 90, 30, 70, 0}
	for streak := 0; streak < 60; streak += 5 {
		f := Forecast(balances, streak)
		assert.GreaterOrEqual(t, f.Forecast30Optimistic, f.Forecast30Conservative)
		assert.GreaterOrEqual(t, f.Forecast60Optimistic, f.Forecast60Conservative)
		assert.GreaterOrEqual(t, f.Forecast90Optimistic, f.Forecast90Conservative)
	}
}

func TestForecastNoOlderWindow(t *testing.T) {
	f := Forecast([]float64{10, 10, 10, 10, 10, 10, 10}, 0)
	assert.Equal(t, 0.0, f.DailyGrowth)
	assert.Equal(t, TrendStable, f.Trend)
	assert.Equal(t, 250.0, f.Forecast30Optimistic)
}

func TestExpectedDailyGainContinuous(t *testing.T) {
	assert.Equal(t, 10.0, ExpectedDailyGain(0))
	assert.Equal(t, 24.0, ExpectedDailyGain(7))
	assert.Equal(t, 29.0, ExpectedDailyGain(8))
}

func TestProductivity(t *testing.T) {
	p := Productivity(50, Discipline(DisciplineInput{}))
	assert.Equal(t, 1.0, p.OutputMultiplier)
	assert.Equal(t, "Recovery", p.Zone)
	assert.InDelta(t, p.Index/2, p.FocusHours, 1e-9)

	p = Productivity(-200, Discipline(DisciplineInput{}))
	assert.Equal(t, 0.0, p.Index)

	p = Productivity(1000, Discipline(DisciplineInput{}))
	assert.Equal(t, "Peak", p.Zone) // 15·ln(11) ≈ 35.97
}

func TestEnergyHistory(t *testing.T) {
	days := []EnergyDay{
		{Day: "2026-03-10", Energy: 100},
		{Day: "2026-03-09", Energy: 90},
		{Day: "2026-03-08", Energy: 95},
	}
	out := EnergyHistory(days)
	require.Len(t, out, 3)
	assert.Equal(t, int64(0), out[0].Trend)
	assert.Equal(t, int64(-10), out[1].Trend)
	assert.Equal(t, int64(5), out[2].Trend)
	assert.Equal(t, int64(100), out[0].MovingAvg)
	assert.Equal(t, int64(95), out[1].MovingAvg)
	assert.Equal(t, int64(95), out[2].MovingAvg)

	neg := EnergyHistory([]EnergyDay{{Energy: -2}, {Energy: -3}})
	assert.Equal(t, int64(-2), neg[1].MovingAvg)
	pos := EnergyHistory([]EnergyDay{{Energy: 2}, {Energy: 3}})
	assert.Equal(t, int64(3), pos[1].MovingAvg)
}

func TestAnalyzeTriggers(t *testing.T) {
	a := AnalyzeTriggers(nil, nil)
	assert.Zero(t, a.Summary.TotalTriggers)
	assert.Nil(t, a.Summary.HighestRiskHour)
	assert.Nil(t, a.Summary.HighestRiskDay)
	assert.NotNil(t, a.TriggerEvents)
	assert.NotNil(t, a.UrgePatterns)

	a = AnalyzeTriggers([]TriggerEvent{
		{Hour: 23, Weekday: 5, Triggers: []string{"boredom", "stress"}},
		{Hour: 23, Weekday: 5, Triggers: []string{"stress"}},
		{Hour: 8, Weekday: 1, Triggers: nil},
	}, nil)
	require.Len(t, a.TriggerEvents, 2)
	assert.Equal(t, 1, a.TriggerEvents[0].Weekday)
	assert.Equal(t, []string{"boredom", "stress"}, a.TriggerEvents[1].CommonTriggers)
	assert.Equal(t, 3, a.Summary.TotalTriggers)
	require.NotNil(t, a.Summary.HighestRiskHour)
	assert.Equal(t, 23, *a.Summary.HighestRiskHour)
	assert.Equal(t, 5, *a.Summary.HighestRiskDay)
}

func TestClampMetric(t *testing.T) {
	assert.Nil(t, ClampMetric("mood", nil))

	v := 5.0
	assert.Nil(t, ClampMetric("mood", &v))
	assert.Equal(t, 5.0, v)

	v = 14
	verr := ClampMetric("urges", &v)
	require.NotNil(t, verr)
	assert.Equal(t, 10.0, v)
	assert.Equal(t, 14.0, verr.Value)
	assert.Contains(t, verr.Error(), "urges")

	v = -1
	require.NotNil(t, ClampMetric("stress", &v))
	assert.Equal(t, 0.0, v)
}

func TestFlow(t *testing.T) {
	empty := Flow(nil, 10, 50)
	assert.Equal(t, EnergyFlow{BaseDaily: 10, CurrentEnergy: 50}, empty)

	f := Flow([]FlowEntry{
		{Amount: 10, Daily: true},
		{Amount: 14, Daily: true},
		{Amount: 20},
		{Amount: -50},
		{Amount: -5},
	}, 10, 39)
	assert.Equal(t, int64(20), f.BaseDaily)
	assert.Equal(t, int64(4), f.StreakBonus)
	assert.Equal(t, int64(20), f.ActivityBonus)
	assert.Equal(t, int64(55), f.Losses)
	assert.Equal(t, int64(-11), f.Net)
	assert.Equal(t, int64(39), f.CurrentEnergy)
}
