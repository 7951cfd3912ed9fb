package engine

import (
	"context"
	"log"

	"github.com/lazypower/momentum/internal/analytics"
	"github.com/lazypower/momentum/internal/store"
)

// Trailing windows, in calendar days including today.
const (
	disciplineWindow = analytics.WindowDays
	stressWindow     = 3
	ledgerWindow     = 30
	triggerWindow    = 90
	flowWindow       = 7
)

// Event listing limits.
const (
	DefaultEventLimit = 50
	MaxEventLimit     = 200
)

// Queries below fail only when the user cannot be loaded (store.ErrNotFound
// for unknown users). Any later storage failure is logged and the affected
// input falls back to its empty value.

// Score returns the user's discipline metrics, from the latest snapshot when
// the user is in it.
func (e *Engine) Score(ctx context.Context, userID string) (analytics.DisciplineMetrics, error) {
	if snap := e.snapshot.Load(); snap != nil {
		if m, ok := snap.Discipline[userID]; ok {
			return m, nil
		}
	}
	u, err := e.DB.GetUser(ctx, userID)
	if err != nil {
		return analytics.Discipline(analytics.DisciplineInput{}), err
	}
	return e.discipline(ctx, u), nil
}

// discipline computes the score live from the store.
func (e *Engine) discipline(ctx context.Context, u *store.User) analytics.DisciplineMetrics {
	in := analytics.DisciplineInput{CurrentStreak: u.CurrentStreak}
	from, to := e.daysAgo(disciplineWindow-1), e.Today()

	var err error
	if in.CheckInDays, err = e.DB.CheckInDays(ctx, u.ID, from, to); err != nil {
		log.Printf("engine: discipline for %s: %v", u.ID, err)
	}
	if in.ActiveDays, err = e.DB.ActiveDays(ctx, u.ID, from, to); err != nil {
		log.Printf("engine: discipline for %s: %v", u.ID, err)
	}
	if in.CompletedGoals, in.TotalGoals, err = e.DB.GoalCounts(ctx, u.ID); err != nil {
		log.Printf("engine: discipline for %s: %v", u.ID, err)
	}
	return analytics.Discipline(in)
}

// Predict estimates the user's relapse risk right now.
func (e *Engine) Predict(ctx context.Context, userID string) (analytics.RiskAssessment, error) {
	u, err := e.DB.GetUser(ctx, userID)
	if err != nil {
		return analytics.RiskAssessment{}, err
	}
	stress, err := e.DB.AverageStress(ctx, userID, e.daysAgo(stressWindow-1))
	if err != nil {
		log.Printf("engine: risk for %s: %v", userID, err)
		stress = nil
	}
	return analytics.PredictRisk(analytics.RiskInput{
		Now:       e.Now(),
		Streak:    u.CurrentStreak,
		AvgStress: stress,
	}), nil
}

// Curve fits the survival model to the user's archived streaks.
func (e *Engine) Curve(ctx context.Context, userID string) (analytics.SurvivalCurve, error) {
	u, err := e.DB.GetUser(ctx, userID)
	if err != nil {
		return analytics.SurvivalCurve{}, err
	}
	recs, err := e.DB.StreakHistory(ctx, userID)
	if err != nil {
		log.Printf("engine: survival for %s: %v", userID, err)
		recs = nil
	}
	lengths := make([]int, len(recs))
	for i, r := range recs {
		lengths[i] = r.LengthDays
	}
	return analytics.Survival(analytics.SurvivalInput{
		Lengths:       lengths,
		CurrentStreak: u.CurrentStreak,
		MaxStreak:     u.MaxStreak,
	}), nil
}

// Classify returns the recovery phase for the user's current streak.
func (e *Engine) Classify(ctx context.Context, userID string) (analytics.RecoveryPhase, error) {
	u, err := e.DB.GetUser(ctx, userID)
	if err != nil {
		return analytics.RecoveryPhase{}, err
	}
	return analytics.Classify(u.CurrentStreak), nil
}

// Forecast projects the user's balance from the trailing 30 days of ledger activity.
func (e *Engine) Forecast(ctx context.Context, userID string) (analytics.ForecastResult, error) {
	u, err := e.DB.GetUser(ctx, userID)
	if err != nil {
		return analytics.InsufficientForecast(), err
	}
	days, err := e.DB.DailyBalances(ctx, userID, e.daysAgo(ledgerWindow-1))
	if err != nil {
		log.Printf("engine: forecast for %s: %v", userID, err)
		return analytics.InsufficientForecast(), nil
	}
	balances := make([]float64, len(days))
	for i, d := range days {
		balances[i] = float64(d.Balance)
	}
	return analytics.Forecast(balances, u.CurrentStreak), nil
}

// Productivity derives the productivity index from the user's balance and
// discipline score.
func (e *Engine) Productivity(ctx context.Context, userID string) (analytics.ProductivityIndex, error) {
	u, err := e.DB.GetUser(ctx, userID)
	if err != nil {
		return analytics.ProductivityIndex{}, err
	}
	d, err := e.Score(ctx, userID)
	if err != nil {
		return analytics.ProductivityIndex{}, err
	}
	return analytics.Productivity(u.CurrentEnergy, d), nil
}

// EnergyHistory returns the trailing 30 days of ledger activity, newest first.
func (e *Engine) EnergyHistory(ctx context.Context, userID string) ([]analytics.EnergyDay, error) {
	if _, err := e.DB.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	days, err := e.DB.DailyBalances(ctx, userID, e.daysAgo(ledgerWindow-1))
	if err != nil {
		log.Printf("engine: energy history for %s: %v", userID, err)
		days = nil
	}
	rows := make([]analytics.EnergyDay, 0, len(days))
	for i := len(days) - 1; i >= 0; i-- {
		d := days[i]
		rows = append(rows, analytics.EnergyDay{
			Day:    d.Day,
			Energy: d.Balance,
			Gains:  d.Gains,
			Losses: d.Losses,
		})
	}
	return analytics.EnergyHistory(rows), nil
}

// TriggerAnalysis maps when the user's streaks broke over the trailing 90 days.
func (e *Engine) TriggerAnalysis(ctx context.Context, userID string) (analytics.TriggerAnalysis, error) {
	if _, err := e.DB.GetUser(ctx, userID); err != nil {
		return analytics.TriggerAnalysis{}, err
	}
	from := e.daysAgo(triggerWindow - 1)

	events, err := e.DB.StreakBreakingEvents(ctx, userID, from)
	if err != nil {
		log.Printf("engine: trigger analysis for %s: %v", userID, err)
		events = nil
	}
	urges, err := e.DB.UrgePatterns(ctx, userID, from)
	if err != nil {
		log.Printf("engine: trigger analysis for %s: %v", userID, err)
		urges = nil
	}

	tev := make([]analytics.TriggerEvent, len(events))
	for i, ev := range events {
		tev[i] = analytics.TriggerEvent{Hour: ev.Hour, Weekday: ev.Weekday, Triggers: ev.Triggers}
	}
	slots := make([]analytics.UrgeSlot, len(urges))
	for i, p := range urges {
		slots[i] = analytics.UrgeSlot{Hour: p.Hour, Weekday: p.Weekday, AvgUrges: p.AvgUrges, AvgStress: p.AvgStress}
	}
	return analytics.AnalyzeTriggers(tev, slots), nil
}

// EnergyFlow breaks the trailing 7 days of ledger activity into base credit,
// streak bonus, activity bonus and losses. Signup credits are left out.
func (e *Engine) EnergyFlow(ctx context.Context, userID string) (analytics.EnergyFlow, error) {
	u, err := e.DB.GetUser(ctx, userID)
	if err != nil {
		return analytics.EnergyFlow{}, err
	}
	txs, err := e.DB.ListTransactions(ctx, userID, e.daysAgo(flowWindow-1))
	if err != nil {
		log.Printf("engine: energy flow for %s: %v", userID, err)
		txs = nil
	}
	entries := make([]analytics.FlowEntry, 0, len(txs))
	for _, t := range txs {
		if t.Source == store.SourceSignup {
			continue
		}
		entries = append(entries, analytics.FlowEntry{Amount: t.Amount, Daily: t.Source == store.SourceDailyBaseline})
	}
	return analytics.Flow(entries, e.energy.DailyBase, u.CurrentEnergy), nil
}

// Transactions returns the user's ledger on or after fromDay, oldest first.
// An empty fromDay returns the full ledger.
func (e *Engine) Transactions(ctx context.Context, userID, fromDay string) ([]store.Transaction, error) {
	if fromDay != "" {
		if _, err := e.resolveDay(fromDay); err != nil {
			return nil, err
		}
	}
	if _, err := e.DB.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	txs, err := e.DB.ListTransactions(ctx, userID, fromDay)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []store.Transaction{}
	}
	return txs, nil
}

// Events returns the user's most recent events, newest first. A
// non-positive limit means DefaultEventLimit; limits above MaxEventLimit
// are capped.
func (e *Engine) Events(ctx context.Context, userID string, limit int) ([]store.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	limit = min(limit, MaxEventLimit)
	if _, err := e.DB.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.DB.ListEvents(ctx, userID, limit)
}

// Goals returns the user's goals with status, or all of them when status is
// empty.
func (e *Engine) Goals(ctx context.Context, userID, status string) ([]store.Goal, error) {
	switch status {
	case "", store.GoalActive, store.GoalCompleted, store.GoalAbandoned:
	default:
		return nil, invalidf("goal status %q", status)
	}
	if _, err := e.DB.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.DB.ListGoals(ctx, userID, status)
}

// UserStats bundles every analytic for one user.
type UserStats struct {
	UserID        string                      `json:"user_id"`
	Handle        string                      `json:"handle"`
	CurrentStreak int                         `json:"current_streak"`
	MaxStreak     int                         `json:"max_streak"`
	Energy        int64                       `json:"energy"`
	Discipline    analytics.DisciplineMetrics `json:"discipline"`
	Risk          analytics.RiskAssessment    `json:"risk"`
	Survival      analytics.SurvivalCurve     `json:"survival"`
	Recovery      analytics.RecoveryPhase     `json:"recovery"`
	Forecast      analytics.ForecastResult    `json:"forecast"`
	Productivity  analytics.ProductivityIndex `json:"productivity"`
	Flow          analytics.EnergyFlow        `json:"energy_flow"`
}

// Stats computes every analytic for the user.
func (e *Engine) Stats(ctx context.Context, userID string) (*UserStats, error) {
	u, err := e.DB.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s := &UserStats{
		UserID:        u.ID,
		Handle:        u.Handle,
		CurrentStreak: u.CurrentStreak,
		MaxStreak:     u.MaxStreak,
		Energy:        u.CurrentEnergy,
	}
	if s.Discipline, err = e.Score(ctx, userID); err != nil {
		return nil, err
	}
	if s.Risk, err = e.Predict(ctx, userID); err != nil {
		return nil, err
	}
	if s.Survival, err = e.Curve(ctx, userID); err != nil {
		return nil, err
	}
	if s.Recovery, err = e.Classify(ctx, userID); err != nil {
		return nil, err
	}
	if s.Forecast, err = e.Forecast(ctx, userID); err != nil {
		return nil, err
	}
	if s.Flow, err = e.EnergyFlow(ctx, userID); err != nil {
		return nil, err
	}
	s.Productivity = analytics.Productivity(u.CurrentEnergy, s.Discipline)
	return s, nil
}
