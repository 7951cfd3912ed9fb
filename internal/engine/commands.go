package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/lazypower/momentum/internal/metrics"
	"github.com/lazypower/momentum/internal/store"
)

// EnsureUser returns the user behind handle, creating it with the configured
// starting balance on first interaction.
func (e *Engine) EnsureUser(ctx context.Context, handle, name string) (*store.User, bool, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, false, invalidf("empty handle")
	}
	u, created, err := e.DB.EnsureUser(ctx, handle, name, e.energy.StartingBalance, e.Now())
	if err != nil {
		return nil, false, err
	}
	if created {
		log.Printf("engine: created user %s (%s)", u.ID, handle)
		if e.energy.StartingBalance != 0 {
			metrics.LedgerTransactions.WithLabelValues(store.SourceSignup).Inc()
		}
	}
	return u, created, nil
}

// AppendTransaction records a manual or external ledger entry and returns the
// new balance.
func (e *Engine) AppendTransaction(ctx context.Context, userID string, amount int64, source, description string) (int64, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = store.SourceManual
	}
	balance, err := e.DB.AppendTransaction(ctx, userID, amount, source, description, e.Now())
	if err != nil {
		return 0, err
	}
	metrics.LedgerTransactions.WithLabelValues(source).Inc()
	return balance, nil
}

// IncrementDaily advances the user's streak for day (today when empty).
func (e *Engine) IncrementDaily(ctx context.Context, userID, day string) (int, bool, error) {
	day, err := e.resolveDay(day)
	if err != nil {
		return 0, false, err
	}
	streak, applied, err := e.DB.IncrementDaily(ctx, userID, day)
	if err != nil {
		return 0, false, err
	}
	if applied {
		e.invalidate(userID)
		metrics.StreakIncrements.WithLabelValues("applied").Inc()
	} else {
		metrics.StreakIncrements.WithLabelValues("duplicate").Inc()
	}
	return streak, applied, nil
}

// RecordEvent records a qualifying event now. Its energy impact comes from
// configuration; streak-breaking types archive and reset the streak.
func (e *Engine) RecordEvent(ctx context.Context, userID, eventType, eventContext string, triggers []string) (*store.EventOutcome, error) {
	eventType = strings.TrimSpace(eventType)
	impact, ok := e.energy.Impacts[eventType]
	if !ok && !knownEventType(eventType) {
		return nil, invalidf("unknown event type %q", eventType)
	}

	out, err := e.DB.RecordQualifyingEvent(ctx, store.Event{
		UserID:       userID,
		Type:         eventType,
		EnergyImpact: impact,
		Context:      eventContext,
		Triggers:     cleanTriggers(triggers),
	}, e.Now())
	if err != nil {
		return nil, err
	}
	e.invalidate(userID)

	if out.Archived != nil {
		metrics.StreakResets.WithLabelValues(eventType).Inc()
		log.Printf("engine: %s ended %d-day streak for %s", eventType, out.Archived.LengthDays, userID)
	}
	if impact != 0 {
		metrics.LedgerTransactions.WithLabelValues(eventType).Inc()
	}
	return out, nil
}

// CheckIn clamps out-of-range metrics and merges the check-in into today's
// aggregate.
func (e *Engine) CheckIn(ctx context.Context, userID string, c store.CheckIn) (*store.DailyAggregate, error) {
	for _, verr := range clampCheckIn(&c) {
		log.Printf("engine: check-in for %s: %v", userID, verr)
		metrics.MetricClamps.WithLabelValues(verr.Field).Inc()
	}
	c.Triggers = cleanTriggers(c.Triggers)

	agg, err := e.DB.MergeDailyLog(ctx, userID, c, e.Now())
	if err != nil {
		return nil, err
	}
	e.invalidate(userID)
	metrics.CheckIns.Inc()
	return agg, nil
}

// CreateGoal adds an active goal for the user.
func (e *Engine) CreateGoal(ctx context.Context, userID, title string) (*store.Goal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalidf("empty goal title")
	}
	g, err := e.DB.CreateGoal(ctx, userID, title, e.Now())
	if err != nil {
		return nil, err
	}
	e.invalidate(userID)
	return g, nil
}

// SetGoalStatus moves a goal to active, completed or abandoned.
func (e *Engine) SetGoalStatus(ctx context.Context, goalID, status string) error {
	switch status {
	case store.GoalActive, store.GoalCompleted, store.GoalAbandoned:
	default:
		return invalidf("goal status %q", status)
	}
	g, err := e.DB.GetGoal(ctx, goalID)
	if err != nil {
		return err
	}
	if err := e.DB.SetGoalStatus(ctx, goalID, status, e.Now()); err != nil {
		return err
	}
	e.invalidate(g.UserID)
	return nil
}

// DeleteGoal removes a goal.
func (e *Engine) DeleteGoal(ctx context.Context, goalID string) error {
	g, err := e.DB.GetGoal(ctx, goalID)
	if err != nil {
		return err
	}
	if err := e.DB.DeleteGoal(ctx, goalID); err != nil {
		return err
	}
	e.invalidate(g.UserID)
	return nil
}

// DistributeResult summarizes one run of the nightly energy job.
type DistributeResult struct {
	Day      string `json:"day"`
	Users    int    `json:"users"`
	Credited int    `json:"credited"`
	Skipped  int    `json:"skipped"` // already credited for the day
	Failed   int    `json:"failed"`
	Total    int64  `json:"total_energy"`
}

// DistributeDaily runs the nightly streak increment and energy credit for
// every user. Users already credited for day are skipped, so the job can be
// re-run safely. Per-user failures are logged and counted.
func (e *Engine) DistributeDaily(ctx context.Context, day string) (*DistributeResult, error) {
	day, err := e.resolveDay(day)
	if err != nil {
		return nil, err
	}
	ids, err := e.DB.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	res := &DistributeResult{Day: day, Users: len(ids)}
	now := e.Now()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		credit, err := e.DB.CreditDaily(ctx, id, day, e.energy.DailyBase, e.energy.DailyStreakCap, now)
		if err != nil {
			log.Printf("engine: daily energy for %s: %v", id, err)
			res.Failed++
			continue
		}
		if !credit.Applied {
			res.Skipped++
			metrics.StreakIncrements.WithLabelValues("duplicate").Inc()
			continue
		}
		e.invalidate(id)
		res.Credited++
		res.Total += credit.Amount
		metrics.StreakIncrements.WithLabelValues("applied").Inc()
		metrics.LedgerTransactions.WithLabelValues(store.SourceDailyBaseline).Inc()
	}
	log.Printf("engine: daily energy %s: %d credited, %d skipped, %d failed", day, res.Credited, res.Skipped, res.Failed)
	return res, nil
}

func (e *Engine) resolveDay(day string) (string, error) {
	if day == "" {
		return e.Today(), nil
	}
	if _, err := time.Parse(store.DayLayout, day); err != nil {
		return "", invalidf("day %q: want YYYY-MM-DD", day)
	}
	return day, nil
}

func knownEventType(t string) bool {
	switch t {
	case store.EventRelapse, store.EventSexualActivity, store.EventAchievement, store.EventSOS:
		return true
	}
	return false
}
