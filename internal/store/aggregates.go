package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CheckIn is one set of self-reported metrics. Nil metrics were not reported.
type CheckIn struct {
	Energy     *float64
	Mood       *float64
	Urges      *float64
	Stress     *float64
	Focus      *float64
	Exercised  bool
	Meditated  bool
	ColdShower bool
	Triggers   []string
	RawMessage string
}

// DailyAggregate is the merged view of all of a user's check-ins for one day.
type DailyAggregate struct {
	UserID        string   `json:"user_id"`
	Day           string   `json:"day"`
	CheckInsCount int      `json:"check_ins_count"`
	AvgEnergy     *float64 `json:"avg_energy"`
	AvgMood       *float64 `json:"avg_mood"`
	AvgUrges      *float64 `json:"avg_urges"`
	AvgStress     *float64 `json:"avg_stress"`
	AvgFocus      *float64 `json:"avg_focus"`
	Exercised     bool     `json:"exercised"`
	Meditated     bool     `json:"meditated"`
	ColdShower    bool     `json:"cold_shower"`

	samples [5]int // energy, mood, urges, stress, focus
}

// UrgePattern is the mean urge and stress level reported in one hour-of-week slot.
type UrgePattern struct {
	Hour      int
	Weekday   int
	AvgUrges  float64
	AvgStress *float64
}

// MergeDailyLog records a raw check-in and folds it into the (user, day)
// aggregate: averages use the online mean, activity flags only ever turn on,
// and check_ins_count grows by one. Merging the same values twice is not a
// no-op; it pulls the averages toward them.
func (db *DB) MergeDailyLog(ctx context.Context, userID string, c CheckIn, at time.Time) (*DailyAggregate, error) {
	day := at.Format(DayLayout)
	if c.Triggers == nil {
		c.Triggers = []string{}
	}
	triggers, err := json.Marshal(c.Triggers)
	if err != nil {
		return nil, fmt.Errorf("encode triggers: %w", err)
	}

	var agg *DailyAggregate
	err = db.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE user_id = ?`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO daily_logs (user_id, day, hour, weekday, energy, mood, urges, stress, focus,
			                        exercised, meditated, cold_shower, triggers, raw_message, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, userID, day, at.Hour(), int(at.Weekday()), c.Energy, c.Mood, c.Urges, c.Stress, c.Focus,
			c.Exercised, c.Meditated, c.ColdShower, string(triggers), c.RawMessage, at.UnixMilli()); err != nil {
			return fmt.Errorf("insert daily log: %w", err)
		}

		existing, err := getAggregate(ctx, tx.QueryRowContext, userID, day)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("read aggregate: %w", err)
		}
		if err == sql.ErrNoRows {
			existing = &DailyAggregate{UserID: userID, Day: day}
		}
		agg = mergeCheckIn(existing, c)
		return saveAggregate(ctx, tx, agg, at)
	})
	if err != nil {
		return nil, fmt.Errorf("merge daily log: %w", err)
	}
	return agg, nil
}

// mergeCheckIn folds c into a copy of a.
func mergeCheckIn(a *DailyAggregate, c CheckIn) *DailyAggregate {
	out := *a
	out.AvgEnergy, out.samples[0] = onlineMean(a.AvgEnergy, a.samples[0], c.Energy)
	out.AvgMood, out.samples[1] = onlineMean(a.AvgMood, a.samples[1], c.Mood)
	out.AvgUrges, out.samples[2] = onlineMean(a.AvgUrges, a.samples[2], c.Urges)
	out.AvgStress, out.samples[3] = onlineMean(a.AvgStress, a.samples[3], c.Stress)
	out.AvgFocus, out.samples[4] = onlineMean(a.AvgFocus, a.samples[4], c.Focus)
	out.Exercised = a.Exercised || c.Exercised
	out.Meditated = a.Meditated || c.Meditated
	out.ColdShower = a.ColdShower || c.ColdShower
	out.CheckInsCount = a.CheckInsCount + 1
	return &out
}

// onlineMean folds v into a mean over n samples: (avg*n + v) / (n+1).
// A nil v leaves the mean unchanged.
func onlineMean(avg *float64, n int, v *float64) (*float64, int) {
	if v == nil {
		return avg, n
	}
	if avg == nil || n == 0 {
		m := *v
		return &m, 1
	}
	m := (*avg*float64(n) + *v) / float64(n+1)
	return &m, n + 1
}

func saveAggregate(ctx context.Context, tx *sql.Tx, a *DailyAggregate, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO daily_aggregates (user_id, day, check_ins_count,
		    avg_energy, avg_mood, avg_urges, avg_stress, avg_focus,
		    energy_n, mood_n, urges_n, stress_n, focus_n,
		    exercised, meditated, cold_shower, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, day) DO UPDATE SET
		    check_ins_count = excluded.check_ins_count,
		    avg_energy = excluded.avg_energy,
		    avg_mood = excluded.avg_mood,
		    avg_urges = excluded.avg_urges,
		    avg_stress = excluded.avg_stress,
		    avg_focus = excluded.avg_focus,
		    energy_n = excluded.energy_n,
		    mood_n = excluded.mood_n,
		    urges_n = excluded.urges_n,
		    stress_n = excluded.stress_n,
		    focus_n = excluded.focus_n,
		    exercised = excluded.exercised,
		    meditated = excluded.meditated,
		    cold_shower = excluded.cold_shower,
		    updated_at = excluded.updated_at
	`, a.UserID, a.Day, a.CheckInsCount,
		a.AvgEnergy, a.AvgMood, a.AvgUrges, a.AvgStress, a.AvgFocus,
		a.samples[0], a.samples[1], a.samples[2], a.samples[3], a.samples[4],
		a.Exercised, a.Meditated, a.ColdShower, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("save aggregate: %w", err)
	}
	return nil
}

type queryRowFunc func(ctx context.Context, query string, args ...any) *sql.Row

func getAggregate(ctx context.Context, queryRow queryRowFunc, userID, day string) (*DailyAggregate, error) {
	var (
		a                          DailyAggregate
		energy, mood, urges        sql.NullFloat64
		stress, focus              sql.NullFloat64
		exercised, meditated, cold bool
	)
	err := queryRow(ctx, `
		SELECT user_id, day, check_ins_count,
		       avg_energy, avg_mood, avg_urges, avg_stress, avg_focus,
		       energy_n, mood_n, urges_n, stress_n, focus_n,
		       exercised, meditated, cold_shower
		FROM daily_aggregates WHERE user_id = ? AND day = ?
	`, userID, day).Scan(&a.UserID, &a.Day, &a.CheckInsCount,
		&energy, &mood, &urges, &stress, &focus,
		&a.samples[0], &a.samples[1], &a.samples[2], &a.samples[3], &a.samples[4],
		&exercised, &meditated, &cold)
	if err != nil {
		return nil, err
	}
	a.AvgEnergy = floatPtr(energy)
	a.AvgMood = floatPtr(mood)
	a.AvgUrges = floatPtr(urges)
	a.AvgStress = floatPtr(stress)
	a.AvgFocus = floatPtr(focus)
	a.Exercised, a.Meditated, a.ColdShower = exercised, meditated, cold
	return &a, nil
}

// GetAggregate returns the user's aggregate for day, or an error wrapping ErrNotFound.
func (db *DB) GetAggregate(ctx context.Context, userID, day string) (*DailyAggregate, error) {
	a, err := getAggregate(ctx, db.QueryRowContext, userID, day)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("aggregate %s/%s: %w", userID, day, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get aggregate: %w", err)
	}
	return a, nil
}

// CheckInDays counts the days in [fromDay, toDay] on which the user checked in.
func (db *DB) CheckInDays(ctx context.Context, userID, fromDay, toDay string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM daily_aggregates
		WHERE user_id = ? AND day BETWEEN ? AND ? AND check_ins_count > 0
	`, userID, fromDay, toDay).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count check-in days: %w", err)
	}
	return n, nil
}

// ActiveDays counts the days in [fromDay, toDay] on which the user exercised or meditated.
func (db *DB) ActiveDays(ctx context.Context, userID, fromDay, toDay string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM daily_aggregates
		WHERE user_id = ? AND day BETWEEN ? AND ? AND (exercised = 1 OR meditated = 1)
	`, userID, fromDay, toDay).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active days: %w", err)
	}
	return n, nil
}

// AverageStress returns the mean reported stress over check-ins on or after
// fromDay, or nil when none reported stress.
func (db *DB) AverageStress(ctx context.Context, userID, fromDay string) (*float64, error) {
	var avg sql.NullFloat64
	err := db.QueryRowContext(ctx, `
		SELECT AVG(stress) FROM daily_logs
		WHERE user_id = ? AND day >= ? AND stress IS NOT NULL
	`, userID, fromDay).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("average stress: %w", err)
	}
	return floatPtr(avg), nil
}

// UrgePatterns groups check-ins on or after fromDay that reported urges by
// (hour, weekday).
func (db *DB) UrgePatterns(ctx context.Context, userID, fromDay string) ([]UrgePattern, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT hour, weekday, AVG(urges), AVG(stress)
		FROM daily_logs
		WHERE user_id = ? AND day >= ? AND urges IS NOT NULL
		GROUP BY hour, weekday
		ORDER BY weekday, hour
	`, userID, fromDay)
	if err != nil {
		return nil, fmt.Errorf("urge patterns: %w", err)
	}
	defer rows.Close()

	var out []UrgePattern
	for rows.Next() {
		var (
			p      UrgePattern
			stress sql.NullFloat64
		)
		if err := rows.Scan(&p.Hour, &p.Weekday, &p.AvgUrges, &stress); err != nil {
			return nil, fmt.Errorf("scan urge pattern: %w", err)
		}
		p.AvgStress = floatPtr(stress)
		out = append(out, p)
	}
	return out, rows.Err()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
