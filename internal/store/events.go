package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Qualifying event types.
const (
	EventRelapse        = "relapse"
	EventSexualActivity = "sexual_activity"
	EventAchievement    = "achievement"
	EventSOS            = "sos_trigger"
)

// IsStreakBreaking reports whether an event of type t ends the current streak.
func IsStreakBreaking(t string) bool {
	return t == EventRelapse || t == EventSexualActivity
}

// Event is a recorded qualifying event.
type Event struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	Type         string   `json:"event_type"`
	EnergyImpact int64    `json:"energy_impact"`
	Context      string   `json:"context"`
	Triggers     []string `json:"triggers"`
	Day          string   `json:"day"`
	Hour         int      `json:"hour"`
	Weekday      int      `json:"day_of_week"`
	CreatedAt    int64    `json:"created_at"`
}

// EventOutcome describes everything one qualifying event committed.
type EventOutcome struct {
	Event          Event         `json:"event"`
	PreviousStreak int           `json:"previous_streak"`
	Archived       *StreakRecord `json:"archived_streak,omitempty"` // nil unless a streak was closed
	Balance        int64         `json:"balance"`                   // cached balance after the event
}

// RecordQualifyingEvent records ev for ev.UserID at time at. Streak-breaking
// events archive and reset a nonzero streak; a nonzero EnergyImpact is
// appended to the ledger. The event row, streak change and ledger row
// commit as one unit.
func (db *DB) RecordQualifyingEvent(ctx context.Context, ev Event, at time.Time) (*EventOutcome, error) {
	ev.ID = uuid.NewString()
	ev.Day = at.Format(DayLayout)
	ev.Hour = at.Hour()
	ev.Weekday = int(at.Weekday())
	ev.CreatedAt = at.UnixMilli()
	if ev.Triggers == nil {
		ev.Triggers = []string{}
	}
	triggers, err := json.Marshal(ev.Triggers)
	if err != nil {
		return nil, fmt.Errorf("encode triggers: %w", err)
	}

	out := &EventOutcome{Event: ev}
	err = db.withUserTx(ctx, ev.UserID, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT current_streak, current_energy FROM users WHERE user_id = ?`, ev.UserID).
			Scan(&out.PreviousStreak, &out.Balance)
		if err == sql.ErrNoRows {
			return fmt.Errorf("user %s: %w", ev.UserID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read user: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (event_id, user_id, event_type, energy_impact, context, triggers, day, hour, weekday, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ev.ID, ev.UserID, ev.Type, ev.EnergyImpact, ev.Context, string(triggers), ev.Day, ev.Hour, ev.Weekday, ev.CreatedAt); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}

		if IsStreakBreaking(ev.Type) {
			out.Archived, err = resetStreakTx(ctx, tx, ev.UserID, ev.Day, ev.Type, at)
			if err != nil {
				return err
			}
		}

		if ev.EnergyImpact != 0 {
			out.Balance, err = appendTx(ctx, tx, ledgerEntry{
				userID:      ev.UserID,
				amount:      ev.EnergyImpact,
				source:      ev.Type,
				description: "Logged " + ev.Type,
				eventID:     ev.ID,
				at:          at,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record event: %w", err)
	}
	return out, nil
}

// StreakBreakingEvents returns the user's streak-breaking events on or after
// fromDay, oldest first.
func (db *DB) StreakBreakingEvents(ctx context.Context, userID, fromDay string) ([]Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT event_id, user_id, event_type, energy_impact, context, triggers, day, hour, weekday, created_at
		FROM events
		WHERE user_id = ? AND day >= ? AND event_type IN (?, ?)
		ORDER BY created_at, event_id
	`, userID, fromDay, EventRelapse, EventSexualActivity)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return scanEvents(rows)
}

// ListEvents returns the user's most recent events of any type, newest
// first, at most limit of them.
func (db *DB) ListEvents(ctx context.Context, userID string, limit int) ([]Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT event_id, user_id, event_type, energy_impact, context, triggers, day, hour, weekday, created_at
		FROM events
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e        Event
			triggers string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.EnergyImpact, &e.Context, &triggers, &e.Day, &e.Hour, &e.Weekday, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(triggers), &e.Triggers); err != nil {
			return nil, fmt.Errorf("decode triggers for %s: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
