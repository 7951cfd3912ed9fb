package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StreakRecord is an archived, closed streak.
type StreakRecord struct {
	ID         int64  `json:"id"`
	UserID     string `json:"user_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	LengthDays int    `json:"length_days"`
	EndReason  string `json:"end_reason"`
	CreatedAt  int64  `json:"created_at"`
}

// DailyCredit is the result of CreditDaily.
type DailyCredit struct {
	Applied bool
	Streak  int
	Amount  int64
	Balance int64
}

// IncrementDaily advances the user's streak by one for day. The per-day
// marker makes repeated calls for the same day no-ops (applied=false), so
// at-least-once schedulers are safe.
func (db *DB) IncrementDaily(ctx context.Context, userID, day string) (streak int, applied bool, err error) {
	err = db.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		streak, applied, err = incrementTx(ctx, tx, userID, day)
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("increment streak: %w", err)
	}
	return streak, applied, nil
}

// CreditDaily is the nightly job for one user: it increments the streak for
// day and credits base + min(previous streak, streakCap) energy, atomically.
// A day that was already incremented credits nothing.
func (db *DB) CreditDaily(ctx context.Context, userID, day string, base, streakCap int64, at time.Time) (*DailyCredit, error) {
	var credit DailyCredit
	err := db.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		streak, applied, err := incrementTx(ctx, tx, userID, day)
		if err != nil {
			return err
		}
		credit.Streak = streak
		credit.Applied = applied
		if !applied {
			return nil
		}

		credit.Amount = base + min(int64(streak-1), streakCap)
		credit.Balance, err = appendTx(ctx, tx, ledgerEntry{
			userID:      userID,
			amount:      credit.Amount,
			source:      SourceDailyBaseline,
			description: "Daily energy",
			at:          at,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("credit daily: %w", err)
	}
	return &credit, nil
}

// incrementTx returns the streak after the call and whether it changed.
func incrementTx(ctx context.Context, tx *sql.Tx, userID, day string) (int, bool, error) {
	var streak int
	err := tx.QueryRowContext(ctx, `SELECT current_streak FROM users WHERE user_id = ?`, userID).Scan(&streak)
	if err == sql.ErrNoRows {
		return 0, false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return 0, false, fmt.Errorf("read streak: %w", err)
	}

	res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO streak_days (user_id, day) VALUES (?, ?)`, userID, day)
	if err != nil {
		return 0, false, fmt.Errorf("mark day: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return streak, false, nil
	}

	// max_streak is a watermark: only ever raised alongside current_streak.
	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET current_streak = current_streak + 1,
		    max_streak = MAX(max_streak, current_streak + 1)
		WHERE user_id = ?
	`, userID); err != nil {
		return 0, false, fmt.Errorf("update streak: %w", err)
	}
	return streak + 1, true, nil
}

// resetStreakTx archives a nonzero streak ending on day and zeroes it.
// It returns nil when there was nothing to archive.
func resetStreakTx(ctx context.Context, tx *sql.Tx, userID, day, reason string, at time.Time) (*StreakRecord, error) {
	var streak int
	err := tx.QueryRowContext(ctx, `SELECT current_streak FROM users WHERE user_id = ?`, userID).Scan(&streak)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read streak: %w", err)
	}
	if streak <= 0 {
		return nil, nil
	}

	end, err := time.Parse(DayLayout, day)
	if err != nil {
		return nil, fmt.Errorf("parse day %q: %w", day, err)
	}
	rec := &StreakRecord{
		UserID:     userID,
		StartDate:  end.AddDate(0, 0, -streak).Format(DayLayout),
		EndDate:    day,
		LengthDays: streak,
		EndReason:  reason,
		CreatedAt:  at.UnixMilli(),
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO streak_history (user_id, start_date, end_date, length_days, end_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.UserID, rec.StartDate, rec.EndDate, rec.LengthDays, rec.EndReason, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("archive streak: %w", err)
	}
	rec.ID, _ = res.LastInsertId()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET current_streak = 0 WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("reset streak: %w", err)
	}
	return rec, nil
}

// StreakHistory returns the user's archived streaks, oldest first.
func (db *DB) StreakHistory(ctx context.Context, userID string) ([]StreakRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, start_date, end_date, length_days, end_reason, created_at
		FROM streak_history WHERE user_id = ? ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("streak history: %w", err)
	}
	defer rows.Close()

	var recs []StreakRecord
	for rows.Next() {
		var r StreakRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.StartDate, &r.EndDate, &r.LengthDays, &r.EndReason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan streak record: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
