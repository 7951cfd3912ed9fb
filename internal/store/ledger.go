package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Ledger sources.
const (
	SourceSignup        = "signup"
	SourceDailyBaseline = "daily_baseline"
	SourceEvent         = "event_log"
	SourceManual        = "manual"
)

// Transaction is one immutable energy ledger row.
type Transaction struct {
	ID             int64  `json:"id"`
	UserID         string `json:"user_id"`
	Amount         int64  `json:"amount"`
	Source         string `json:"source"`
	Description    string `json:"description"`
	RunningBalance int64  `json:"running_balance"`
	RelatedEventID string `json:"related_event_id"`
	Day            string `json:"day"`
	CreatedAt      int64  `json:"created_at"`
}

// DailyBalance summarizes one calendar day of ledger activity.
type DailyBalance struct {
	Day     string
	Balance int64 // running balance after the day's last transaction
	Gains   int64
	Losses  int64 // absolute value of the day's negative amounts
}

type ledgerEntry struct {
	userID      string
	amount      int64
	source      string
	description string
	eventID     string
	at          time.Time
}

// AppendTransaction appends amount to the user's ledger and returns the new
// balance. The ledger row and the cached balance commit together or not at all.
// Balances are unbounded and may go negative.
func (db *DB) AppendTransaction(ctx context.Context, userID string, amount int64, source, description string, at time.Time) (int64, error) {
	var balance int64
	err := db.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		var err error
		balance, err = appendTx(ctx, tx, ledgerEntry{
			userID:      userID,
			amount:      amount,
			source:      source,
			description: description,
			at:          at,
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("append transaction: %w", err)
	}
	return balance, nil
}

// appendTx is the read-compute-write core of the ledger. Callers hold the
// user's lock.
func appendTx(ctx context.Context, tx *sql.Tx, e ledgerEntry) (int64, error) {
	var current int64
	err := tx.QueryRowContext(ctx, `SELECT current_energy FROM users WHERE user_id = ?`, e.userID).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("user %s: %w", e.userID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}

	balance := current + e.amount
	eventID := sql.NullString{String: e.eventID, Valid: e.eventID != ""}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO energy_transactions (user_id, amount, source, description, running_balance, related_event_id, day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.userID, e.amount, e.source, e.description, balance, eventID, e.at.Format(DayLayout), e.at.UnixMilli()); err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET current_energy = ? WHERE user_id = ?`, balance, e.userID); err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}
	return balance, nil
}

// ListTransactions returns the user's transactions on or after fromDay, oldest first.
// An empty fromDay returns the full ledger.
func (db *DB) ListTransactions(ctx context.Context, userID, fromDay string) ([]Transaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, amount, source, description, running_balance, COALESCE(related_event_id, ''), day, created_at
		FROM energy_transactions
		WHERE user_id = ? AND day >= ?
		ORDER BY id
	`, userID, fromDay)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Source, &t.Description, &t.RunningBalance, &t.RelatedEventID, &t.Day, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// DailyBalances folds the user's ledger from fromDay onward into one row per
// calendar day with activity, oldest first.
func (db *DB) DailyBalances(ctx context.Context, userID, fromDay string) ([]DailyBalance, error) {
	txs, err := db.ListTransactions(ctx, userID, fromDay)
	if err != nil {
		return nil, err
	}

	var days []DailyBalance
	for _, t := range txs {
		if len(days) == 0 || days[len(days)-1].Day != t.Day {
			days = append(days, DailyBalance{Day: t.Day})
		}
		d := &days[len(days)-1]
		d.Balance = t.RunningBalance
		if t.Amount > 0 {
			d.Gains += t.Amount
		} else {
			d.Losses -= t.Amount
		}
	}
	return days, nil
}

// VerifyBalance replays the user's ledger and compares it with the cached
// balance. A mismatch is returned as *ConsistencyError.
func (db *DB) VerifyBalance(ctx context.Context, userID string) error {
	mu := db.lock("user:" + userID)
	mu.Lock()
	defer mu.Unlock()

	u, err := db.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	var (
		count  int
		sum    int64
		latest sql.NullInt64
	)
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0),
		       (SELECT running_balance FROM energy_transactions WHERE user_id = ? ORDER BY id DESC LIMIT 1)
		FROM energy_transactions WHERE user_id = ?
	`, userID, userID).Scan(&count, &sum, &latest)
	if err != nil {
		return fmt.Errorf("replay ledger: %w", err)
	}

	running := latest.Int64 // zero when the ledger is empty
	if u.CurrentEnergy != sum || running != sum {
		return &ConsistencyError{
			UserID:         userID,
			Cached:         u.CurrentEnergy,
			Replayed:       sum,
			LatestRunning:  running,
			TransactionCnt: count,
		}
	}
	return nil
}
