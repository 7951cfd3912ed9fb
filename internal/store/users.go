package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is a tracked person and their cached streak and energy state.
type User struct {
	ID            string `json:"id"`
	Handle        string `json:"handle"`
	Name          string `json:"name"`
	CurrentStreak int    `json:"current_streak"`
	MaxStreak     int    `json:"max_streak"`
	CurrentEnergy int64  `json:"current_energy"`
	CreatedAt     int64  `json:"created_at"`
}

const userColumns = `user_id, handle, name, current_streak, max_streak, current_energy, created_at`

// EnsureUser returns the user registered under handle, creating it on first
// interaction. A new user is credited startingBalance through a "signup"
// ledger row so the cached balance always equals the ledger sum.
// The bool result reports whether the user was created.
func (db *DB) EnsureUser(ctx context.Context, handle, name string, startingBalance int64, at time.Time) (*User, bool, error) {
	mu := db.lock("handle:" + handle)
	mu.Lock()
	defer mu.Unlock()

	u, err := db.GetUserByHandle(ctx, handle)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	u = &User{
		ID:        uuid.NewString(),
		Handle:    handle,
		Name:      name,
		CreatedAt: at.UnixMilli(),
	}
	err = db.withUserTx(ctx, u.ID, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (user_id, handle, name, created_at)
			VALUES (?, ?, ?, ?)
		`, u.ID, u.Handle, u.Name, u.CreatedAt); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if startingBalance == 0 {
			return nil
		}
		balance, err := appendTx(ctx, tx, ledgerEntry{
			userID:      u.ID,
			amount:      startingBalance,
			source:      SourceSignup,
			description: "Starting energy",
			at:          at,
		})
		u.CurrentEnergy = balance
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return u, true, nil
}

// GetUser returns a user by ID, or an error wrapping ErrNotFound.
func (db *DB) GetUser(ctx context.Context, userID string) (*User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByHandle returns a user by external handle, or an error wrapping ErrNotFound.
func (db *DB) GetUserByHandle(ctx context.Context, handle string) (*User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE handle = ?`, handle)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user handle %q: %w", handle, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by handle: %w", err)
	}
	return u, nil
}

// ListUserIDs returns every user ID in creation order.
func (db *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY created_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Handle, &u.Name, &u.CurrentStreak, &u.MaxStreak, &u.CurrentEnergy, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
