package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Goal statuses.
const (
	GoalActive    = "active"
	GoalCompleted = "completed"
	GoalAbandoned = "abandoned"
)

// Goal is a user goal tracked for goal-progress scoring.
type Goal struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// CreateGoal adds an active goal for the user.
func (db *DB) CreateGoal(ctx context.Context, userID, title string, at time.Time) (*Goal, error) {
	if _, err := db.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	g := &Goal{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Status:    GoalActive,
		CreatedAt: at.UnixMilli(),
		UpdatedAt: at.UnixMilli(),
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO goals (goal_id, user_id, title, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.ID, g.UserID, g.Title, g.Status, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

const goalColumns = `goal_id, user_id, title, status, created_at, updated_at`

// GetGoal returns a goal by ID, or an error wrapping ErrNotFound.
func (db *DB) GetGoal(ctx context.Context, goalID string) (*Goal, error) {
	var g Goal
	err := db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE goal_id = ?`, goalID).
		Scan(&g.ID, &g.UserID, &g.Title, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return &g, nil
}

// ListGoals returns the user's goals, oldest first. An empty status lists
// every goal.
func (db *DB) ListGoals(ctx context.Context, userID, status string) ([]Goal, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE user_id = ? AND (? = '' OR status = ?)
		ORDER BY created_at, rowid
	`, userID, status, status)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []Goal{}
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// DeleteGoal removes a goal. Unknown goals wrap ErrNotFound.
func (db *DB) DeleteGoal(ctx context.Context, goalID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM goals WHERE goal_id = ?`, goalID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}
	return nil
}

// SetGoalStatus changes a goal's status. Unknown goals wrap ErrNotFound.
func (db *DB) SetGoalStatus(ctx context.Context, goalID, status string, at time.Time) error {
	result, err := db.ExecContext(ctx, `
		UPDATE goals SET status = ?, updated_at = ? WHERE goal_id = ?
	`, status, at.UnixMilli(), goalID)
	if err != nil {
		return fmt.Errorf("set goal status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}
	return nil
}

// GoalCounts returns how many of the user's goals are completed, and the total.
func (db *DB) GoalCounts(ctx context.Context, userID string) (completed, total int, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0), COUNT(*)
		FROM goals WHERE user_id = ?
	`, userID).Scan(&completed, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("count goals: %w", err)
	}
	return completed, total, nil
}
