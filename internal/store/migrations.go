package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "users: identity, streak counters, cached energy balance",
		SQL: `
CREATE TABLE users (
    user_id        TEXT PRIMARY KEY,
    handle         TEXT NOT NULL UNIQUE,
    name           TEXT NOT NULL DEFAULT '',
    current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    max_streak     INTEGER NOT NULL DEFAULT 0 CHECK (max_streak >= 0),

    -- Materialized sum of energy_transactions.amount; see VerifyBalance
    current_energy INTEGER NOT NULL DEFAULT 0,

    created_at     INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "energy_transactions: append-only energy ledger",
		SQL: `
CREATE TABLE energy_transactions (
    id               INTEGER PRIMARY KEY,
    user_id          TEXT NOT NULL,
    amount           INTEGER NOT NULL,
    source           TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    running_balance  INTEGER NOT NULL,
    related_event_id TEXT,
    day              TEXT NOT NULL,
    created_at       INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id)
);

CREATE INDEX idx_tx_user_day ON energy_transactions(user_id, day);
`,
	},
	{
		Version:     3,
		Description: "streaks: closed streak history and per-day increment markers",
		SQL: `
CREATE TABLE streak_history (
    id          INTEGER PRIMARY KEY,
    user_id     TEXT NOT NULL,
    start_date  TEXT NOT NULL,
    end_date    TEXT NOT NULL,
    length_days INTEGER NOT NULL CHECK (length_days > 0),
    end_reason  TEXT NOT NULL,
    created_at  INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id)
);

CREATE INDEX idx_streak_history_user ON streak_history(user_id);

CREATE TABLE streak_days (
    user_id TEXT NOT NULL,
    day     TEXT NOT NULL,
    PRIMARY KEY (user_id, day),
    FOREIGN KEY (user_id) REFERENCES users(user_id)
);
`,
	},
	{
		Version:     4,
		Description: "check-ins: raw daily logs and merged daily aggregates",
		SQL: `
CREATE TABLE daily_logs (
    id          INTEGER PRIMARY KEY,
    user_id     TEXT NOT NULL,
    day         TEXT NOT NULL,
    hour        INTEGER NOT NULL,
    weekday     INTEGER NOT NULL,
    energy      REAL,
    mood        REAL,
    urges       REAL,
    stress      REAL,
    focus       REAL,
    exercised   INTEGER NOT NULL DEFAULT 0,
    meditated   INTEGER NOT NULL DEFAULT 0,
    cold_shower INTEGER NOT NULL DEFAULT 0,
    triggers    TEXT NOT NULL DEFAULT '[]',
    raw_message TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id)
);

CREATE INDEX idx_logs_user_day ON daily_logs(user_id, day);

CREATE TABLE daily_aggregates (
    user_id         TEXT NOT NULL,
    day             TEXT NOT NULL,
    check_ins_count INTEGER NOT NULL DEFAULT 0,

    -- Online means; *_n counts the samples folded into each mean
    avg_energy      REAL,
    avg_mood        REAL,
    avg_urges       REAL,
    avg_stress      REAL,
    avg_focus       REAL,
    energy_n        INTEGER NOT NULL DEFAULT 0,
    mood_n          INTEGER NOT NULL DEFAULT 0,
    urges_n         INTEGER NOT NULL DEFAULT 0,
    stress_n        INTEGER NOT NULL DEFAULT 0,
    focus_n         INTEGER NOT NULL DEFAULT 0,

    exercised       INTEGER NOT NULL DEFAULT 0,
    meditated       INTEGER NOT NULL DEFAULT 0,
    cold_shower     INTEGER NOT NULL DEFAULT 0,
    updated_at      INTEGER NOT NULL,

    PRIMARY KEY (user_id, day),
    FOREIGN KEY (user_id) REFERENCES users(user_id)
);
`,
	},
	{
		Version:     5,
		Description: "events and goals",
		SQL: `
CREATE TABLE events (
    event_id      TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    event_type    TEXT NOT NULL,
    energy_impact INTEGER NOT NULL DEFAULT 0,
    context       TEXT NOT NULL DEFAULT '',
    triggers      TEXT NOT NULL DEFAULT '[]',
    day           TEXT NOT NULL,
    hour          INTEGER NOT NULL,
    weekday       INTEGER NOT NULL,
    created_at    INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id)
);

CREATE INDEX idx_events_user_day ON events(user_id, day);

CREATE TABLE goals (
    goal_id    TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    title      TEXT NOT NULL,
    status     TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'abandoned')),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    FOREIGN KEY (user_id) REFERENCES users(user_id)
);

CREATE INDEX idx_goals_user ON goals(user_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
