package store

import (
	"context"
	"testing"
	"time"
)

// base is a fixed mid-afternoon reference time for store tests.
var base = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustUser(t *testing.T, db *DB, handle string, starting int64) *User {
	t.Helper()
	u, created, err := db.EnsureUser(context.Background(), handle, "", starting, base)
	if err != nil {
		t.Fatalf("EnsureUser(%q): %v", handle, err)
	}
	if !created {
		t.Fatalf("EnsureUser(%q): expected new user", handle)
	}
	return u
}

func day(offset int) string {
	return base.AddDate(0, 0, offset).Format(DayLayout)
}

func fp(v float64) *float64 { return &v }

func timeHours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}
