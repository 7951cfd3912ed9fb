package store

import (
	"context"
	"errors"
	"testing"
)

func TestIncrementDailyIdempotentPerDay(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 0)

	streak, applied, err := db.IncrementDaily(ctx, u.ID, day(0))
	if err != nil {
		t.Fatalf("IncrementDaily: %v", err)
	}
	if streak != 1 || !applied {
		t.Errorf("first = (%d, %v), want (1, true)", streak, applied)
	}

	streak, applied, err = db.IncrementDaily(ctx, u.ID, day(0))
	if err != nil {
		t.Fatalf("IncrementDaily repeat: %v", err)
	}
	if streak != 1 || applied {
		t.Errorf("repeat = (%d, %v), want (1, false)", streak, applied)
	}

	streak, _, _ = db.IncrementDaily(ctx, u.ID, day(1))
	if streak != 2 {
		t.Errorf("next day streak = %d, want 2", streak)
	}

	got, _ := db.GetUser(ctx, u.ID)
	if got.MaxStreak != 2 {
		t.Errorf("MaxStreak = %d, want 2", got.MaxStreak)
	}

	if _, _, err := db.IncrementDaily(ctx, "nobody", day(0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestCreditDaily(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 50)

	for i := 0; i < 3; i++ {
		c, err := db.CreditDaily(ctx, u.ID, day(i), 10, 30, base.AddDate(0, 0, i))
		if err != nil {
			t.Fatalf("CreditDaily day %d: %v", i, err)
		}
		if !c.Applied || c.Streak != i+1 || c.Amount != int64(10+i) {
			t.Errorf("day %d credit = %+v, want streak %d amount %d", i, c, i+1, 10+i)
		}
	}

	c, err := db.CreditDaily(ctx, u.ID, day(2), 10, 30, base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("CreditDaily repeat: %v", err)
	}
	if c.Applied || c.Amount != 0 {
		t.Errorf("repeat credit = %+v, want not applied", c)
	}

	got, _ := db.GetUser(ctx, u.ID)
	if got.CurrentEnergy != 50+10+11+12 {
		t.Errorf("CurrentEnergy = %d, want 83", got.CurrentEnergy)
	}
	if err := db.VerifyBalance(ctx, u.ID); err != nil {
		t.Errorf("VerifyBalance: %v", err)
	}
}

func TestCreditDailyStreakCap(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 0)

	var last *DailyCredit
	for i := 0; i < 5; i++ {
		c, err := db.CreditDaily(ctx, u.ID, day(i), 10, 2, base)
		if err != nil {
			t.Fatalf("CreditDaily: %v", err)
		}
		last = c
	}
	if last.Amount != 12 {
		t.Errorf("capped amount = %d, want 12", last.Amount)
	}
}
