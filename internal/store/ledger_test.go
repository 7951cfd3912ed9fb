package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestEnsureUserOpeningBalance(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 50)

	if u.CurrentEnergy != 50 {
		t.Errorf("CurrentEnergy = %d, want 50", u.CurrentEnergy)
	}
	txs, err := db.ListTransactions(ctx, u.ID, "")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Source != SourceSignup || txs[0].RunningBalance != 50 {
		t.Errorf("opening ledger = %+v, want one signup row of 50", txs)
	}

	again, created, err := db.EnsureUser(ctx, "alice", "", 50, base)
	if err != nil {
		t.Fatalf("EnsureUser again: %v", err)
	}
	if created || again.ID != u.ID {
		t.Errorf("EnsureUser again: created=%v id=%s, want existing %s", created, again.ID, u.ID)
	}
	if err := db.VerifyBalance(ctx, u.ID); err != nil {
		t.Errorf("VerifyBalance: %v", err)
	}
}

func TestAppendTransactionRunningBalance(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 0)

	amounts := []int64{20, -50, 10, -5}
	want := []int64{20, -30, -20, -25}
	for i, a := range amounts {
		bal, err := db.AppendTransaction(ctx, u.ID, a, SourceManual, "", base)
		if err != nil {
			t.Fatalf("AppendTransaction(%d): %v", a, err)
		}
		if bal != want[i] {
			t.Errorf("balance after %d = %d, want %d", a, bal, want[i])
		}
	}

	got, err := db.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.CurrentEnergy != -25 {
		t.Errorf("CurrentEnergy = %d, want -25", got.CurrentEnergy)
	}
	if err := db.VerifyBalance(ctx, u.ID); err != nil {
		t.Errorf("VerifyBalance: %v", err)
	}
}

func TestAppendTransactionUnknownUser(t *testing.T) {
	db := testDB(t)

	_, err := db.AppendTransaction(context.Background(), "nobody", 10, SourceManual, "", base)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM energy_transactions`).Scan(&n)
	if n != 0 {
		t.Errorf("transactions = %d, want 0", n)
	}
}

func TestConcurrentAppendsKeepInvariant(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := int64(i%5) - 2
			if _, err := db.AppendTransaction(ctx, u.ID, amount, SourceManual, "", base); err != nil {
				t.Errorf("AppendTransaction: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if err := db.VerifyBalance(ctx, u.ID); err != nil {
		t.Fatalf("VerifyBalance: %v", err)
	}

	txs, err := db.ListTransactions(ctx, u.ID, "")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 21 {
		t.Fatalf("transactions = %d, want 21", len(txs))
	}
	running := int64(0)
	for _, tx := range txs {
		running += tx.Amount
		if tx.RunningBalance != running {
			t.Errorf("tx %d running_balance = %d, want %d", tx.ID, tx.RunningBalance, running)
		}
	}
}

func TestVerifyBalanceDetectsTampering(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 50)

	if _, err := db.Exec(`UPDATE users SET current_energy = 75 WHERE user_id = ?`, u.ID); err != nil {
		t.Fatal(err)
	}

	err := db.VerifyBalance(ctx, u.ID)
	var ce *ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConsistencyError", err)
	}
	if ce.Cached != 75 || ce.Replayed != 50 || ce.LatestRunning != 50 || ce.TransactionCnt != 1 {
		t.Errorf("ConsistencyError = %+v", ce)
	}

	if err := db.VerifyBalance(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestDailyBalances(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 50)

	db.AppendTransaction(ctx, u.ID, -10, SourceManual, "", base)
	db.AppendTransaction(ctx, u.ID, 30, SourceManual, "", base.AddDate(0, 0, 1))
	db.AppendTransaction(ctx, u.ID, -5, SourceManual, "", base.AddDate(0, 0, 1))
	db.AppendTransaction(ctx, u.ID, 1, SourceManual, "", base.AddDate(0, 0, 3))

	days, err := db.DailyBalances(ctx, u.ID, "")
	if err != nil {
		t.Fatalf("DailyBalances: %v", err)
	}
	want := []DailyBalance{
		{Day: day(0), Balance: 40, Gains: 50, Losses: 10},
		{Day: day(1), Balance: 65, Gains: 30, Losses: 5},
		{Day: day(3), Balance: 66, Gains: 1, Losses: 0},
	}
	if len(days) != len(want) {
		t.Fatalf("days = %+v, want %+v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, days[i], want[i])
		}
	}

	recent, err := db.DailyBalances(ctx, u.ID, day(1))
	if err != nil {
		t.Fatalf("DailyBalances from day 1: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("recent days = %d, want 2", len(recent))
	}
}
