package store

import (
	"context"
	"errors"
	"math"
	"testing"
)

func approx(a *float64, want float64) bool {
	return a != nil && math.Abs(*a-want) < 1e-9
}

func TestMergeDailyLogOnlineMean(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 0)

	checkins := []CheckIn{
		{Energy: fp(4), Mood: fp(6), Urges: fp(2), Stress: fp(8), Focus: fp(5)},
		{Energy: fp(8), Mood: fp(6), Urges: fp(5), Stress: fp(2), Focus: fp(5), Exercised: true},
		{Energy: fp(6), Mood: fp(3), Urges: fp(8), Stress: fp(5), Focus: fp(2)},
	}
	var agg *DailyAggregate
	var err error
	for i, c := range checkins {
		agg, err = db.MergeDailyLog(ctx, u.ID, c, base.Add(timeHours(i)))
		if err != nil {
			t.Fatalf("MergeDailyLog %d: %v", i, err)
		}
	}

	if agg.CheckInsCount != 3 {
		t.Errorf("CheckInsCount = %d, want 3", agg.CheckInsCount)
	}
	if !approx(agg.AvgEnergy, 6) || !approx(agg.AvgMood, 5) || !approx(agg.AvgUrges, 5) || !approx(agg.AvgStress, 5) || !approx(agg.AvgFocus, 4) {
		t.Errorf("averages = %v %v %v %v %v", *agg.AvgEnergy, *agg.AvgMood, *agg.AvgUrges, *agg.AvgStress, *agg.AvgFocus)
	}
	if !agg.Exercised || agg.Meditated {
		t.Errorf("flags = exercised %v meditated %v, want true false", agg.Exercised, agg.Meditated)
	}

	stored, err := db.GetAggregate(ctx, u.ID, day(0))
	if err != nil {
		t.Fatalf("GetAggregate: %v", err)
	}
	if stored.CheckInsCount != 3 || !approx(stored.AvgEnergy, 6) || !stored.Exercised {
		t.Errorf("stored aggregate = %+v", stored)
	}
}

func TestMergeDailyLogNullMetrics(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 0)

	db.MergeDailyLog(ctx, u.ID, CheckIn{Mood: fp(8)}, base)
	agg, err := db.MergeDailyLog(ctx, u.ID, CheckIn{Stress: fp(4), Meditated: true}, base)
	if err != nil {
		t.Fatalf("MergeDailyLog: %v", err)
	}
	if !approx(agg.AvgMood, 8) {
		t.Errorf("AvgMood = %v, want 8 (unchanged by a null)", agg.AvgMood)
	}
	if !approx(agg.AvgStress, 4) {
		t.Errorf("AvgStress = %v, want 4", agg.AvgStress)
	}
	if agg.AvgEnergy != nil {
		t.Errorf("AvgEnergy = %v, want nil", *agg.AvgEnergy)
	}

	agg, _ = db.MergeDailyLog(ctx, u.ID, CheckIn{Mood: fp(2)}, base)
	if !approx(agg.AvgMood, 5) {
		t.Errorf("AvgMood = %v, want 5", *agg.AvgMood)
	}
	if !agg.Meditated {
		t.Error("Meditated flag was cleared")
	}
}

func TestMergeDailyLogUnknownUser(t *testing.T) {
	db := testDB(t)
	_, err := db.MergeDailyLog(context.Background(), "nobody", CheckIn{Mood: fp(1)}, base)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := db.GetAggregate(context.Background(), "nobody", day(0)); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAggregate: err = %v, want ErrNotFound", err)
	}
}

func TestCheckInWindows(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 0)

	db.MergeDailyLog(ctx, u.ID, CheckIn{Stress: fp(9), Exercised: true}, base)
	db.MergeDailyLog(ctx, u.ID, CheckIn{Stress: fp(3)}, base.AddDate(0, 0, 1))
	db.MergeDailyLog(ctx, u.ID, CheckIn{Mood: fp(5), Meditated: true}, base.AddDate(0, 0, 2))

	n, err := db.CheckInDays(ctx, u.ID, day(0), day(2))
	if err != nil || n != 3 {
		t.Errorf("CheckInDays = %d, %v; want 3", n, err)
	}
	n, _ = db.CheckInDays(ctx, u.ID, day(1), day(5))
	if n != 2 {
		t.Errorf("CheckInDays from day 1 = %d, want 2", n)
	}
	n, _ = db.ActiveDays(ctx, u.ID, day(0), day(2))
	if n != 2 {
		t.Errorf("ActiveDays = %d, want 2", n)
	}

	avg, err := db.AverageStress(ctx, u.ID, day(0))
	if err != nil || !approx(avg, 6) {
		t.Errorf("AverageStress = %v, %v; want 6", avg, err)
	}
	avg, _ = db.AverageStress(ctx, u.ID, day(2))
	if avg != nil {
		t.Errorf("AverageStress with no stress reports = %v, want nil", *avg)
	}
}

func TestUrgePatterns(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := mustUser(t, db, "alice", 0)

	db.MergeDailyLog(ctx, u.ID, CheckIn{Urges: fp(8), Stress: fp(6)}, base)
	db.MergeDailyLog(ctx, u.ID, CheckIn{Urges: fp(4)}, base.Add(timeHours(0)))
	db.MergeDailyLog(ctx, u.ID, CheckIn{Urges: fp(2)}, base.Add(timeHours(9)))
	db.MergeDailyLog(ctx, u.ID, CheckIn{Mood: fp(5)}, base)

	patterns, err := db.UrgePatterns(ctx, u.ID, "")
	if err != nil {
		t.Fatalf("UrgePatterns: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("patterns = %+v, want 2 slots", patterns)
	}
	p := patterns[0]
	if p.Hour != 14 || p.AvgUrges != 6 || !approx(p.AvgStress, 6) {
		t.Errorf("14:00 slot = %+v", p)
	}
	if patterns[1].Hour != 23 || patterns[1].AvgStress != nil {
		t.Errorf("23:00 slot = %+v", patterns[1])
	}
}
