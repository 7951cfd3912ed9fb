package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/lazypower/momentum/internal/analytics"
	"github.com/lazypower/momentum/internal/metrics"
	"github.com/lazypower/momentum/internal/store"
	"golang.org/x/sync/errgroup"
)

// Snapshot is an immutable, point-in-time discipline score for every user.
// It is replaced wholesale on refresh, never mutated.
type Snapshot struct {
	TakenAt    time.Time
	Discipline map[string]analytics.DisciplineMetrics
}

// Snapshot returns the latest discipline snapshot, or nil before the first refresh.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Refresh recomputes discipline metrics for every user and swaps in the new
// snapshot. Concurrent callers share one computation, which is not cancelled
// when the caller that started it goes away.
func (e *Engine) Refresh(ctx context.Context) (*Snapshot, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := e.refresh.Do("refresh", func() (any, error) {
		return e.buildSnapshot(shared)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// invalidate drops userID from the current snapshot after a write that
// changes its score inputs. Later Score calls compute live until the next
// refresh.
func (e *Engine) invalidate(userID string) {
	e.touched.Store(userID, e.writeSeq.Add(1))
	e.drop(userID)
}

// drop swaps in a copy of the current snapshot without userID.
func (e *Engine) drop(userID string) {
	for {
		old := e.snapshot.Load()
		if old == nil {
			return
		}
		if _, ok := old.Discipline[userID]; !ok {
			return
		}
		next := &Snapshot{TakenAt: old.TakenAt, Discipline: make(map[string]analytics.DisciplineMetrics, len(old.Discipline))}
		for id, m := range old.Discipline {
			if id != userID {
				next.Discipline[id] = m
			}
		}
		if e.snapshot.CompareAndSwap(old, next) {
			return
		}
	}
}

// touchedSince reports whether userID was written after sequence seq.
func (e *Engine) touchedSince(userID string, seq uint64) bool {
	v, ok := e.touched.Load(userID)
	return ok && v.(uint64) > seq
}

func (e *Engine) buildSnapshot(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	seq := e.writeSeq.Load()
	ids, err := e.DB.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	scores := make(map[string]analytics.DisciplineMetrics, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, id := range ids {
		g.Go(func() error {
			u, err := e.DB.GetUser(gctx, id)
			if err != nil {
				// Concurrently removed or unreadable; leave it to live scoring.
				log.Printf("engine: refresh %s: %v", id, err)
				return nil
			}
			m := e.discipline(gctx, u)
			mu.Lock()
			scores[id] = m
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Scores read before a concurrent write would be stale on arrival.
	for id := range scores {
		if e.touchedSince(id, seq) {
			delete(scores, id)
		}
	}

	snap := &Snapshot{TakenAt: e.Now(), Discipline: scores}
	e.snapshot.Store(snap)
	// A write may have invalidated between the filter and the store.
	for id := range scores {
		if e.touchedSince(id, seq) {
			e.drop(id)
		}
	}

	metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	metrics.SnapshotUsers.Set(float64(len(scores)))
	return snap, nil
}

// Reconcile replays every user's ledger against the cached balance and
// returns one ConsistencyError per mismatch. Nothing is corrected.
func (e *Engine) Reconcile(ctx context.Context) ([]*store.ConsistencyError, error) {
	ids, err := e.DB.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	mismatches := []*store.ConsistencyError{}
	for _, id := range ids {
		err := e.DB.VerifyBalance(ctx, id)
		if err == nil {
			continue
		}
		var ce *store.ConsistencyError
		if !errors.As(err, &ce) {
			return mismatches, err
		}
		log.Printf("engine: reconcile: %v", ce)
		metrics.ConsistencyErrors.Inc()
		mismatches = append(mismatches, ce)
	}
	return mismatches, nil
}

// StartRefreshTimer refreshes the snapshot and reconciles balances on
// startup and then every interval. A non-positive interval runs once.
func (e *Engine) StartRefreshTimer(interval time.Duration) {
	e.runMaintenance()
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.runMaintenance()
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Engine) runMaintenance() {
	ctx := context.Background()
	if snap, err := e.Refresh(ctx); err != nil {
		log.Printf("refresh error: %v", err)
	} else {
		log.Printf("refresh: scored %d users", len(snap.Discipline))
	}
	if bad, err := e.Reconcile(ctx); err != nil {
		log.Printf("reconcile error: %v", err)
	} else if len(bad) > 0 {
		log.Printf("reconcile: %d users out of balance", len(bad))
	}
}
