package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lazypower/momentum/internal/config"
	"github.com/lazypower/momentum/internal/store"
	"golang.org/x/sync/singleflight"
)

// ErrInvalid marks input the engine refuses before touching the store.
var ErrInvalid = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Engine runs streak and ledger commands against the store and computes
// analytics over committed state.
type Engine struct {
	DB *store.DB

	energy  config.EnergyConfig
	loc     *time.Location
	workers int
	now     func() time.Time

	snapshot atomic.Pointer[Snapshot]
	refresh  singleflight.Group
	writeSeq atomic.Uint64
	touched  sync.Map // userID -> writeSeq of the user's last score-affecting write

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new Engine.
func New(db *store.DB, cfg config.Config) *Engine {
	return &Engine{
		DB:      db,
		energy:  cfg.Energy,
		loc:     cfg.Location(),
		workers: max(cfg.Analytics.Workers, 1),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// SetClock replaces the engine's time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Now returns the current time in the analytics timezone.
func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

// Today returns the current calendar day in the analytics timezone.
func (e *Engine) Today() string {
	return e.Now().Format(store.DayLayout)
}

// daysAgo returns the calendar day n days before today.
func (e *Engine) daysAgo(n int) string {
	return e.Now().AddDate(0, 0, -n).Format(store.DayLayout)
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}
