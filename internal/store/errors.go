package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped) when a referenced user or goal does not exist.
var ErrNotFound = errors.New("not found")

// ConsistencyError reports a cached balance that disagrees with the ledger.
// It is surfaced to callers and never corrected automatically.
type ConsistencyError struct {
	UserID         string `json:"user_id"`
	Cached         int64  `json:"cached"`         // users.current_energy
	Replayed       int64  `json:"replayed"`       // sum of all ledger amounts
	LatestRunning  int64  `json:"latest_running"` // running_balance of the newest ledger row
	TransactionCnt int    `json:"transactions"`
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistent for user %s: cached=%d replayed=%d latest_running=%d (%d transactions)",
		e.UserID, e.Cached, e.Replayed, e.LatestRunning, e.TransactionCnt)
}
