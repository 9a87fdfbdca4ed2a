// Package aggregate reports cross-partition progress. Numbers are always
// recomputed from the ledger rather than accumulated in memory, so a summary
// is correct even when several worker processes are mutating items while it
// is being built.
package aggregate

import (
	"context"
	"time"

	"plenum/internal/ledger"
)

// Summary is a point-in-time snapshot of ledger progress.
type Summary struct {
	Total       int
	Pending     int
	InProgress  int
	Done        int
	Failed      int
	LastUpdated time.Time
}

// Terminal returns the number of items that need no further work this pass.
func (s Summary) Terminal() int {
	return s.Done + s.Failed
}

// Complete reports whether every item reached a terminal state.
func (s Summary) Complete() bool {
	return s.Total > 0 && s.Terminal() == s.Total
}

// SuccessRate is the fraction of terminal items that finished successfully,
// 0 when nothing is terminal yet.
func (s Summary) SuccessRate() float64 {
	terminal := s.Terminal()
	if terminal == 0 {
		return 0
	}
	return float64(s.Done) / float64(terminal)
}

// Summarize reads the current snapshot from the ledger.
func Summarize(ctx context.Context, store *ledger.Store) (*Summary, error) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	lastUpdated, err := store.LastUpdatedAt(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Pending:     stats[ledger.StatusPending],
		InProgress:  stats[ledger.StatusInProgress],
		Done:        stats[ledger.StatusDone],
		Failed:      stats[ledger.StatusFailed],
		LastUpdated: lastUpdated,
	}
	summary.Total = summary.Pending + summary.InProgress + summary.Done + summary.Failed
	return summary, nil
}

// FailedItems lists every failed item so operators can inspect last errors
// and decide what to requeue.
func FailedItems(ctx context.Context, store *ledger.Store) ([]*ledger.Item, error) {
	return store.List(ctx, ledger.StatusFailed)
}
