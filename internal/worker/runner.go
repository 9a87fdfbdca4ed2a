package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"plenum/internal/config"
	"plenum/internal/fetch"
	"plenum/internal/ledger"
	"plenum/internal/logging"
	"plenum/internal/manifest"
	"plenum/internal/partition"
	"plenum/internal/retry"
)

// Summary aggregates the terminal outcomes of one partition run.
type Summary struct {
	RunID     string
	Range     partition.Range
	Reclaimed int64
	Attempted int
	Done      int
	Failed    int
	Skipped   int
	Bytes     int64
	Elapsed   time.Duration
}

// Runner executes the work items of a single partition against the shared
// ledger. Several Runner processes may operate on the same ledger file as
// long as their partitions are disjoint.
type Runner struct {
	store       *ledger.Store
	fetcher     fetch.Fetcher
	policy      retry.Policy
	logger      *slog.Logger
	concurrency int
	staleAfter  time.Duration

	// sleep is swapped out in tests so backoff schedules can be observed
	// without waiting them out.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner wires a Runner from configuration.
func NewRunner(cfg *config.Config, store *ledger.Store, fetcher fetch.Fetcher, logger *slog.Logger) *Runner {
	concurrency := cfg.Downloads.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		store:   store,
		fetcher: fetcher,
		policy: retry.Policy{
			BaseDelay:  cfg.BaseDelay(),
			MaxRetries: cfg.Retry.MaxRetries,
		},
		logger:      logging.NewComponentLogger(logger, "worker"),
		concurrency: concurrency,
		staleAfter:  cfg.StaleAfter(),
		sleep:       waitFor,
	}
}

type rowOutcome int

const (
	outcomeSkipped rowOutcome = iota
	outcomeDone
	outcomeFailed
)

// Run processes the manifest rows covered by rng until each is terminal.
//
// The returned error reports infrastructure failure only: a ledger that
// cannot be read or written, or context cancellation. Items that end in
// failed status are reported through the Summary, not the error, so a run
// with unhealable sources still exits cleanly and can be retried later.
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest, rng partition.Range) (*Summary, error) {
	started := time.Now()
	summary := &Summary{RunID: uuid.NewString(), Range: rng}
	log := r.logger.With(
		logging.String(logging.FieldRunID, summary.RunID),
		logging.String(logging.FieldPartition, rng.String()),
	)

	reclaimed, err := r.store.ReclaimStale(ctx, time.Now().Add(-r.staleAfter))
	if err != nil {
		return nil, fmt.Errorf("reclaim stale items: %w", err)
	}
	summary.Reclaimed = reclaimed
	if reclaimed > 0 {
		log.Info("reclaimed stale items", logging.Int64("count", reclaimed))
	}

	rows := m.Slice(rng.Start, rng.End)
	log.Info("partition run starting",
		logging.Int("items", len(rows)),
		logging.Int("concurrency", r.concurrency))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	sem := make(chan struct{}, r.concurrency)

	record := func(outcome rowOutcome, bytes int64, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
				cancel()
			}
			return
		}
		switch outcome {
		case outcomeDone:
			summary.Done++
			summary.Attempted++
			summary.Bytes += bytes
		case outcomeFailed:
			summary.Failed++
			summary.Attempted++
		case outcomeSkipped:
			summary.Skipped++
		}
	}

	for _, row := range rows {
		select {
		case sem <- struct{}{}:
		case <-runCtx.Done():
		}
		if runCtx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(row manifest.Row) {
			defer wg.Done()
			defer func() { <-sem }()
			outcome, bytes, err := r.processRow(runCtx, log, row)
			record(outcome, bytes, err)
		}(row)
	}
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	summary.Elapsed = time.Since(started)
	log.Info("partition run finished",
		logging.Int("done", summary.Done),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Int64("bytes", summary.Bytes),
		logging.Duration("elapsed", summary.Elapsed))
	return summary, firstErr
}

// processRow drives one manifest row to a terminal state, retrying transient
// download failures per the backoff policy. The returned error means the
// ledger itself failed and the run must stop.
func (r *Runner) processRow(ctx context.Context, log *slog.Logger, row manifest.Row) (rowOutcome, int64, error) {
	itemLog := log.With(
		logging.String(logging.FieldItemID, row.ID),
		logging.String(logging.FieldKind, row.Kind.String()),
	)

	if _, err := r.store.Create(ctx, ledger.Seed{
		ID:        row.ID,
		Kind:      row.Kind.String(),
		SourceURL: row.URL,
		Language:  row.Language,
		Title:     row.Title,
	}); err != nil {
		return outcomeSkipped, 0, fmt.Errorf("register item %s: %w", row.ID, err)
	}

	item, err := r.store.GetByID(ctx, row.ID)
	if err != nil {
		return outcomeSkipped, 0, fmt.Errorf("load item %s: %w", row.ID, err)
	}
	if item == nil {
		return outcomeSkipped, 0, fmt.Errorf("item %s vanished after create", row.ID)
	}
	if item.Terminal() {
		itemLog.Debug("item already complete, skipping")
		return outcomeSkipped, 0, nil
	}

	for {
		item, err = r.store.MarkInProgress(ctx, row.ID)
		if err != nil {
			if errors.Is(err, ledger.ErrBadTransition) {
				// Another live worker owns it; stale owners were reclaimed
				// at run start, so leave it alone.
				itemLog.Warn("item claimed elsewhere, skipping")
				return outcomeSkipped, 0, nil
			}
			return outcomeSkipped, 0, fmt.Errorf("claim item %s: %w", row.ID, err)
		}
		attempt := item.RetryCount + 1
		itemLog.Info("downloading", logging.Int(logging.FieldAttempt, attempt))

		res, fetchErr := r.fetcher.Fetch(ctx, row)
		if fetchErr == nil {
			metrics := ledger.Metrics{Bytes: res.Bytes, Seconds: res.Duration.Seconds()}
			if err := r.store.MarkDone(ctx, row.ID, metrics); err != nil {
				return outcomeSkipped, 0, fmt.Errorf("complete item %s: %w", row.ID, err)
			}
			itemLog.Info("download complete",
				logging.Int64("bytes", res.Bytes),
				logging.Duration("elapsed", res.Duration),
				logging.Float64("bytes_per_second", metrics.BytesPerSecond()))
			return outcomeDone, res.Bytes, nil
		}

		if ctx.Err() != nil {
			return outcomeSkipped, 0, ctx.Err()
		}

		item, err = r.store.MarkFailed(ctx, row.ID, fetchErr.Error())
		if err != nil {
			return outcomeSkipped, 0, fmt.Errorf("record failure for %s: %w", row.ID, err)
		}

		if !fetch.IsTransient(fetchErr) {
			itemLog.Error("permanent download failure",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Error(fetchErr))
			return outcomeFailed, 0, nil
		}
		if r.policy.Exhausted(item.RetryCount) {
			itemLog.Error("retry budget exhausted",
				logging.Int("retry_count", item.RetryCount),
				logging.Error(fetchErr))
			return outcomeFailed, 0, nil
		}

		delay := r.policy.Delay(item.RetryCount - 1)
		itemLog.Warn("transient download failure, backing off",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("delay", delay),
			logging.Error(fetchErr))
		if err := r.sleep(ctx, delay); err != nil {
			return outcomeSkipped, 0, err
		}
	}
}

func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
