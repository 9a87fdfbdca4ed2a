package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"plenum/internal/ledger"
	"plenum/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	inserted, err := store.Create(ctx, ledger.Seed{
		ID:        "bundestag-2024-001",
		Kind:      "video",
		SourceURL: "https://example.org/plenary/001.mp4",
		Language:  "de",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected insert on fresh ledger")
	}

	item, err := store.GetByID(ctx, "bundestag-2024-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item == nil || item.Status != ledger.StatusPending {
		t.Fatalf("unexpected item: %#v", item)
	}
	if item.RetryCount != 0 {
		t.Fatalf("fresh item should have retry_count 0, got %d", item.RetryCount)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	seed := ledger.Seed{ID: "althingi-42", Kind: "transcript", SourceURL: "https://example.org/42.html"}
	if _, err := store.Create(ctx, seed); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Drive the item to done, then re-run the import.
	if _, err := store.MarkInProgress(ctx, seed.ID); err != nil {
		t.Fatalf("MarkInProgress failed: %v", err)
	}
	if err := store.MarkDone(ctx, seed.ID, ledger.Metrics{Bytes: 10}); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}

	inserted, err := store.Create(ctx, seed)
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if inserted {
		t.Fatal("second Create must not insert")
	}

	item, err := store.GetByID(ctx, seed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != ledger.StatusDone {
		t.Fatalf("re-import must not reset a done item, got %s", item.Status)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(all))
	}
}

func TestCreateStrictRejectsDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	seed := ledger.Seed{ID: "dup", Kind: "video", SourceURL: "https://example.org/dup.mp4"}
	if _, err := store.CreateStrict(ctx, seed); err != nil {
		t.Fatalf("first CreateStrict failed: %v", err)
	}
	_, err := store.CreateStrict(ctx, seed)
	if !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateValidatesSeed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if _, err := store.Create(ctx, ledger.Seed{Kind: "video", SourceURL: "https://example.org"}); err == nil {
		t.Fatal("expected error for empty id")
	}
	if _, err := store.Create(ctx, ledger.Seed{ID: "x", Kind: "video"}); err == nil {
		t.Fatal("expected error for empty source url")
	}
}

func TestTransitionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	testsupport.SeedItem(t, store, "s1", "https://example.org/s1.mp4")

	item, err := store.MarkInProgress(ctx, "s1")
	if err != nil {
		t.Fatalf("MarkInProgress failed: %v", err)
	}
	if item.Status != ledger.StatusInProgress || item.StartedAt == nil {
		t.Fatalf("unexpected in-progress item: %#v", item)
	}

	if err := store.MarkDone(ctx, "s1", ledger.Metrics{Bytes: 2048, Seconds: 4}); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	done, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if done.Status != ledger.StatusDone || done.CompletedAt == nil {
		t.Fatalf("unexpected done item: %#v", done)
	}
	if done.Bytes != 2048 || done.Seconds != 4 {
		t.Fatalf("metrics not recorded: %#v", done)
	}
}

func TestIllegalTransitionsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	testsupport.SeedItem(t, store, "s1", "https://example.org/s1.mp4")

	// pending -> done skips in_progress.
	if err := store.MarkDone(ctx, "s1", ledger.Metrics{}); !errors.Is(err, ledger.ErrBadTransition) {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
	// pending -> failed likewise.
	if _, err := store.MarkFailed(ctx, "s1", "boom"); !errors.Is(err, ledger.ErrBadTransition) {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
	// Unknown id.
	if _, err := store.MarkInProgress(ctx, "ghost"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// done is terminal: a second MarkInProgress must not resurrect it.
	if _, err := store.MarkInProgress(ctx, "s1"); err != nil {
		t.Fatalf("MarkInProgress failed: %v", err)
	}
	if err := store.MarkDone(ctx, "s1", ledger.Metrics{}); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	if _, err := store.MarkInProgress(ctx, "s1"); !errors.Is(err, ledger.ErrBadTransition) {
		t.Fatalf("expected ErrBadTransition on done item, got %v", err)
	}
}

func TestMarkFailedAppendsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	testsupport.SeedItem(t, store, "s1", "https://example.org/s1.mp4")

	causes := []string{"timeout", "connection reset", "504 gateway timeout"}
	for i, cause := range causes {
		if _, err := store.MarkInProgress(ctx, "s1"); err != nil {
			t.Fatalf("MarkInProgress #%d failed: %v", i+1, err)
		}
		item, err := store.MarkFailed(ctx, "s1", cause)
		if err != nil {
			t.Fatalf("MarkFailed #%d failed: %v", i+1, err)
		}
		if item.RetryCount != i+1 {
			t.Fatalf("expected retry_count %d, got %d", i+1, item.RetryCount)
		}
	}

	item, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != ledger.StatusFailed {
		t.Fatalf("expected failed status, got %s", item.Status)
	}
	if item.LastError != causes[len(causes)-1] {
		t.Fatalf("unexpected last error: %q", item.LastError)
	}
	if len(item.Attempts) != len(causes) {
		t.Fatalf("expected %d history entries, got %d", len(causes), len(item.Attempts))
	}
	for i, attempt := range item.Attempts {
		if attempt.Error != causes[i] {
			t.Fatalf("history entry %d: expected %q, got %q", i, causes[i], attempt.Error)
		}
		if attempt.At.IsZero() {
			t.Fatalf("history entry %d missing timestamp", i)
		}
		if attempt.Status != ledger.StatusFailed {
			t.Fatalf("history entry %d: unexpected status %s", i, attempt.Status)
		}
	}
}

func TestReclaimStale(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	testsupport.SeedItem(t, store, "stale", "https://example.org/stale.mp4")
	testsupport.SeedItem(t, store, "fresh", "https://example.org/fresh.mp4")

	if _, err := store.MarkInProgress(ctx, "stale"); err != nil {
		t.Fatalf("MarkInProgress failed: %v", err)
	}
	if _, err := store.MarkInProgress(ctx, "fresh"); err != nil {
		t.Fatalf("MarkInProgress failed: %v", err)
	}

	// Cutoff in the future reclaims both; cutoff in the past reclaims none.
	count, err := store.ReclaimStale(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStale failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no reclaims with past cutoff, got %d", count)
	}

	count, err = store.ReclaimStale(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStale failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 reclaims, got %d", count)
	}

	item, err := store.GetByID(ctx, "stale")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != ledger.StatusPending || item.StartedAt != nil {
		t.Fatalf("expected reclaimed pending item, got %#v", item)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		testsupport.SeedItem(t, store, id, "https://example.org/"+id+".mp4")
		if _, err := store.MarkInProgress(ctx, id); err != nil {
			t.Fatalf("MarkInProgress failed: %v", err)
		}
		if _, err := store.MarkFailed(ctx, id, "boom"); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
	}

	count, err := store.RetryFailed(ctx, "a", "b")
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 items requeued, got %d", count)
	}

	item, err := store.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != ledger.StatusPending || item.LastError != "" {
		t.Fatalf("expected requeued item, got %#v", item)
	}
	if item.RetryCount != 1 || len(item.Attempts) != 1 {
		t.Fatalf("retry pass must preserve history, got %#v", item)
	}

	remaining, err := store.ItemsByStatus(ctx, ledger.StatusFailed)
	if err != nil {
		t.Fatalf("ItemsByStatus failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "c" {
		t.Fatalf("expected only c still failed, got %#v", remaining)
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	testsupport.SeedItems(t, store, 4)

	if _, err := store.MarkInProgress(ctx, "session-0000"); err != nil {
		t.Fatalf("MarkInProgress failed: %v", err)
	}
	if err := store.MarkDone(ctx, "session-0000", ledger.Metrics{}); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	if _, err := store.MarkInProgress(ctx, "session-0001"); err != nil {
		t.Fatalf("MarkInProgress failed: %v", err)
	}
	if _, err := store.MarkFailed(ctx, "session-0001", "404 not found"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[ledger.StatusDone] != 1 || stats[ledger.StatusFailed] != 1 || stats[ledger.StatusPending] != 2 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	updated, err := store.LastUpdatedAt(ctx)
	if err != nil {
		t.Fatalf("LastUpdatedAt failed: %v", err)
	}
	if updated.IsZero() {
		t.Fatal("expected non-zero last update time")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ledger.ParseStatus(" In_Progress "); !ok || status != ledger.StatusInProgress {
		t.Fatalf("unexpected parse result: %s %v", status, ok)
	}
	if _, ok := ledger.ParseStatus("downloading"); ok {
		t.Fatal("unknown status must not parse")
	}
}
