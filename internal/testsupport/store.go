package testsupport

import (
	"context"
	"fmt"
	"testing"

	"plenum/internal/config"
	"plenum/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedItem creates a pending work item for tests using the provided store.
func SeedItem(t testing.TB, store *ledger.Store, id, url string) *ledger.Item {
	t.Helper()

	inserted, err := store.Create(context.Background(), ledger.Seed{
		ID:        id,
		Kind:      "video",
		SourceURL: url,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	if !inserted {
		t.Fatalf("item %s already existed", id)
	}
	item, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	return item
}

// SeedItems creates n pending items with sequential ids and returns the ids.
func SeedItems(t testing.TB, store *ledger.Store, n int) []string {
	t.Helper()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("session-%04d", i)
		SeedItem(t, store, id, fmt.Sprintf("https://example.org/media/%04d.mp4", i))
		ids = append(ids, id)
	}
	return ids
}
