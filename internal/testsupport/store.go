package testsupport

import (
	"context"
	"testing"

	"spool/internal/config"
	"spool/internal/queue"
)

// MustOpenStore opens the configured queue store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedItem upserts an item for tests using the provided store.
func SeedItem(t testing.TB, store queue.Store, item *queue.Item) *queue.Item {
	t.Helper()

	stored, err := store.Upsert(context.Background(), item)
	if err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return stored
}
