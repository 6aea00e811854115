package testsupport

import (
	"context"
	"testing"

	"vibetube/internal/catalog"
	"vibetube/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddSource registers a source with the provided item ids for tests.
func AddSource(t testing.TB, store *catalog.Store, kind catalog.Kind, externalID string, auto bool, itemIDs ...string) *catalog.Source {
	t.Helper()

	items := make([]catalog.NewItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		items = append(items, catalog.NewItem{ExternalID: id, Title: "Title " + id, Channel: "Channel", UploadDate: "20240101"})
	}
	src, _, err := store.AddSource(context.Background(), catalog.NewSource{
		Kind:        kind,
		ExternalID:  externalID,
		Name:        "Source " + externalID,
		AutoAcquire: auto,
	}, items)
	if err != nil {
		t.Fatalf("store.AddSource: %v", err)
	}
	return src
}

// MustItem fetches an item by external id and fails the test if it is absent.
func MustItem(t testing.TB, store *catalog.Store, externalID string) *catalog.Item {
	t.Helper()

	item, err := store.ItemByExternalID(context.Background(), externalID)
	if err != nil {
		t.Fatalf("store.ItemByExternalID: %v", err)
	}
	if item == nil {
		t.Fatalf("item %s not found", externalID)
	}
	return item
}

// CheckInvariants fails the test when any item is both acquired and missing,
// or both acquired and failed.
func CheckInvariants(t testing.TB, store *catalog.Store) {
	t.Helper()

	items, err := store.ListItems(context.Background(), catalog.ItemFilter{})
	if err != nil {
		t.Fatalf("store.ListItems: %v", err)
	}
	for _, item := range items {
		if item.Acquired && item.FileMissing {
			t.Fatalf("item %s is acquired and missing", item.ExternalID)
		}
		if item.Acquired && item.Failed {
			t.Fatalf("item %s is acquired and failed", item.ExternalID)
		}
	}
}
