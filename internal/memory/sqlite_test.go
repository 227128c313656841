package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "chat1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &Record{
		ID:           "chat1",
		Summary:      "talked about weather",
		Personality:  "base persona",
		Model:        "test-model",
		CustomPrompt: "be brief",
	}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "chat1")
	if err != nil {
		t.Fatal(err)
	}
	if *got != *rec {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rec)
	}
}

func TestUpsertReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Upsert(ctx, &Record{ID: "chat1", Summary: "old", Personality: "p", Model: "m"})
	store.Upsert(ctx, &Record{ID: "chat1", Summary: "new", Personality: "p", Model: "m"})

	got, err := store.Get(ctx, "chat1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != "new" {
		t.Fatalf("expected replaced summary, got %q", got.Summary)
	}

	ids, err := store.ListIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %d", len(ids))
	}
}

func TestListIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		store.Upsert(ctx, &Record{ID: id})
	}

	ids, err := store.ListIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("unexpected order: %v", ids)
	}
}
