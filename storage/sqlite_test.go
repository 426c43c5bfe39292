package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSqliteStore(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()
	store.now = fixedClock()

	testCheckpointStore(t, store)
}

func TestSqliteStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	ctx := context.Background()

	store, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	if err := store.Save(ctx, sampleState("run-p", 2)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	store.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "run-p")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Cursor != 2 || loaded.FinalSummary == nil || *loaded.FinalSummary != "integrated" {
		t.Errorf("unexpected state after reopen: cursor=%d final=%v", loaded.Cursor, loaded.FinalSummary)
	}
}
