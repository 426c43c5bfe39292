package storage

import (
	"context"
	"testing"
)

func TestInMemoryStore(t *testing.T) {
	store := NewInMemoryStore()
	store.now = fixedClock()
	testCheckpointStore(t, store)
}

func TestInMemoryStoreIsolatesCopies(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	state := sampleState("run-x", 1)
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	state.Errors = append(state.Errors, "changed after save")

	loaded, err := store.Load(ctx, "run-x")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Errors) != 0 {
		t.Errorf("expected checkpoint unaffected by later changes, got %v", loaded.Errors)
	}
}
