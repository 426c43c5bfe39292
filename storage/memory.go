// Package storage provides in-memory checkpoint storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and runs that need no resume

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/richinex/govsummary/model"
)

type memoryEntry struct {
	data    []byte
	info    RunInfo
	created time.Time
}

// InMemoryStore implements CheckpointStore using an in-memory map.
// Data is lost when process terminates.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]memoryEntry
	now  func() time.Time
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// Save stores an encoded copy of state, so later changes to state do not
// leak into the checkpoint.
func (s *InMemoryStore) Save(ctx context.Context, state *model.ExecutionState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	created := now
	if prev, ok := s.runs[state.RunID]; ok {
		created = prev.created
	}
	s.runs[state.RunID] = memoryEntry{data: data, info: infoOf(state, now), created: created}
	return nil
}

// Load returns a fresh copy of the checkpoint.
func (s *InMemoryStore) Load(ctx context.Context, runID string) (*model.ExecutionState, error) {
	s.mu.RLock()
	entry, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrRunNotFound
	}
	return decodeState(entry.data)
}

// List returns every stored run, most recently updated first.
func (s *InMemoryStore) List(ctx context.Context) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]RunInfo, 0, len(s.runs))
	for _, entry := range s.runs {
		runs = append(runs, entry.info)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].UpdatedAt.Equal(runs[j].UpdatedAt) {
			return runs[i].RunID < runs[j].RunID
		}
		return runs[i].UpdatedAt.After(runs[j].UpdatedAt)
	})
	return runs, nil
}

// Delete removes a run.
func (s *InMemoryStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, runID)
	return nil
}

// Verify InMemoryStore implements CheckpointStore
var _ CheckpointStore = (*InMemoryStore)(nil)
