// Package storage provides checkpoint storage for run state.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
// - State serialization format hidden

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/richinex/govsummary/model"
)

// ErrRunNotFound is returned when no checkpoint exists for a run ID.
var ErrRunNotFound = errors.New("run not found")

// CheckpointStore persists ExecutionState by run ID so an interrupted run
// can continue from its cursor.
type CheckpointStore interface {
	// Save stores the state, replacing any earlier checkpoint of the run.
	Save(ctx context.Context, state *model.ExecutionState) error

	// Load returns the latest checkpoint of a run, or ErrRunNotFound.
	Load(ctx context.Context, runID string) (*model.ExecutionState, error)

	// List returns every stored run, most recently updated first.
	List(ctx context.Context) ([]RunInfo, error)

	// Delete removes a run. Deleting a missing run is not an error.
	Delete(ctx context.Context, runID string) error
}

// RunInfo summarizes a stored run.
type RunInfo struct {
	RunID     string
	Input     string
	Cursor    int
	Steps     int
	Errors    int
	UpdatedAt time.Time
}

// Done reports whether every planned step was attempted.
func (r RunInfo) Done() bool {
	return r.Cursor >= r.Steps
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

func infoOf(state *model.ExecutionState, updated time.Time) RunInfo {
	return RunInfo{
		RunID:     state.RunID,
		Input:     state.Input,
		Cursor:    state.Cursor,
		Steps:     len(state.Plan.Steps),
		Errors:    len(state.Errors),
		UpdatedAt: updated,
	}
}

func encodeState(state *model.ExecutionState) ([]byte, error) {
	if state == nil || state.RunID == "" {
		return nil, fmt.Errorf("state has no run ID")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (*model.ExecutionState, error) {
	var state model.ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}
