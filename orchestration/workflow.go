// Workflow - plans, executes and checkpoints one run.
//
// Information Hiding:
// - Run identity and the initial checkpoint
// - Rejection of empty plans
// - Reloading interrupted runs from the checkpoint store

package orchestration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richinex/govsummary/model"
	"github.com/richinex/govsummary/storage"
)

// Workflow ties a Planner and an Executor together.
type Workflow struct {
	planner  *Planner
	executor *Executor
	store    storage.CheckpointStore
	logger   *slog.Logger
}

// NewWorkflow creates a workflow.
func NewWorkflow(planner *Planner, executor *Executor) *Workflow {
	return &Workflow{
		planner:  planner,
		executor: executor,
		logger:   slog.New(slog.DiscardHandler),
	}
}

// WithStore checkpoints runs in store and enables Resume.
func (w *Workflow) WithStore(store storage.CheckpointStore) *Workflow {
	w.store = store
	w.executor.WithCheckpointer(store)
	return w
}

// WithLogger sets the logger.
func (w *Workflow) WithLogger(logger *slog.Logger) *Workflow {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// Run plans and executes a run for ref. An empty plan yields a state with
// no steps and a *PlanningError. A non-nil state is returned whenever
// planning happened, also when ctx ends the run early.
func (w *Workflow) Run(ctx context.Context, runID, ref string, opts PlanOptions) (*model.ExecutionState, RunStats, error) {
	if runID == "" {
		runID = storage.NewRunID()
	}
	kind := model.KindOf(ref)
	w.logger.Info("run started", "run_id", runID, "input", ref, "kind", kind)

	plan := w.planner.Plan(ctx, ref, opts)
	state := model.NewExecutionState(runID, ref, kind, plan)
	if plan.IsEmpty() {
		return state, RunStats{}, &PlanningError{Reason: plan.Reasoning}
	}

	if w.store != nil {
		if err := w.store.Save(ctx, state); err != nil {
			w.logger.Warn("initial checkpoint failed", "run_id", runID, "error", err)
		}
	}

	stats, err := w.executor.Execute(ctx, state)
	return state, stats, err
}

// Resume continues a checkpointed run from its cursor. Resuming a finished
// run attempts nothing.
func (w *Workflow) Resume(ctx context.Context, runID string) (*model.ExecutionState, RunStats, error) {
	if w.store == nil {
		return nil, RunStats{}, fmt.Errorf("resume %s: no checkpoint store configured", runID)
	}
	state, err := w.store.Load(ctx, runID)
	if err != nil {
		return nil, RunStats{}, fmt.Errorf("resume %s: %w", runID, err)
	}
	w.logger.Info("run resumed",
		"run_id", runID,
		"input", state.Input,
		"cursor", state.Cursor,
		"steps", len(state.Plan.Steps),
	)

	stats, err := w.executor.Execute(ctx, state)
	return state, stats, err
}
