// Executor - runs an action plan against the sub-agents.
//
// Steps sharing a priority run concurrently; a level starts only after the
// previous one has been merged into the run state. Every step is attempted
// exactly once and a failing step never stops the run. Once the run context
// ends no further step is dispatched, and steps it interrupted stay pending.
//
// Information Hiding:
// - Level scheduling and the parallelism bound
// - Per-step timeouts and panic isolation
// - Merge of step results into state in plan order
// - Checkpointing between levels

package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/richinex/govsummary/model"
	"github.com/richinex/govsummary/publish"
	"github.com/richinex/govsummary/subagent"
)

// DefaultMaxParallel bounds concurrently running steps of one level.
const DefaultMaxParallel = 3

var (
	errNoIntegratedSummary = errors.New("no integrated summary to finalize")
	errNothingToPublish    = errors.New("no summary to publish")
	errNoPublisher         = errors.New("no publisher configured")
	errPublishFailed       = errors.New("publish failed")
)

// DocumentSummarizer summarizes one document.
type DocumentSummarizer interface {
	Summarize(ctx context.Context, ref string, category model.Category, name string) (model.DocumentSummary, error)
}

// OverviewWriter writes the meeting overview.
type OverviewWriter interface {
	Generate(ctx context.Context, in subagent.OverviewInput) (string, error)
}

// Checkpointer persists run state between levels.
type Checkpointer interface {
	Save(ctx context.Context, state *model.ExecutionState) error
}

// StepObserver is notified once per attempted step.
type StepObserver interface {
	ObserveStep(action model.ActionType, success bool, duration time.Duration)
}

// stepOutcome is what one step produced. At most one of the result
// pointers is set; none is set when err is.
type stepOutcome struct {
	result     string
	summary    *model.DocumentSummary
	overview   *string
	integrated *string
	finalized  *string
	published  *string
	err        error
	duration   time.Duration
	// skipped is set for a step that was never dispatched or that the
	// ending of the run context interrupted.
	skipped bool
}

// Executor runs plans. One Executor may run many plans, but each
// ExecutionState must be executed by one Execute call at a time.
type Executor struct {
	summarizer   DocumentSummarizer
	overview     OverviewWriter
	publisher    publish.Publisher
	checkpoints  Checkpointer
	observer     StepObserver
	maxParallel  int
	stepTimeout  time.Duration
	defaultChars int
	logger       *slog.Logger
}

// NewExecutor creates an executor. publisher may be nil, in which case
// publish steps fail.
func NewExecutor(summarizer DocumentSummarizer, overview OverviewWriter, publisher publish.Publisher) *Executor {
	return &Executor{
		summarizer:   summarizer,
		overview:     overview,
		publisher:    publisher,
		maxParallel:  DefaultMaxParallel,
		defaultChars: DefaultPlannerConfig().MaxSummaryChars,
		logger:       slog.New(slog.DiscardHandler),
	}
}

// WithCheckpointer saves the state after every level.
func (e *Executor) WithCheckpointer(c Checkpointer) *Executor {
	e.checkpoints = c
	return e
}

// WithObserver reports every attempted step to o.
func (e *Executor) WithObserver(o StepObserver) *Executor {
	e.observer = o
	return e
}

// WithMaxParallel bounds the steps running at once. Values below 1 mean 1.
func (e *Executor) WithMaxParallel(n int) *Executor {
	e.maxParallel = max(n, 1)
	return e
}

// WithStepTimeout bounds each step. Zero means no bound.
func (e *Executor) WithStepTimeout(d time.Duration) *Executor {
	e.stepTimeout = d
	return e
}

// WithLogger sets the logger.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Execute runs the plan of state from its cursor to the end. Step failures
// are recorded in state. The returned error is non-nil only when ctx ends
// the run early; state is then valid up to its cursor, and the first step
// that was not dispatched, or was interrupted, sits at the cursor.
func (e *Executor) Execute(ctx context.Context, state *model.ExecutionState) (RunStats, error) {
	start := time.Now()
	stats := RunStats{EstimatedCost: state.Plan.TotalEstimatedCost}

	levels := state.Plan.Levels(state.Cursor)
	e.logger.Info("execution started",
		"run_id", state.RunID,
		"steps", len(state.Plan.Steps),
		"cursor", state.Cursor,
		"levels", len(levels),
	)

	for _, level := range levels {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("execution cancelled", "run_id", state.RunID, "cursor", state.Cursor, "error", err)
			stats.Duration = time.Since(start)
			return stats, err
		}

		outcomes := e.runLevel(ctx, state, level)
		applied := 0
		for i, idx := range level {
			if outcomes[i].skipped {
				break
			}
			e.apply(state, idx, outcomes[i], &stats)
			applied++
		}
		if applied > 0 {
			stats.Levels++
			e.checkpoint(ctx, state)
		}

		if err := ctx.Err(); err != nil && !state.Done() {
			e.logger.Warn("execution cancelled", "run_id", state.RunID, "cursor", state.Cursor, "pending", len(state.Plan.Steps)-state.Cursor, "error", err)
			stats.Duration = time.Since(start)
			return stats, err
		}
	}

	stats.Duration = time.Since(start)
	e.logger.Info("execution completed",
		"run_id", state.RunID,
		"attempted", stats.Attempted,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)
	return stats, nil
}

// runLevel runs the steps at indices level concurrently and returns their
// outcomes in the same order. State is only read while steps run.
func (e *Executor) runLevel(ctx context.Context, state *model.ExecutionState, level []int) []stepOutcome {
	outcomes := make([]stepOutcome, len(level))
	if len(level) == 1 {
		outcomes[0] = e.runStep(ctx, state, level[0])
		return outcomes
	}

	e.logger.Debug("running level", "steps", len(level), "parallel", min(len(level), e.maxParallel))
	var g errgroup.Group
	g.SetLimit(e.maxParallel)
	for i, idx := range level {
		if ctx.Err() != nil {
			for j := i; j < len(level); j++ {
				outcomes[j] = stepOutcome{skipped: true}
			}
			break
		}
		g.Go(func() error {
			outcomes[i] = e.runStep(ctx, state, idx)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Executor) runStep(ctx context.Context, state *model.ExecutionState, idx int) (out stepOutcome) {
	if ctx.Err() != nil {
		return stepOutcome{skipped: true}
	}
	runCtx := ctx
	step := state.Plan.Steps[idx]
	e.logger.Info("step started", "step", idx+1, "action", step.ActionType, "target", step.Target)

	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = stepOutcome{err: fmt.Errorf("panic: %v", r)}
		}
		if out.err != nil && runCtx.Err() != nil && errors.Is(out.err, runCtx.Err()) {
			e.logger.Info("step interrupted", "step", idx+1, "action", step.ActionType, "error", out.err)
			out.skipped = true
		}
		out.duration = time.Since(start)
	}()

	return e.dispatch(ctx, state, step)
}

func (e *Executor) dispatch(ctx context.Context, state *model.ExecutionState, step model.ActionStep) stepOutcome {
	switch step.ActionType {
	case model.ActionSummarizeDocument:
		category := model.Category(step.Param(model.ParamCategory))
		summary, err := e.summarizer.Summarize(ctx, step.Target, category, step.Param(model.ParamName))
		if err != nil {
			return stepOutcome{err: err}
		}
		return stepOutcome{result: summary.String(), summary: &summary}

	case model.ActionGenerateOverview:
		overview, err := e.overview.Generate(ctx, subagent.OverviewInput{
			PageURL:         step.Target,
			MainContent:     step.Param(model.ParamMainContent),
			EmbeddedAgenda:  step.Param(model.ParamEmbeddedAgenda),
			EmbeddedMinutes: step.Param(model.ParamEmbeddedMinutes),
			Summaries:       state.DocumentSummaries,
		})
		if err != nil {
			return stepOutcome{err: err}
		}
		return stepOutcome{result: fmt.Sprintf("overview of %d characters", len([]rune(overview))), overview: &overview}

	case model.ActionIntegrateSummaries:
		integrated := subagent.Integrate(state.Overview, discoveryOrder(state))
		return stepOutcome{
			result:     fmt.Sprintf("%d documents, %d characters", len(state.DocumentSummaries), len([]rune(integrated))),
			integrated: &integrated,
		}

	case model.ActionFinalize:
		if state.FinalSummary == nil {
			return stepOutcome{err: errNoIntegratedSummary}
		}
		maxChars := step.IntParam(model.ParamMaxChars, e.defaultChars)
		finalized := subagent.Truncate(*state.FinalSummary, maxChars)
		if finalized != *state.FinalSummary {
			e.logger.Warn("summary truncated", "chars", len([]rune(*state.FinalSummary)), "max_chars", maxChars)
		}
		e.logger.Debug("summary finalized", "batch", step.BoolParam(model.ParamBatch))
		return stepOutcome{result: fmt.Sprintf("%d characters", len([]rune(finalized))), finalized: &finalized}

	case model.ActionPublish:
		if e.publisher == nil {
			return stepOutcome{err: errNoPublisher}
		}
		text, ok := state.SummaryText()
		if !ok {
			return stepOutcome{err: errNothingToPublish}
		}
		result := e.publisher.Publish(ctx, text, step.Target)
		if !result.Success {
			if result.Err == nil {
				return stepOutcome{err: fmt.Errorf("%s: %w", e.publisher.Name(), errPublishFailed)}
			}
			return stepOutcome{err: result.Err}
		}
		return stepOutcome{result: result.Response, published: &result.Response}

	default:
		return stepOutcome{err: fmt.Errorf("unknown action type %q", step.ActionType)}
	}
}

// discoveryOrder returns the document summaries of state in the order their
// documents appeared on the page. Summaries of steps planned without a page
// position follow in plan order.
func discoveryOrder(state *model.ExecutionState) []model.DocumentSummary {
	unplaced := len(state.Plan.Steps)
	position := make(map[string]int)
	for _, step := range state.Plan.Steps {
		if step.ActionType == model.ActionSummarizeDocument {
			position[step.Target] = step.IntParam(model.ParamDiscoveryIndex, unplaced)
		}
	}

	ordered := append([]model.DocumentSummary(nil), state.DocumentSummaries...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return position[ordered[i].URL] < position[ordered[j].URL]
	})
	return ordered
}

// apply merges the outcome of the step at idx into state. idx must be the
// current cursor.
func (e *Executor) apply(state *model.ExecutionState, idx int, out stepOutcome, stats *RunStats) {
	step := state.Plan.Steps[idx]

	if out.err == nil && out.integrated != nil {
		out.err = state.SetFinalSummary(*out.integrated)
	}

	action := model.CompletedAction{Step: step, Duration: out.duration}
	stats.Attempted++

	if out.err != nil {
		stepErr := &StepError{Index: idx, Action: step.ActionType, Err: out.err}
		action.Error = stepErr.Error()
		state.Record(action, stepErr.Error())
		stats.Failed++
		e.logger.Warn("step failed", "step", idx+1, "action", step.ActionType, "target", step.Target, "error", out.err, "duration", out.duration)
	} else {
		action.Success = true
		action.Result = out.result
		action.CostUsed = step.EstimatedCost
		if out.summary != nil {
			state.AddDocumentSummary(*out.summary)
		}
		if out.overview != nil {
			state.Overview = *out.overview
		}
		if out.finalized != nil {
			state.FinalizedSummary = *out.finalized
		}
		if out.published != nil {
			state.PublishResponse = *out.published
		}
		state.Record(action, "")
		e.logger.Info("step completed", "step", idx+1, "action", step.ActionType, "result", out.result, "duration", out.duration)
	}

	if e.observer != nil {
		e.observer.ObserveStep(step.ActionType, out.err == nil, out.duration)
	}
}

func (e *Executor) checkpoint(ctx context.Context, state *model.ExecutionState) {
	if e.checkpoints == nil {
		return
	}
	if err := e.checkpoints.Save(context.WithoutCancel(ctx), state); err != nil {
		e.logger.Warn("checkpoint failed", "run_id", state.RunID, "error", err)
	}
}
