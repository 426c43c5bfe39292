// Command execution for CLI commands.
//
// Information Hiding:
// - Component wiring hidden
// - Publisher selection hidden
// - Output formatting hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/richinex/govsummary/config"
	"github.com/richinex/govsummary/llm"
	"github.com/richinex/govsummary/loader"
	"github.com/richinex/govsummary/mcp"
	"github.com/richinex/govsummary/metrics"
	"github.com/richinex/govsummary/model"
	"github.com/richinex/govsummary/orchestration"
	"github.com/richinex/govsummary/publish"
	"github.com/richinex/govsummary/storage"
	"github.com/richinex/govsummary/subagent"
)

// ErrNoSummary is returned when a run ends without a summary to print.
var ErrNoSummary = errors.New("no summary produced")

// Options holds CLI execution options.
type Options struct {
	Provider    string
	Verbose     bool
	LogFormat   string
	ConfigPath  string
	DBPath      string
	MetricsFile string
	MCPConfig   string
	DryRun      bool

	OverviewOnly bool
	SkipPublish  bool
	Batch        bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{LogFormat: "text"}
}

func (o Options) planOptions() orchestration.PlanOptions {
	return orchestration.PlanOptions{
		OverviewOnly: o.OverviewOnly,
		SkipPublish:  o.SkipPublish,
		Batch:        o.Batch,
	}
}

// NewLogger builds the stderr logger: text or JSON, Info or Debug level.
func NewLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

// Summarize runs the whole workflow for ref and prints the summary and the
// source on stdout.
func Summarize(ctx context.Context, ref string, opts Options, stdout, stderr io.Writer) error {
	return summarize(ctx, ref, opts, stdout, stderr, createProvider)
}

func summarize(ctx context.Context, ref string, opts Options, stdout, stderr io.Writer, newProvider providerFactory) error {
	a, err := newApp(opts, stderr, newProvider)
	if err != nil {
		return err
	}
	defer a.close()

	state, stats, err := a.workflow.Run(ctx, storage.NewRunID(), ref, opts.planOptions())
	return a.finish(state, stats, err, stdout)
}

// Resume continues a checkpointed run and prints its summary.
func Resume(ctx context.Context, runID string, opts Options, stdout, stderr io.Writer) error {
	return resume(ctx, runID, opts, stdout, stderr, createProvider)
}

func resume(ctx context.Context, runID string, opts Options, stdout, stderr io.Writer, newProvider providerFactory) error {
	a, err := newApp(opts, stderr, newProvider)
	if err != nil {
		return err
	}
	defer a.close()

	state, stats, err := a.workflow.Resume(ctx, runID)
	if state == nil {
		return err
	}
	return a.finish(state, stats, err, stdout)
}

// ListRuns prints the stored runs, most recent first.
func ListRuns(ctx context.Context, opts Options, stdout io.Writer) error {
	store, err := openStore(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No stored runs.")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tUPDATED\tPROGRESS\tERRORS\tINPUT")
	for _, r := range runs {
		progress := fmt.Sprintf("%d/%d", r.Cursor, r.Steps)
		if r.Done() {
			progress += " done"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.RunID, r.UpdatedAt.Local().Format(time.DateTime), progress, r.Errors, r.Input)
	}
	return tw.Flush()
}

// DeleteRun removes a stored run.
func DeleteRun(ctx context.Context, runID string, opts Options, stdout io.Writer) error {
	store, err := openStore(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Load(ctx, runID); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	if err := store.Delete(ctx, runID); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Deleted run %s\n", runID)
	return nil
}

// finish logs the outcome of a run and prints its result. A cancelled run
// prints nothing; it can be resumed.
func (a *app) finish(state *model.ExecutionState, stats orchestration.RunStats, runErr error, stdout io.Writer) error {
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		a.logger.Warn("run interrupted",
			"run_id", state.RunID,
			"cursor", state.Cursor,
			"steps", len(state.Plan.Steps),
			"resume", "govsummary resume "+state.RunID,
		)
		a.writeMetrics()
		return fmt.Errorf("run %s interrupted: %w", state.RunID, runErr)
	}

	var planErr *orchestration.PlanningError
	if errors.As(runErr, &planErr) {
		a.logger.Error("planning failed", "run_id", state.RunID, "input", state.Input, "reason", planErr.Reason)
		writeResult(stdout, subagent.NoSummary, state.Input)
		a.writeMetrics()
		return runErr
	}
	if runErr != nil {
		return runErr
	}

	stats = stats.WithClientUsage(a.client)
	status := orchestration.Status(state)
	for _, e := range state.Errors {
		a.logger.Warn("step error", "run_id", state.RunID, "error", e)
	}
	a.logger.Info("run finished",
		"run_id", state.RunID,
		"status", status,
		"stats", stats.String(),
		"estimated_cost", stats.EstimatedCost,
		"prompt_tokens", stats.Tokens.PromptTokens,
		"completion_tokens", stats.Tokens.CompletionTokens,
	)
	if state.PublishResponse != "" {
		a.logger.Info("published", "response", state.PublishResponse)
	}
	a.writeMetrics()

	if status == orchestration.StatusFailed {
		writeResult(stdout, subagent.NoSummary, state.Input)
		return ErrNoSummary
	}
	text, _ := state.SummaryText()
	writeResult(stdout, text, state.Input)
	return nil
}

// writeResult prints the two output lines: the summary, then its source.
func writeResult(w io.Writer, summary, source string) {
	fmt.Fprintln(w, summary)
	fmt.Fprintln(w, source)
}

func (a *app) writeMetrics() {
	if a.metricsFile == "" {
		return
	}
	if err := a.recorder.WriteToTextfile(a.metricsFile); err != nil {
		a.logger.Warn("failed to write metrics", "path", a.metricsFile, "error", err)
	}
}

// providerFactory builds the inference backend from settings.
type providerFactory func(settings config.Settings) (llm.Provider, error)

func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		BaseURL(settings.LLM.BaseURL).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

func loadSettings(opts Options) (config.Settings, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.ConfigPath != "" {
		settings, err = config.LoadOverlay(settings, opts.ConfigPath)
		if err != nil {
			return config.Settings{}, err
		}
	}
	if opts.DBPath != "" {
		settings.Storage.DBPath = opts.DBPath
	}
	return settings, nil
}

func openStore(opts Options) (*storage.SqliteStore, error) {
	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}
	return storage.OpenSqlite(settings.Storage.DBPath)
}

// app holds the components of one CLI invocation.
type app struct {
	settings    config.Settings
	logger      *slog.Logger
	client      *llm.Client
	fetcher     *loader.Fetcher
	store       *storage.SqliteStore
	recorder    *metrics.Recorder
	metricsFile string
	workflow    *orchestration.Workflow
}

func newApp(opts Options, stderr io.Writer, newProvider providerFactory) (*app, error) {
	logger, err := NewLogger(stderr, opts.LogFormat, opts.Verbose)
	if err != nil {
		return nil, err
	}
	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(settings)
	if err != nil {
		return nil, err
	}
	logger.Debug("provider ready", "provider", provider.Name(), "model", provider.Model())

	a := &app{
		settings:    settings,
		logger:      logger,
		recorder:    metrics.NewRecorder(),
		metricsFile: opts.MetricsFile,
	}

	a.client = llm.NewClient(provider).
		WithRetryPolicy(llm.RetryPolicy{
			MaxAttempts: settings.Workflow.MaxAttempts,
			OnRetry: func(err error, wait time.Duration) {
				logger.Warn("retrying inference", "error", err, "wait", wait)
			},
		}).
		WithObserver(a.recorder).
		WithLogger(logger)

	fetcher := loader.NewFetcher(settings.Loader.HTTPTimeout, settings.Loader.UserAgent).WithLogger(logger)
	a.fetcher, err = fetcher.WithCache(settings.Loader.CacheSize)
	if err != nil {
		return nil, err
	}

	a.store, err = storage.OpenSqlite(settings.Storage.DBPath)
	if err != nil {
		a.fetcher.Close()
		return nil, err
	}

	publisher, err := a.publisher(opts, stderr)
	if err != nil {
		a.close()
		return nil, err
	}

	docs := loader.NewDocuments(a.fetcher)
	wf := settings.Workflow

	summarizer := subagent.NewDocumentSummarizer(
		docs,
		subagent.NewTypeDetector(a.client).WithLogger(logger),
		subagent.NewSlideSummarizer(a.client).
			WithBatchSize(wf.SlideBatchSize).
			WithKeywords(wf.ExtraKeywords).
			WithObserver(a.recorder).
			WithLogger(logger),
		subagent.NewOutlineSummarizer(a.client).WithLogger(logger),
	).WithLogger(logger)

	planner := orchestration.NewPlanner(
		subagent.NewDiscoverer(a.client, docs, docs).WithLogger(logger),
		subagent.NewDocumentScorer(a.client).WithLogger(logger),
		orchestration.PlannerConfig{
			ScoreThreshold:  wf.DocScoreThreshold,
			MaxSelected:     wf.DocMaxSelected,
			MaxSummaryChars: wf.MaxSummaryChars,
		},
	).WithLogger(logger)

	executor := orchestration.NewExecutor(
		summarizer,
		subagent.NewOverviewGenerator(a.client).WithLogger(logger),
		publisher,
	).
		WithObserver(a.recorder).
		WithMaxParallel(wf.MaxParallelSteps).
		WithStepTimeout(wf.StepTimeout).
		WithLogger(logger)

	a.workflow = orchestration.NewWorkflow(planner, executor).WithStore(a.store).WithLogger(logger)
	return a, nil
}

// publisher picks stdout for dry runs and Bluesky otherwise. An "ssky"
// entry in the MCP config replaces the default docker command.
func (a *app) publisher(opts Options, stderr io.Writer) (publish.Publisher, error) {
	if opts.DryRun {
		return publish.NewStdoutPublisher(stderr), nil
	}

	server := publish.SskyServer(a.settings.Publish.SskyUser, a.settings.Publish.SskyImage)
	if opts.MCPConfig != "" {
		cfg, err := mcp.LoadConfig(opts.MCPConfig)
		if err != nil {
			return nil, err
		}
		if s, ok := cfg.Server("ssky"); ok {
			server = s
		}
	}
	a.logger.Debug("publisher ready", "publisher", "bluesky", "server", server.String())
	return publish.NewBlueskyPublisher(a.settings.Publish.SskyUser, server).WithLogger(a.logger), nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", "error", err)
		}
	}
	if a.fetcher != nil {
		a.fetcher.Close()
	}
}
