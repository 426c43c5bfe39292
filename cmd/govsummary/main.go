// Package main provides the govsummary CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/govsummary/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider    string
	verbose     bool
	logFormat   string
	configPath  string
	dbPath      string
	metricsFile string
	dryRun      bool
	mcpConfig   string
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	// Interrupts cancel the run; completed levels stay checkpointed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func globalOptions() cli.Options {
	opts := cli.DefaultOptions()
	opts.Provider = provider
	opts.Verbose = verbose
	opts.LogFormat = logFormat
	opts.ConfigPath = configPath
	opts.DBPath = dbPath
	opts.MetricsFile = metricsFile
	opts.DryRun = dryRun
	opts.MCPConfig = mcpConfig
	return opts
}

func rootCmd() *cobra.Command {
	var overviewOnly, skipPublish, batch bool

	cmd := &cobra.Command{
		Use:   "govsummary [url-or-path]",
		Short: "Summarize Japanese government meeting pages and documents",
		Long: `Summarize a government meeting page or a single PDF document.

A meeting page is read once to find its main content and related documents.
The agenda and minutes are always summarized, other documents only when they
score high enough. A PDF is summarized on its own.

The summary and its source are printed on stdout; logs go to stderr.
Unless --skip-publish is given, the summary is posted to Bluesky through the
ssky MCP server (set SSKY_USER), or written to stderr with --dry-run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := globalOptions()
			opts.OverviewOnly = overviewOnly
			opts.SkipPublish = skipPublish
			opts.Batch = batch
			return cli.Summarize(cmd.Context(), args[0], opts, os.Stdout, os.Stderr)
		},
	}

	cmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini, ollama); defaults to LLM_PROVIDER")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML file overriding workflow settings")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Checkpoint database path (default $GOVSUMMARY_DB or .govsummary/runs.db)")
	cmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when the run ends")

	cmd.Flags().BoolVar(&overviewOnly, "overview-only", false, "Summarize the meeting page only, no documents")
	cmd.Flags().BoolVar(&skipPublish, "skip-publish", false, "Do not publish the summary")
	cmd.Flags().BoolVar(&batch, "batch", false, "Batch mode: no interactive review")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Write the post to stderr instead of publishing it")
	cmd.PersistentFlags().StringVar(&mcpConfig, "mcp-config", "", "Path to MCP config file (an \"ssky\" server overrides the docker default)")

	cmd.AddCommand(resumeCmd())
	cmd.AddCommand(runsCmd())

	return cmd
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [run-id]",
		Short: "Continue an interrupted run from its last checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Resume(cmd.Context(), args[0], globalOptions(), os.Stdout, os.Stderr)
		},
	}
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List checkpointed runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListRuns(cmd.Context(), globalOptions(), os.Stdout)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [run-id]",
		Short: "Delete a checkpointed run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.DeleteRun(cmd.Context(), args[0], globalOptions(), os.Stdout)
		},
	})

	return cmd
}
