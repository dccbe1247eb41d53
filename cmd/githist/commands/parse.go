// Package commands implements the githist CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/palvaroni/git-history-parser/pkg/checkpoint"
	"github.com/palvaroni/git-history-parser/pkg/config"
	"github.com/palvaroni/git-history-parser/pkg/csvout"
	"github.com/palvaroni/git-history-parser/pkg/history"
	"github.com/palvaroni/git-history-parser/pkg/observability"
	"github.com/palvaroni/git-history-parser/pkg/provenance"
	"github.com/palvaroni/git-history-parser/pkg/safeconv"
)

// ErrRepositoryRequired is returned when no repository path resolves.
var ErrRepositoryRequired = errors.New("repository path required")

// summaryElapsedPrecision is the rounding applied to the elapsed time shown
// in the run summary.
const summaryElapsedPrecision = time.Millisecond

// ParseCommand holds the configuration for the parse command.
type ParseCommand struct {
	configPath string
}

// NewParseCommand creates and configures the parse command.
func NewParseCommand() *cobra.Command {
	pc := &ParseCommand{}

	cobraCmd := &cobra.Command{
		Use:   "parse [repository]",
		Short: "Walk the history and emit modification records",
		Long: `Walk the repository's commit history oldest first, classify every diff
hunk, and emit one record per hunk with line-level provenance: the commit
that introduced the range and the timestamp of the first later commit that
touched it.`,
		RunE: pc.run,
	}

	cobraCmd.Flags().StringVarP(&pc.configPath, "config", "c", "", "Config file path")
	cobraCmd.Flags().StringP("output", "o", "-", "Output file ('-' = stdout)")
	cobraCmd.Flags().StringP("format", "f", "csv", "Output format (csv, yaml)")
	cobraCmd.Flags().Bool("append", false, "Append to the output file, writing the header only when it is empty")
	cobraCmd.Flags().Int("skip", 0, "Skip the N oldest commits")
	cobraCmd.Flags().Int("max-commits", 0, "Process at most N commits (0 = no limit)")
	cobraCmd.Flags().Int("rename-threshold", 0, "Rename similarity threshold, 1-100 (0 = config default)")
	cobraCmd.Flags().Bool("strict", false, "Abort on ownership reconciliation failures instead of dropping the file")
	cobraCmd.Flags().Bool("first-parent", true, "Follow only the first parent of merge commits")

	// Checkpoint flags.
	cobraCmd.Flags().Bool("checkpoint", false, "Save ledger state after the run for resumable chunked processing")
	cobraCmd.Flags().String("checkpoint-dir", "", "Checkpoint directory (default: ~/.githist/checkpoints)")
	cobraCmd.Flags().Bool("resume", true, "Resume from checkpoint if available")
	cobraCmd.Flags().Bool("clear-checkpoint", false, "Clear existing checkpoint before run")

	return cobraCmd
}

// run executes the parse command.
func (pc *ParseCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := pc.loadConfig(cmd)
	if err != nil {
		return err
	}

	repoPath, err := resolveRepoPath(args)
	if err != nil {
		return err
	}

	providers, err := observability.Init(observability.Config{
		Service:            "githist",
		Env:                cfg.Telemetry.Environment,
		OTLPEndpoint:       cfg.Telemetry.OTLPEndpoint,
		PrometheusListen:   cfg.Telemetry.PrometheusListen,
		LogLevel:           cfg.Logging.Level,
		LogFormat:          cfg.Logging.Format,
		ShutdownTimeoutSec: cfg.Telemetry.ShutdownTimeoutSec,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Error("telemetry shutdown failed", "err", shutdownErr)
		}
	}()

	metrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create run metrics: %w", err)
	}

	return pc.execute(cmd.Context(), cfg, repoPath, providers, metrics)
}

// execute runs the engine with optional checkpoint resume and emits records.
func (pc *ParseCommand) execute(ctx context.Context, cfg *config.Config, repoPath string,
	providers observability.Providers, metrics *observability.RunMetrics,
) error {
	cpManager := checkpointManager(cfg, repoPath)

	ledger, resumedMeta, err := resumeOrFresh(cfg, cpManager, providers)
	if err != nil {
		return err
	}

	recordsBefore := len(ledger.Records())

	opts := history.Options{
		RepoPath:        repoPath,
		Skip:            cfg.History.Skip + resumedMeta.CommitsProcessed,
		MaxCommits:      cfg.History.MaxCommits,
		RenameThreshold: safeconv.MustIntToUint16(cfg.History.RenameThreshold),
		Strict:          cfg.History.Strict,
		FirstParent:     cfg.History.FirstParent,
		StartSequence:   ledger.NextSequence(),
	}

	runner := history.NewRunner(opts, ledger, providers.Logger, providers.Tracer, metrics)

	summary, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("history run failed: %w", err)
	}

	if cpManager != nil {
		saveErr := cpManager.Save(ledger.State(), checkpoint.Meta{
			LastCommit:       summary.LastCommit,
			CommitsProcessed: resumedMeta.CommitsProcessed + summary.CommitsProcessed,
		})
		if saveErr != nil {
			providers.Logger.Warn("failed to save checkpoint", "err", saveErr)
		}
	}

	records := ledger.Records()
	if cfg.Output.Append {
		// Chunked append mode: emit only records this run produced.
		records = records[recordsBefore:]
	}

	err = emitRecords(cfg, records)
	if err != nil {
		return err
	}

	printSummary(summary, len(records))

	return nil
}

// loadConfig loads the config file and overlays explicitly-set flags.
func (pc *ParseCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(pc.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("output") {
		cfg.Output.Path, _ = flags.GetString("output")
	}

	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}

	if flags.Changed("append") {
		cfg.Output.Append, _ = flags.GetBool("append")
	}

	if flags.Changed("skip") {
		cfg.History.Skip, _ = flags.GetInt("skip")
	}

	if flags.Changed("max-commits") {
		cfg.History.MaxCommits, _ = flags.GetInt("max-commits")
	}

	if flags.Changed("rename-threshold") {
		cfg.History.RenameThreshold, _ = flags.GetInt("rename-threshold")
	}

	if flags.Changed("strict") {
		cfg.History.Strict, _ = flags.GetBool("strict")
	}

	if flags.Changed("first-parent") {
		cfg.History.FirstParent, _ = flags.GetBool("first-parent")
	}

	if flags.Changed("checkpoint") {
		cfg.Checkpoint.Enabled, _ = flags.GetBool("checkpoint")
	}

	if flags.Changed("checkpoint-dir") {
		cfg.Checkpoint.Directory, _ = flags.GetString("checkpoint-dir")
	}

	if flags.Changed("resume") {
		cfg.Checkpoint.Resume, _ = flags.GetBool("resume")
	}

	if clear, _ := flags.GetBool("clear-checkpoint"); clear {
		cfg.Checkpoint.Resume = false

		repoPath, pathErr := resolveRepoPath(flags.Args())
		if pathErr == nil {
			if mgr := checkpointManager(cfg, repoPath); mgr != nil {
				_ = mgr.Clear()
			}
		}
	}

	return cfg, config.Revalidate(cfg)
}

// checkpointManager builds the manager when checkpointing is enabled.
func checkpointManager(cfg *config.Config, repoPath string) *checkpoint.Manager {
	if !cfg.Checkpoint.Enabled {
		return nil
	}

	dir := cfg.Checkpoint.Directory
	if dir == "" {
		dir = checkpoint.DefaultDir()
	}

	return checkpoint.NewManager(dir, repoPath)
}

// resumeOrFresh restores the ledger from a checkpoint when one applies,
// otherwise starts empty.
func resumeOrFresh(cfg *config.Config, cpManager *checkpoint.Manager,
	providers observability.Providers,
) (*provenance.Ledger, checkpoint.Meta, error) {
	if cpManager == nil || !cfg.Checkpoint.Resume || !cpManager.Exists() {
		return provenance.NewLedger(), checkpoint.Meta{}, nil
	}

	ledger, meta, err := cpManager.Load()
	if err != nil {
		providers.Logger.Warn("checkpoint resume failed, starting fresh", "err", err)

		return provenance.NewLedger(), checkpoint.Meta{}, nil
	}

	providers.Logger.Info("resuming from checkpoint",
		"commits_processed", meta.CommitsProcessed, "last_commit", meta.LastCommit)

	return ledger, meta, nil
}

// emitRecords writes records in the configured format to the configured sink.
func emitRecords(cfg *config.Config, records []*provenance.Record) error {
	if cfg.Output.Format == "yaml" {
		if cfg.Output.Path == "-" {
			return csvout.WriteYAML(os.Stdout, records)
		}

		file, err := os.Create(cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() { _ = file.Close() }()

		return csvout.WriteYAML(file, records)
	}

	if cfg.Output.Path == "-" {
		return csvout.NewWriter(os.Stdout).WriteAll(records)
	}

	return csvout.WriteFile(cfg.Output.Path, records, cfg.Output.Append)
}

// printSummary renders the run summary to stderr, keeping stdout clean for
// record output.
func printSummary(summary *history.Summary, emitted int) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateHeader = false

	tbl.AppendRow(table.Row{"commits processed", humanize.Comma(int64(summary.CommitsProcessed))})
	tbl.AppendRow(table.Row{"records emitted", humanize.Comma(int64(emitted))})
	tbl.AppendRow(table.Row{"files dropped", humanize.Comma(int64(summary.FilesDropped))})
	tbl.AppendRow(table.Row{"hunks skipped", humanize.Comma(int64(summary.HunksSkipped))})
	tbl.AppendRow(table.Row{"elapsed", summary.Elapsed.Round(summaryElapsedPrecision).String()})

	fmt.Fprintln(os.Stderr, color.GreenString("githist: run complete"))
	fmt.Fprintln(os.Stderr, tbl.Render())
}

// resolveRepoPath resolves the repository path from command args.
func resolveRepoPath(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}

		path = strings.Replace(path, "~", home, 1)
	}

	if path == "" {
		return "", ErrRepositoryRequired
	}

	return filepath.Clean(path), nil
}
