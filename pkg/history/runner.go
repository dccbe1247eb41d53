package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/palvaroni/git-history-parser/pkg/gitlib"
	"github.com/palvaroni/git-history-parser/pkg/observability"
	"github.com/palvaroni/git-history-parser/pkg/provenance"
)

// Runner executes one pass of the provenance engine over a repository.
type Runner struct {
	opts    Options
	ledger  *provenance.Ledger
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.RunMetrics
}

// NewRunner creates a runner over the given ledger. The ledger may carry
// restored state; StartSequence must then be past its highest sequence.
// Logger, tracer, and metrics may be nil.
func NewRunner(opts Options, ledger *provenance.Ledger, logger *slog.Logger,
	tracer trace.Tracer, metrics *observability.RunMetrics,
) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("history")
	}

	if opts.RenameThreshold == 0 {
		opts.RenameThreshold = DefaultRenameThreshold
	}

	return &Runner{
		opts:    opts,
		ledger:  ledger,
		logger:  logger,
		tracer:  tracer,
		metrics: metrics,
	}
}

// Ledger returns the ledger the runner feeds.
func (r *Runner) Ledger() *provenance.Ledger {
	return r.ledger
}

// Run walks the commit log oldest first and applies every textual hunk to the
// ledger. It returns a summary of the pass; the emitted records live in the
// ledger.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()

	ctx, span := r.tracer.Start(ctx, "history.run",
		trace.WithAttributes(attribute.String("repo.path", r.opts.RepoPath)))
	defer span.End()

	repo, err := gitlib.OpenRepository(r.opts.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer repo.Free()

	iter, err := repo.Log(&gitlib.LogOptions{FirstParent: r.opts.FirstParent})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer iter.Close()

	summary := &Summary{}

	err = r.walk(ctx, repo, iter, summary)
	if err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(started)
	span.SetAttributes(
		attribute.Int("commits.processed", summary.CommitsProcessed),
		attribute.Int("records.emitted", summary.RecordsEmitted),
	)

	return summary, nil
}

func (r *Runner) walk(ctx context.Context, repo *gitlib.Repository, iter *gitlib.CommitIter, summary *Summary) error {
	skipped := 0

	for {
		if ctx.Err() != nil {
			return fmt.Errorf("history walk: %w", ctx.Err())
		}

		if r.opts.MaxCommits > 0 && summary.CommitsProcessed >= r.opts.MaxCommits {
			return nil
		}

		commit, err := iter.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("advance commit log: %w", err)
		}

		if skipped < r.opts.Skip {
			skipped++
			commit.Free()

			continue
		}

		err = r.processCommit(ctx, repo, commit, summary)
		commit.Free()

		if err != nil {
			return err
		}

		if r.opts.Progress != nil {
			r.opts.Progress(summary.CommitsProcessed, summary.LastCommit)
		}
	}
}

func (r *Runner) processCommit(ctx context.Context, repo *gitlib.Repository, commit *gitlib.Commit, summary *Summary) error {
	hash := commit.Hash().String()
	author := commit.Author()

	provCommit := &provenance.Commit{
		Hash:     hash,
		Author:   author.Email,
		Date:     author.When.UTC(),
		Sequence: r.opts.StartSequence + summary.CommitsProcessed,
	}

	changes, err := repo.DiffWithParent(commit, r.opts.RenameThreshold)
	if err != nil {
		return fmt.Errorf("diff commit %s: %w", hash, err)
	}

	for i := range changes {
		err = r.processChange(ctx, provCommit, &changes[i], summary)
		if err != nil {
			return err
		}
	}

	summary.CommitsProcessed++
	summary.LastCommit = hash
	r.metrics.AddCommit(ctx)

	return nil
}

// processChange applies one file's diff to the ledger. A rename re-keys the
// ownership table before any content hunks riding on the same delta are
// applied; records created in that window carry both the old and the new path.
func (r *Runner) processChange(ctx context.Context, commit *provenance.Commit,
	change *gitlib.FileChange, summary *Summary,
) error {
	paths := []string{change.Path()}

	switch change.Kind {
	case gitlib.ChangeAdd:
		if !change.Binary {
			r.ledger.BeginFile(change.NewPath)
		}
	case gitlib.ChangeRename:
		r.ledger.Rename(change.OldPath, change.NewPath)

		if len(change.Hunks) > 0 {
			paths = []string{change.OldPath, change.NewPath}
		}
	case gitlib.ChangeDelete, gitlib.ChangeModify:
	}

	if r.ledger.IsDropped(change.Path()) {
		return nil
	}

	if change.Binary {
		return nil
	}

	for _, hunk := range change.Hunks {
		cl, err := provenance.Classify(provenance.Hunk{
			OldStart: hunk.OldStart,
			OldCount: hunk.OldCount,
			NewStart: hunk.NewStart,
			NewCount: hunk.NewCount,
		})
		if err != nil {
			summary.HunksSkipped++
			r.metrics.AddSkippedHunk(ctx)
			r.logger.WarnContext(ctx, "skipping malformed hunk",
				"commit", commit.Hash, "path", change.Path(), "err", err)

			continue
		}

		if cl == nil {
			continue
		}

		_, err = r.ledger.Apply(commit, paths, cl)

		var recErr *provenance.ReconciliationError
		if errors.As(err, &recErr) {
			if r.opts.Strict {
				return fmt.Errorf("commit %s: %w", commit.Hash, err)
			}

			r.ledger.Drop(change.Path())
			summary.FilesDropped++
			r.metrics.AddDroppedFile(ctx)
			r.logger.WarnContext(ctx, "dropping file from provenance tracking",
				"commit", commit.Hash, "path", change.Path(), "err", err)

			break
		}

		if err != nil {
			return fmt.Errorf("commit %s: apply hunk: %w", commit.Hash, err)
		}

		summary.RecordsEmitted++
		r.metrics.AddRecords(ctx, 1)
	}

	return nil
}
