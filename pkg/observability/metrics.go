package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// RunMetrics holds the counters of one history run.
type RunMetrics struct {
	commits      metric.Int64Counter
	records      metric.Int64Counter
	filesDropped metric.Int64Counter
	hunksSkipped metric.Int64Counter
}

// NewRunMetrics creates the run counters on the given meter.
func NewRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	commits, err := meter.Int64Counter("githist.commits.processed",
		metric.WithDescription("Commits consumed from the diff event source"))
	if err != nil {
		return nil, fmt.Errorf("create commits counter: %w", err)
	}

	records, err := meter.Int64Counter("githist.records.emitted",
		metric.WithDescription("Modification records emitted by the ledger"))
	if err != nil {
		return nil, fmt.Errorf("create records counter: %w", err)
	}

	filesDropped, err := meter.Int64Counter("githist.files.dropped",
		metric.WithDescription("Files whose provenance tracking was dropped after a reconciliation failure"))
	if err != nil {
		return nil, fmt.Errorf("create files counter: %w", err)
	}

	hunksSkipped, err := meter.Int64Counter("githist.hunks.skipped",
		metric.WithDescription("Hunks skipped due to structural validation failures"))
	if err != nil {
		return nil, fmt.Errorf("create hunks counter: %w", err)
	}

	return &RunMetrics{
		commits:      commits,
		records:      records,
		filesDropped: filesDropped,
		hunksSkipped: hunksSkipped,
	}, nil
}

// AddCommit counts one processed commit.
func (m *RunMetrics) AddCommit(ctx context.Context) {
	if m == nil {
		return
	}

	m.commits.Add(ctx, 1)
}

// AddRecords counts emitted records.
func (m *RunMetrics) AddRecords(ctx context.Context, n int64) {
	if m == nil {
		return
	}

	m.records.Add(ctx, n)
}

// AddDroppedFile counts one file dropped from tracking.
func (m *RunMetrics) AddDroppedFile(ctx context.Context) {
	if m == nil {
		return
	}

	m.filesDropped.Add(ctx, 1)
}

// AddSkippedHunk counts one skipped hunk.
func (m *RunMetrics) AddSkippedHunk(ctx context.Context) {
	if m == nil {
		return
	}

	m.hunksSkipped.Add(ctx, 1)
}
