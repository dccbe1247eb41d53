package commands

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/palvaroni/git-history-parser/pkg/history"
	"github.com/palvaroni/git-history-parser/pkg/provenance"
	"github.com/palvaroni/git-history-parser/pkg/safeconv"
)

const plotLineWidth = 2

// PlotCommand holds the configuration for the plot command.
type PlotCommand struct {
	output          string
	maxCommits      int
	renameThreshold int
	firstParent     bool
}

// NewPlotCommand creates and configures the plot command.
func NewPlotCommand() *cobra.Command {
	pc := &PlotCommand{}

	cobraCmd := &cobra.Command{
		Use:   "plot [repository]",
		Short: "Render an HTML chart of modification activity",
		Long: `Walk the repository's history and render an HTML line chart of lines
added, deleted, and modified per commit.`,
		RunE: pc.run,
	}

	cobraCmd.Flags().StringVarP(&pc.output, "output", "o", "githist-plot.html", "Output HTML file")
	cobraCmd.Flags().IntVar(&pc.maxCommits, "max-commits", 0, "Process at most N commits (0 = no limit)")
	cobraCmd.Flags().IntVar(&pc.renameThreshold, "rename-threshold", history.DefaultRenameThreshold,
		"Rename similarity threshold, 1-100")
	cobraCmd.Flags().BoolVar(&pc.firstParent, "first-parent", true, "Follow only the first parent of merge commits")

	return cobraCmd
}

// commitActivity aggregates line counts per processed commit.
type commitActivity struct {
	hash     string
	added    int
	deleted  int
	modified int
}

func (pc *PlotCommand) run(cmd *cobra.Command, args []string) error {
	repoPath, err := resolveRepoPath(args)
	if err != nil {
		return err
	}

	ledger := provenance.NewLedger()
	runner := history.NewRunner(history.Options{
		RepoPath:        repoPath,
		MaxCommits:      pc.maxCommits,
		RenameThreshold: safeconv.MustIntToUint16(pc.renameThreshold),
		FirstParent:     pc.firstParent,
	}, ledger, nil, nil, nil)

	_, err = runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("history run failed: %w", err)
	}

	activity := aggregateActivity(ledger.Records())

	line := buildActivityChart(activity)

	file, err := os.Create(pc.output)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	defer func() { _ = file.Close() }()

	err = line.Render(file)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	fmt.Fprintf(os.Stderr, "githist: plot written to %s\n", pc.output)

	return nil
}

// aggregateActivity sums line counts per commit sequence, in processing order.
func aggregateActivity(records []*provenance.Record) []commitActivity {
	bySeq := make(map[int]*commitActivity)

	for _, rec := range records {
		act, ok := bySeq[rec.Commit.Sequence]
		if !ok {
			act = &commitActivity{hash: rec.Commit.Hash}
			bySeq[rec.Commit.Sequence] = act
		}

		switch rec.Type {
		case provenance.Addition:
			act.added += rec.LineCount()
		case provenance.Deletion:
			act.deleted += rec.LineCount()
		case provenance.Modification:
			act.modified += rec.LineCount()
		}
	}

	seqs := make([]int, 0, len(bySeq))
	for seq := range bySeq {
		seqs = append(seqs, seq)
	}

	sort.Ints(seqs)

	activity := make([]commitActivity, 0, len(seqs))
	for _, seq := range seqs {
		activity = append(activity, *bySeq[seq])
	}

	return activity
}

func buildActivityChart(activity []commitActivity) *charts.Line {
	labels := make([]string, len(activity))
	added := make([]opts.LineData, len(activity))
	deleted := make([]opts.LineData, len(activity))
	modified := make([]opts.LineData, len(activity))

	shortHashLen := 8

	for i, act := range activity {
		label := strconv.Itoa(i)
		if len(act.hash) >= shortHashLen {
			label = act.hash[:shortHashLen]
		}

		labels[i] = label
		added[i] = opts.LineData{Value: act.added}
		deleted[i] = opts.LineData{Value: act.deleted}
		modified[i] = opts.LineData{Value: act.modified}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Modification Activity",
			Subtitle: "Lines added, deleted, and modified per commit",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Commit"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Lines"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(labels)
	line.AddSeries("Added", added,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: plotLineWidth}),
	)
	line.AddSeries("Deleted", deleted,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: plotLineWidth}),
	)
	line.AddSeries("Modified", modified,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: plotLineWidth}),
	)

	return line
}
