package commands

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/repolens/repolens/internal/score"
	"github.com/repolens/repolens/internal/stats"
)

// ScanCommand ingests a source, waits for background indexing, and prints
// dataset statistics, optionally restricted by filter flags.
type ScanCommand struct {
	configPath string
	noColor    bool
	asYAML     bool
	filters    filterFlags
}

// NewScanCommand creates the scan cobra command.
func NewScanCommand() *cobra.Command {
	sc := &ScanCommand{}

	cmd := &cobra.Command{
		Use:   "scan <source>",
		Short: "Ingest a JSON archive or directory and print statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sc.Run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&sc.configPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&sc.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&sc.asYAML, "yaml", false, "print statistics as YAML")
	sc.filters.register(cmd)

	return cmd
}

// Run executes the scan.
func (sc *ScanCommand) Run(cmd *cobra.Command, sourcePath string) error {
	ctx := cmd.Context()

	eng, _, err := openEngine(ctx, sourcePath, sc.configPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	st, err := sc.filters.state()
	if err != nil {
		return err
	}

	res := eng.Apply(st)

	// Fold background promotion into the filter result as it progresses.
	for {
		select {
		case n := <-eng.Promotions():
			res = eng.Reapply()
			slog.Debug("indexing", "promoted", n, "matching", len(res.Indices))
		case <-eng.Indexed():
			res = eng.Reapply()

			if sc.asYAML {
				return renderYAML(cmd.OutOrStdout(), eng.IngestResult().Skipped, eng.StatsFor(res.Indices))
			}

			sc.render(cmd.OutOrStdout(), eng.IngestResult().Skipped, eng.StatsFor(res.Indices), res.Filtered, eng.Len())

			if res.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "No records match the active filter. Clear filters to see all records.")
			}

			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// render prints the aggregate tables.
func (sc *ScanCommand) render(w io.Writer, skipped int, sum stats.Summary, filtered bool, total int) {
	if sc.noColor {
		color.NoColor = true
	}

	header := fmt.Sprintf("Records: %s", humanize.Comma(int64(sum.Records)))
	if filtered {
		header += fmt.Sprintf(" / %s (filtered)", humanize.Comma(int64(total)))
	}

	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "Total size: %s   Lines: %s   Skipped entries: %d\n",
		humanize.Bytes(uint64(sum.TotalBytes)), humanize.Comma(int64(sum.TotalLOC)), skipped)

	if sum.Degraded > 0 {
		fmt.Fprintf(w, "Degraded records: %d\n", sum.Degraded)
	}

	sc.renderTypes(w, sum)
	sc.renderGrades(w, sum)
}

func (sc *ScanCommand) renderTypes(w io.Writer, sum stats.Summary) {
	if len(sum.TypeCounts) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Code Type", "Records", "Share"})

	type row struct {
		name  string
		count int
	}

	rows := make([]row, 0, len(sum.TypeCounts))
	for name, count := range sum.TypeCounts {
		rows = append(rows, row{string(name), count})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].count > rows[j].count })

	for _, r := range rows {
		t.AppendRow(table.Row{r.name, r.count, fmt.Sprintf("%.1f%%", share(r.count, sum.Promoted))})
	}

	t.Render()
}

func (sc *ScanCommand) renderGrades(w io.Writer, sum stats.Summary) {
	if len(sum.GradeCounts) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Quality", "Records", "Share"})

	for _, g := range []score.Grade{score.GradeHigh, score.GradeModerate, score.GradeBasic} {
		count := sum.GradeCounts[g]
		if count == 0 {
			continue
		}

		t.AppendRow(table.Row{gradeLabel(g), count, fmt.Sprintf("%.1f%%", share(count, sum.Promoted))})
	}

	t.Render()
}

func gradeLabel(g score.Grade) string {
	switch g {
	case score.GradeHigh:
		return color.GreenString(string(g))
	case score.GradeModerate:
		return color.YellowString(string(g))
	default:
		return color.RedString(string(g))
	}
}

// yamlSummary is the machine-readable scan report.
type yamlSummary struct {
	Records    int            `yaml:"records"`
	TotalBytes int64          `yaml:"total_bytes"`
	TotalLines int            `yaml:"total_lines"`
	Skipped    int            `yaml:"skipped_entries"`
	Degraded   int            `yaml:"degraded_records"`
	Types      map[string]int `yaml:"types,omitempty"`
	Grades     map[string]int `yaml:"grades,omitempty"`
}

func renderYAML(w io.Writer, skipped int, sum stats.Summary) error {
	out := yamlSummary{
		Records:    sum.Records,
		TotalBytes: sum.TotalBytes,
		TotalLines: sum.TotalLOC,
		Skipped:    skipped,
		Degraded:   sum.Degraded,
	}

	if len(sum.TypeCounts) > 0 {
		out.Types = make(map[string]int, len(sum.TypeCounts))
		for name, count := range sum.TypeCounts {
			out.Types[string(name)] = count
		}
	}

	if len(sum.GradeCounts) > 0 {
		out.Grades = make(map[string]int, len(sum.GradeCounts))
		for grade, count := range sum.GradeCounts {
			out.Grades[string(grade)] = count
		}
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	_, err = w.Write(data)

	return err
}

func share(count, total int) float64 {
	if total == 0 {
		return 0
	}

	return float64(count) * 100 / float64(total)
}
