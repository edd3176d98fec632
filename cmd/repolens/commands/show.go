package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/score"
)

// ShowCommand prints one record's metadata and itemized quality breakdown.
type ShowCommand struct {
	configPath string
	noColor    bool
}

// NewShowCommand creates the show cobra command.
func NewShowCommand() *cobra.Command {
	sc := &ShowCommand{}

	cmd := &cobra.Command{
		Use:   "show <source> <index>",
		Short: "Show metadata and the quality breakdown for one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("parse index %q: %w", args[1], err)
			}

			return sc.Run(cmd, args[0], idx)
		},
	}

	cmd.Flags().StringVar(&sc.configPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&sc.noColor, "no-color", false, "disable colored output")

	return cmd
}

// Run executes the show command. The breakdown request drives synchronous
// promotion through any missing tier for just this record.
func (sc *ShowCommand) Run(cmd *cobra.Command, sourcePath string, idx int) error {
	if sc.noColor {
		color.NoColor = true
	}

	ctx := cmd.Context()

	eng, _, err := openEngine(ctx, sourcePath, sc.configPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	rec, err := eng.T1(idx)
	if err != nil {
		return err
	}

	m, err := eng.T3(ctx, idx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Repo:     %s\n", orNA(rec.RepoName))
	fmt.Fprintf(w, "Path:     %s\n", orNA(rec.Path))
	fmt.Fprintf(w, "Size:     %s (%d bytes)\n", humanize.Bytes(uint64(rec.SizeBytes)), rec.SizeBytes)
	fmt.Fprintf(w, "License:  %s\n", orNA(rec.License))
	fmt.Fprintf(w, "Lines:    %d\n", m.LOC)
	fmt.Fprintf(w, "Type:     %s\n", m.CodeType)
	fmt.Fprintf(w, "Quality:  %d/%d (%d%%, %s)\n", m.Points, score.MaxPoints, m.Percent(), m.Grade())

	if m.Degraded {
		fmt.Fprintln(w, "Note:     metric computation was degraded for this record")
	}

	fmt.Fprintln(w, "\nQuality breakdown:")
	renderBreakdown(w, m.Breakdown)

	return nil
}

func renderBreakdown(w io.Writer, items []score.Item) {
	for _, item := range items {
		mark := color.GreenString("+")
		if item.Awarded == 0 {
			mark = color.RedString("-")
		}

		fmt.Fprintf(w, "  %s %-28s %2d/%2d\n", mark, item.Metric, item.Awarded, item.Possible)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}

	return s
}
