package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/engine"
)

// noIndex marks the --index flag as unset.
const noIndex = -1

// ExportCommand writes matching records to a directory with sanitized,
// collision-free filenames.
type ExportCommand struct {
	configPath string
	index      int
	filters    filterFlags
}

// NewExportCommand creates the export cobra command.
func NewExportCommand() *cobra.Command {
	ec := &ExportCommand{}

	cmd := &cobra.Command{
		Use:   "export <source> <dir>",
		Short: "Export matching records into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ec.Run(cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&ec.configPath, "config", "", "config file path")
	cmd.Flags().IntVar(&ec.index, "index", noIndex, "export a single record by index")
	ec.filters.register(cmd)

	return cmd
}

// Run executes the export.
func (ec *ExportCommand) Run(cmd *cobra.Command, sourcePath, dir string) error {
	ctx := cmd.Context()

	eng, _, err := openEngine(ctx, sourcePath, ec.configPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	indices, err := ec.selectIndices(ctx, eng)
	if err != nil {
		return err
	}

	if len(indices) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No records match the active filter. Clear filters to see all records.")
		return nil
	}

	sum, err := eng.Export(indices, dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s (%d failed)\n", sum.Written, dir, sum.Failed)

	return nil
}

// selectIndices resolves the export set: a single --index, or the filter
// result. Type and quality predicates need T2 metrics, so that path waits
// for background indexing to finish first.
func (ec *ExportCommand) selectIndices(ctx context.Context, eng *engine.Engine) ([]int, error) {
	if ec.index != noIndex {
		if _, err := eng.T1(ec.index); err != nil {
			return nil, err
		}

		return []int{ec.index}, nil
	}

	st, err := ec.filters.state()
	if err != nil {
		return nil, err
	}

	if len(st.Types) > 0 || st.QualityEnabled {
		if err := eng.WaitIndexed(ctx); err != nil {
			return nil, err
		}
	}

	return eng.Apply(st).Indices, nil
}
