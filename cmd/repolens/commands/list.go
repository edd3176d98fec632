package commands

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/engine"
)

// ListCommand prints one page of matching records after indexing completes.
type ListCommand struct {
	configPath string
	page       int
	pageSize   int
	filters    filterFlags
}

// NewListCommand creates the list cobra command.
func NewListCommand() *cobra.Command {
	lc := &ListCommand{}

	cmd := &cobra.Command{
		Use:   "list <source>",
		Short: "List matching records page by page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return lc.Run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&lc.configPath, "config", "", "config file path")
	cmd.Flags().IntVar(&lc.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&lc.pageSize, "page-size", 0, "records per page (default from config)")
	lc.filters.register(cmd)

	return cmd
}

// Run executes the listing.
func (lc *ListCommand) Run(cmd *cobra.Command, sourcePath string) error {
	ctx := cmd.Context()

	eng, cfg, err := openEngine(ctx, sourcePath, lc.configPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	st, err := lc.filters.state()
	if err != nil {
		return err
	}

	if err := eng.WaitIndexed(ctx); err != nil {
		return err
	}

	res := eng.Apply(st)
	if res.Empty() {
		fmt.Fprintln(cmd.OutOrStdout(), "No records match the active filter. Clear filters to see all records.")
		return nil
	}

	size := lc.pageSize
	if size <= 0 {
		size = cfg.View.PageSize
	}

	indices, pages := paginate(res.Indices, lc.page, size)
	lc.render(cmd.OutOrStdout(), eng, indices)
	fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d records)\n", clampPage(lc.page, pages), pages, len(res.Indices))

	return nil
}

// paginate slices one page out of the index list. An out-of-range page is
// clamped rather than rejected.
func paginate(indices []int, page, size int) ([]int, int) {
	pages := (len(indices) + size - 1) / size
	if pages == 0 {
		pages = 1
	}

	page = clampPage(page, pages)

	start := (page - 1) * size
	end := min(start+size, len(indices))

	return indices[start:end], pages
}

func clampPage(page, pages int) int {
	if page < 1 {
		return 1
	}

	if page > pages {
		return pages
	}

	return page
}

func (lc *ListCommand) render(w io.Writer, eng *engine.Engine, indices []int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Path", "Repo", "Size", "Lines", "Type", "Quality"})

	for _, idx := range indices {
		rec, err := eng.T1(idx)
		if err != nil {
			continue
		}

		row := table.Row{idx, rec.Path, rec.RepoName, humanize.Bytes(uint64(rec.SizeBytes))}

		if m, ok := eng.T2(idx); ok {
			row = append(row, m.LOC, string(m.CodeType), fmt.Sprintf("%d%% %s", m.Percent(), gradeLabel(m.Grade())))
		} else {
			row = append(row, "-", "-", "-")
		}

		t.AppendRow(row)
	}

	t.Render()
}
