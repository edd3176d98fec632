// Package commands implements CLI command handlers for repolens.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/repolens/repolens/internal/classify"
	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/engine"
	"github.com/repolens/repolens/internal/filter"
	"github.com/repolens/repolens/internal/ingest"
)

// ErrUnknownTextMode indicates an unsupported --mode value.
var ErrUnknownTextMode = errors.New("unknown text match mode (want path, content, or repo)")

// filterFlags collects the shared filter predicate flags.
type filterFlags struct {
	query         string
	mode          string
	caseSensitive bool
	types         []string
	minSize       string
	maxSize       string
	minQuality    int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.query, "query", "", "text query")
	cmd.Flags().StringVar(&f.mode, "mode", "path", "text match mode: path, content, or repo")
	cmd.Flags().BoolVar(&f.caseSensitive, "case-sensitive", false, "case-sensitive text matching")
	cmd.Flags().StringSliceVar(&f.types, "types", nil, "code types to keep, e.g. Testing,Web/API")
	cmd.Flags().StringVar(&f.minSize, "min-size", "", "minimum record size, e.g. 1KB")
	cmd.Flags().StringVar(&f.maxSize, "max-size", "", "maximum record size, e.g. 100MB")
	cmd.Flags().IntVar(&f.minQuality, "min-quality", 0, "minimum quality score percentage")
}

// state converts the flags into an immutable FilterState.
func (f *filterFlags) state() (filter.State, error) {
	st := filter.State{
		Query:         f.query,
		CaseSensitive: f.caseSensitive,
	}

	switch strings.ToLower(f.mode) {
	case "", "path":
		st.Mode = filter.ModePath
	case "content":
		st.Mode = filter.ModeContent
	case "repo":
		st.Mode = filter.ModeRepoName
	default:
		return filter.State{}, fmt.Errorf("%w: %q", ErrUnknownTextMode, f.mode)
	}

	for _, t := range f.types {
		st.Types = append(st.Types, classify.CodeType(strings.TrimSpace(t)))
	}

	if f.minSize != "" || f.maxSize != "" {
		st.SizeEnabled = true
		st.MaxSize = int64(^uint64(0) >> 1)

		if f.minSize != "" {
			n, err := humanize.ParseBytes(f.minSize)
			if err != nil {
				return filter.State{}, fmt.Errorf("parse --min-size: %w", err)
			}

			st.MinSize = int64(n)
		}

		if f.maxSize != "" {
			n, err := humanize.ParseBytes(f.maxSize)
			if err != nil {
				return filter.State{}, fmt.Errorf("parse --max-size: %w", err)
			}

			st.MaxSize = int64(n)
		}
	}

	if f.minQuality > 0 {
		st.QualityEnabled = true
		st.MinQualityPct = f.minQuality
	}

	return st, nil
}

// openEngine loads configuration and ingests the source, logging progress
// events at debug level as they arrive.
func openEngine(ctx context.Context, sourcePath, configPath string) (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	progress := make(chan ingest.Progress, 1)
	defer close(progress)

	go func() {
		for p := range progress {
			slog.Debug("ingest progress", "done", p.Done, "total", p.Total)
		}
	}()

	eng, err := engine.Open(ctx, ingest.Source{Path: sourcePath}, engine.Options{
		Config:   cfg,
		Progress: progress,
	})
	if err != nil {
		return nil, nil, err
	}

	return eng, cfg, nil
}
