// Package main provides the entry point for the repolens CLI tool.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens/cmd/repolens/commands"
	"github.com/repolens/repolens/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "repolens",
		Short: "Repolens - tiered analysis of source-code record collections",
		Long: `Repolens ingests large collections of source-code records (JSON
archives or directory trees), computes structural and quality metrics
lazily, and supports filtering and export over the results.

Commands:
  scan      Ingest a source and print dataset statistics
  list      List matching records page by page
  show      Print one record's metadata and quality breakdown
  export    Write matching records to a directory`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogging()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewScanCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewShowCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configureLogging() {
	level := slog.LevelInfo

	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "repolens %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
