// Package main provides the entry point for the githist CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/palvaroni/git-history-parser/cmd/githist/commands"
	"github.com/palvaroni/git-history-parser/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "githist",
		Short: "githist - line-level provenance over git history",
		Long: `githist walks a repository's commit history oldest first and emits one
record per diff hunk: which commit introduced which line range, and when a
later commit first touched it.

Commands:
  parse     Walk the history and emit modification records
  plot      Render an HTML chart of modification activity`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "githist %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
