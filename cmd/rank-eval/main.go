package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rank-eval",
		Short: "Rank Eval - Search evaluation and metrics engine",
		Long: `Rank Eval runs search approaches over a query set, submits their
hits to a relevance judge, and computes ranking metrics (NDCG, MAP,
MRR) with statistical aggregation and cross-approach comparison.

Run 'rank-eval evaluate' to evaluate approaches from fixture files.
Run 'rank-eval --help' for available commands.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	rootCmd.AddCommand(
		evaluateCmd(),
		compareCmd(),
		reportCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rank-eval %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
