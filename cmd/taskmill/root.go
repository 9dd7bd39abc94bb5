package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskmill",
	Short: "Dependency-aware batch runner for code tasks",
	Long: `Taskmill executes batches of code tasks (debugging, analysis,
documentation generation) against an LLM provider, honoring the
dependency graph between tasks.

Tasks in a batch declare dependencies on each other; taskmill validates
the graph, runs independent tasks in parallel when asked to, skips the
dependents of failed tasks, and produces one deterministic report per
batch. Reports are recorded to a local history database.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
