package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Brightdesk workflow orchestration core",
	Long: `Workflow turns a free-text business request into an executed plan:
it decomposes the request into steps, orders them by dependency, runs
them with retries and recovery, and hands anything it cannot decide to
a human through escalations.

Simple one-action requests skip the pipeline and execute directly.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: workflow.yaml in XDG config dir or cwd)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
