package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brightdesk/workflow/internal/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showHistory()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show")
}

func showHistory() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath := cfg.State.Path
	if dbPath == "" {
		dbPath = state.DefaultPath()
	}

	store, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening run database: %w", err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs yet.")
		return nil
	}

	for _, r := range runs {
		mark := color.New(color.FgGreen).Sprint("✓")
		if !r.Success {
			mark = color.New(color.FgRed).Sprint("✗")
		}
		fmt.Printf("%s %s  %q\n", mark, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Request)
		fmt.Printf("   %s (%d done, %d failed, %d skipped, %s)\n",
			r.Message, r.Completed, r.Failed, r.Skipped, r.Duration)
	}
	return nil
}
