package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var respondRationale string

var respondCmd = &cobra.Command{
	Use:   "respond <escalation-id> <option>",
	Short: "Answer a pending escalation",
	Long: `Respond drops a response file into the escalation inbox. A running
workflow instance watching that inbox picks it up and resolves the
escalation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeResponse(args[0], args[1])
	},
}

func init() {
	respondCmd.Flags().StringVar(&respondRationale, "why", "", "Optional rationale recorded with the response")
}

func writeResponse(escalationID, option string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.Escalation.Dir
	if dir == "" {
		dir = ".brightdesk/escalations"
	}
	inbox := filepath.Join(dir, "inbox")
	if err := os.MkdirAll(inbox, 0o755); err != nil {
		return fmt.Errorf("creating inbox: %w", err)
	}

	var b strings.Builder
	b.WriteString(escalationID + "\n")
	b.WriteString(option + "\n")
	if respondRationale != "" {
		b.WriteString(respondRationale + "\n")
	}

	path := filepath.Join(inbox, fmt.Sprintf("response-%d.txt", time.Now().UnixNano()))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}

	color.New(color.FgGreen).Printf("✓ response written to %s\n", path)
	return nil
}
