package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/brightdesk/workflow/internal/capability"
	"github.com/brightdesk/workflow/internal/config"
	"github.com/brightdesk/workflow/internal/coordinate"
	"github.com/brightdesk/workflow/internal/decompose"
	"github.com/brightdesk/workflow/internal/escalate"
	"github.com/brightdesk/workflow/internal/executor"
	"github.com/brightdesk/workflow/internal/oracle"
	"github.com/brightdesk/workflow/internal/plan"
	"github.com/brightdesk/workflow/internal/progress"
	"github.com/brightdesk/workflow/internal/quality"
	"github.com/brightdesk/workflow/internal/recovery"
	"github.com/brightdesk/workflow/internal/state"
	"github.com/brightdesk/workflow/internal/worklog"
	"github.com/brightdesk/workflow/pkg/models"
)

var (
	runTenant  string
	runTimeout time.Duration
	runLogFile string
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Execute a request through the workflow core",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&runTenant, "tenant", "default", "Tenant the request runs under")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "Overall request deadline")
	runCmd.Flags().StringVar(&runLogFile, "log", "", "Write a step-level worklog to this file")
}

func runRequest(request string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	wl, err := worklog.New(runLogFile)
	if err != nil {
		return fmt.Errorf("opening worklog: %w", err)
	}
	defer wl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	registry := capability.NewRegistry()
	registerDemoHandlers(registry)

	decomposer, err := buildDecomposer(cfg, registry)
	if err != nil {
		return err
	}

	escalationDir := cfg.Escalation.Dir
	if escalationDir == "" {
		escalationDir = ".brightdesk/escalations"
	}
	channel, err := escalate.NewFileChannel(escalationDir)
	if err != nil {
		return fmt.Errorf("setting up escalation channel: %w", err)
	}
	escalations := escalate.NewManager(channel, cfg.Escalation.Target)
	if err := channel.Watch(ctx, escalations); err != nil {
		log.Printf("[cli] escalation response watcher unavailable: %v", err)
	}

	handler := recovery.NewHandler(recovery.NewBackoff(cfg.Backoff.Base, cfg.Backoff.Cap), nil)

	exec := executor.New(registry).
		WithTracker(progress.NewTracker(cfg.Progress.ThresholdPercent, cfg.Progress.Staleness)).
		WithEscalations(escalations).
		WithRecovery(handler).
		WithLogger(wl).
		WithProgressSink(printProgress)
	if cfg.Quality.Enabled {
		exec = exec.WithChecker(quality.Default())
	}

	planOpts := plan.Options{
		Parallel:          cfg.Defaults.Parallel,
		ContinueOnFailure: cfg.Defaults.ContinueOnFailure,
		QualityCheck:      cfg.Quality.Enabled,
		MinQualityScore:   cfg.Quality.MinScore,
	}
	coordinator := coordinate.New(decomposer, registry, exec).
		WithPlanOptions(planOpts).
		WithLogger(wl)

	if cfg.State.Enabled {
		dbPath := cfg.State.Path
		if dbPath == "" {
			dbPath = state.DefaultPath()
		}
		store, err := state.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening run database: %w", err)
		}
		defer store.Close()
		coordinator = coordinator.WithRecorder(store)
	}

	res, execErr := coordinator.ExecuteRequest(ctx, request, models.RequestContext{Tenant: runTenant})
	printResult(res)
	if execErr != nil {
		return fmt.Errorf("request failed: %w", execErr)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

func buildDecomposer(cfg *config.Config, registry *capability.Registry) (*decompose.Decomposer, error) {
	rules := decompose.DefaultRules()
	if cfg.Rules.File != "" {
		extra, err := decompose.LoadRules(cfg.Rules.File)
		if err != nil {
			return nil, fmt.Errorf("loading rule file: %w", err)
		}
		rules = append(rules, extra...)
	}

	opts := decompose.Options{
		MaxRetries: cfg.Defaults.MaxRetries,
		Timeout:    cfg.Defaults.Timeout,
		Strategy:   models.RecoveryRetry,
	}
	d := decompose.New().WithRules(rules).WithOptions(opts)

	if cfg.Oracle.Enabled {
		o, err := oracle.New(oracle.Config{
			Model:      anthropic.Model(cfg.Oracle.Model),
			APIKey:     cfg.Oracle.APIKey,
			UseBedrock: cfg.Oracle.UseBedrock,
			AWSRegion:  cfg.Oracle.AWSRegion,
			AWSProfile: cfg.Oracle.AWSProfile,
		}, registry.Names())
		if err != nil {
			return nil, fmt.Errorf("setting up oracle: %w", err)
		}
		d = d.WithOracle(o)
	}
	return d, nil
}

func printProgress(report *models.ProgressReport) {
	c := color.New(color.FgCyan)
	c.Printf("▸ %d%%: %s\n", report.Percent, report.CurrentActivity)
	for _, issue := range report.Issues {
		color.New(color.FgYellow).Printf("  ⚠ %s\n", issue)
	}
}

func printResult(res *models.ExecutionResult) {
	if res == nil {
		return
	}
	fmt.Println()
	if res.Success {
		color.New(color.FgGreen, color.Bold).Println("✓ " + res.Message)
	} else {
		color.New(color.FgRed, color.Bold).Println("✗ " + res.Message)
	}

	if len(res.Completed) > 0 {
		color.New(color.FgGreen).Printf("  completed: %v\n", res.Completed)
	}
	if len(res.Skipped) > 0 {
		color.New(color.FgYellow).Printf("  skipped:   %v\n", res.Skipped)
	}
	if len(res.Failed) > 0 {
		color.New(color.FgRed).Printf("  failed:    %v\n", res.Failed)
	}
	if res.Quality != nil {
		fmt.Printf("  quality:   %.2f (%s)\n", res.Quality.Score, res.Quality.Verdict)
	}
	if res.TotalRetries > 0 {
		fmt.Printf("  retries:   %d\n", res.TotalRetries)
	}
	fmt.Printf("  duration:  %s\n", res.Duration.Round(time.Millisecond))

	for _, esc := range res.Escalations {
		fmt.Println()
		color.New(color.FgMagenta).Printf("%s %s\n", esc.Severity.Marker(), esc.Title)
		fmt.Printf("  respond with: workflow respond %s <option>\n", esc.ID)
	}
	for _, s := range res.Suggestions {
		fmt.Printf("  hint: %s\n", s)
	}
}
