package quality

import (
	"testing"
	"time"

	"github.com/brightdesk/workflow/pkg/models"
)

// stubCheck returns a fixed result.
type stubCheck struct {
	name    string
	verdict models.Verdict
	score   float64
}

func (s stubCheck) Name() string { return s.name }
func (s stubCheck) Execute(p *models.ExecutionPlan) models.CheckResult {
	return models.CheckResult{Verdict: s.verdict, Score: s.score, Message: s.name}
}

func TestNewCheckerRejectsEmpty(t *testing.T) {
	if _, err := NewChecker(); err == nil {
		t.Error("expected error for empty check list")
	}
}

func TestCheckPlanAggregateFailDominates(t *testing.T) {
	c, err := NewChecker(
		stubCheck{"a", models.VerdictPass, 1.0},
		stubCheck{"b", models.VerdictFail, 0.2},
		stubCheck{"c", models.VerdictWarning, 0.8},
	)
	if err != nil {
		t.Fatal(err)
	}

	report := c.CheckPlan(&models.ExecutionPlan{})
	if report.Verdict != models.VerdictFail {
		t.Errorf("verdict = %q, want fail whenever any check fails", report.Verdict)
	}
	if len(report.Issues) != 1 || len(report.Warnings) != 1 {
		t.Errorf("issues/warnings = %d/%d, want 1/1", len(report.Issues), len(report.Warnings))
	}
}

func TestCheckPlanMeanScore(t *testing.T) {
	c, _ := NewChecker(
		stubCheck{"a", models.VerdictPass, 1.0},
		stubCheck{"b", models.VerdictPass, 0.5},
	)

	report := c.CheckPlan(&models.ExecutionPlan{})
	if report.Score != 0.75 {
		t.Errorf("score = %v, want mean 0.75", report.Score)
	}
	if report.Verdict != models.VerdictPass {
		t.Errorf("verdict = %q, want pass", report.Verdict)
	}
}

func TestCheckPlanWarningWithoutFail(t *testing.T) {
	c, _ := NewChecker(
		stubCheck{"a", models.VerdictPass, 1.0},
		stubCheck{"b", models.VerdictWarning, 0.6},
	)

	report := c.CheckPlan(&models.ExecutionPlan{})
	if report.Verdict != models.VerdictWarning {
		t.Errorf("verdict = %q, want warning", report.Verdict)
	}
}

func TestCompletionRateCheck(t *testing.T) {
	p := &models.ExecutionPlan{SubTasks: []*models.SubTask{
		{Status: models.StatusCompleted},
		{Status: models.StatusSkipped},
	}}
	res := CompletionRateCheck{}.Execute(p)
	if res.Verdict != models.VerdictPass || res.Score != 1.0 {
		t.Errorf("full completion (skips included) should pass with 1.0, got %q %v", res.Verdict, res.Score)
	}

	p.SubTasks = append(p.SubTasks, &models.SubTask{Status: models.StatusFailed},
		&models.SubTask{Status: models.StatusFailed}, &models.SubTask{Status: models.StatusFailed})
	res = CompletionRateCheck{}.Execute(p)
	if res.Verdict != models.VerdictFail {
		t.Errorf("40%% completion should fail, got %q", res.Verdict)
	}
}

func TestErrorRateCheck(t *testing.T) {
	p := &models.ExecutionPlan{SubTasks: []*models.SubTask{
		{Status: models.StatusCompleted},
		{Status: models.StatusCompleted},
		{Status: models.StatusFailed},
	}}
	res := ErrorRateCheck{}.Execute(p)
	if res.Verdict != models.VerdictFail {
		t.Errorf("one third failing should fail the error-rate check, got %q", res.Verdict)
	}

	p.SubTasks[2].Status = models.StatusCompleted
	res = ErrorRateCheck{}.Execute(p)
	if res.Verdict != models.VerdictPass || res.Score != 1.0 {
		t.Errorf("no failures should pass with 1.0, got %q %v", res.Verdict, res.Score)
	}
}

func TestExecutionTimeCheckSkipsWithoutTimings(t *testing.T) {
	p := &models.ExecutionPlan{SubTasks: []*models.SubTask{{Status: models.StatusCompleted}}}
	res := ExecutionTimeCheck{}.Execute(p)
	if res.Verdict != models.VerdictSkipped {
		t.Errorf("no timing data should skip, got %q", res.Verdict)
	}
}

func TestExecutionTimeCheckFlagsSlowSteps(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	slowEnd := start.Add(29 * time.Second)
	fastEnd := start.Add(1 * time.Second)

	p := &models.ExecutionPlan{SubTasks: []*models.SubTask{
		{Status: models.StatusCompleted, Timeout: 30 * time.Second, RetryCount: 1, StartedAt: &start, CompletedAt: &slowEnd},
		{Status: models.StatusCompleted, Timeout: 30 * time.Second, RetryCount: 1, StartedAt: &start, CompletedAt: &fastEnd},
	}}
	res := ExecutionTimeCheck{}.Execute(p)
	if res.Verdict != models.VerdictWarning {
		t.Errorf("one slow of two should warn, got %q", res.Verdict)
	}
	if res.Score != 0.5 {
		t.Errorf("score = %v, want 0.5", res.Score)
	}
}

func TestDataIntegrityCheck(t *testing.T) {
	p := &models.ExecutionPlan{SubTasks: []*models.SubTask{
		{Status: models.StatusCompleted, Result: map[string]any{"ok": true}},
		{Status: models.StatusCompleted},
	}}
	res := DataIntegrityCheck{}.Execute(p)
	if res.Verdict != models.VerdictWarning {
		t.Errorf("half missing payloads should warn, got %q", res.Verdict)
	}

	p.SubTasks[1].Result = map[string]any{"ok": true}
	res = DataIntegrityCheck{}.Execute(p)
	if res.Verdict != models.VerdictPass {
		t.Errorf("all payloads present should pass, got %q", res.Verdict)
	}
}

func TestDefaultCheckerRuns(t *testing.T) {
	p := &models.ExecutionPlan{SubTasks: []*models.SubTask{
		{Status: models.StatusCompleted, Result: map[string]any{"ok": true}},
	}}
	report := Default().CheckPlan(p)
	if len(report.Checks) != 4 {
		t.Fatalf("expected 4 default checks, got %d", len(report.Checks))
	}
	if report.Verdict != models.VerdictPass {
		t.Errorf("clean plan should pass, got %q", report.Verdict)
	}
}
