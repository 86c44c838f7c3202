package models

import "time"

// Verdict is the outcome of a quality check or an aggregate quality report.
type Verdict string

const (
	// VerdictPass indicates the check found no problems.
	VerdictPass Verdict = "pass"
	// VerdictWarning indicates non-blocking concerns.
	VerdictWarning Verdict = "warning"
	// VerdictFail indicates the check found a serious problem.
	VerdictFail Verdict = "fail"
	// VerdictSkipped indicates the check did not apply.
	VerdictSkipped Verdict = "skipped"
)

// Valid returns true if the verdict is a known value.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictPass, VerdictWarning, VerdictFail, VerdictSkipped:
		return true
	default:
		return false
	}
}

// CheckResult is the outcome of one quality check over a plan.
type CheckResult struct {
	// Name identifies the check that produced this result.
	Name string `json:"name"`
	// Verdict is the check's outcome.
	Verdict Verdict `json:"verdict"`
	// Score is the check's quality score in 0.0-1.0.
	Score float64 `json:"score"`
	// Message explains the result.
	Message string `json:"message,omitempty"`
}

// QualityReport aggregates the results of all quality checks run against a
// finished plan. Reports are immutable once produced.
type QualityReport struct {
	// Verdict is the aggregate outcome: Fail if any check failed, else
	// Warning if any warned, else Pass.
	Verdict Verdict `json:"verdict"`
	// Score is the arithmetic mean of the individual check scores.
	Score float64 `json:"score"`
	// Checks holds the individual check results in execution order.
	Checks []CheckResult `json:"checks"`
	// Issues lists blocking problems found by failing checks.
	Issues []string `json:"issues,omitempty"`
	// Warnings lists non-blocking concerns.
	Warnings []string `json:"warnings,omitempty"`
}

// ProgressReport is a transient snapshot of plan progress. It is derived
// on demand and never authoritative.
type ProgressReport struct {
	// PlanID references the plan this snapshot describes.
	PlanID string `json:"plan_id"`
	// Total is the number of subtasks in the plan.
	Total int `json:"total"`
	// Completed is the number of completed subtasks.
	Completed int `json:"completed"`
	// Failed is the number of failed subtasks.
	Failed int `json:"failed"`
	// Skipped is the number of skipped subtasks.
	Skipped int `json:"skipped"`
	// InProgress is the number of currently executing subtasks.
	InProgress int `json:"in_progress"`
	// Percent is the overall progress percentage, 0-100.
	Percent int `json:"percent"`
	// CurrentActivity is a one-line description of current work.
	CurrentActivity string `json:"current_activity"`
	// Issues lists problems accrued so far.
	Issues []string `json:"issues,omitempty"`
	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time `json:"generated_at"`
}

// ExecutionResult is the terminal, immutable summary of one request run.
type ExecutionResult struct {
	// Success indicates the run finished without unresolved failures or
	// pending human decisions.
	Success bool `json:"success"`
	// Message is the user-facing summary. Always present, never exposes
	// internal identifiers or stack traces.
	Message string `json:"message"`
	// PlanID references the executed plan, if one was built.
	PlanID string `json:"plan_id,omitempty"`
	// Completed lists the names of completed subtasks.
	Completed []string `json:"completed,omitempty"`
	// Failed lists the names of failed subtasks.
	Failed []string `json:"failed,omitempty"`
	// Skipped lists the names of skipped subtasks.
	Skipped []string `json:"skipped,omitempty"`
	// QualityScore is the aggregate quality score, if quality ran.
	QualityScore float64 `json:"quality_score,omitempty"`
	// Quality is the full quality report, if quality ran.
	Quality *QualityReport `json:"quality,omitempty"`
	// Escalations lists escalations raised during the run.
	Escalations []*EscalationRequest `json:"escalations,omitempty"`
	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`
	// TotalRetries is the sum of retry counters across subtasks.
	TotalRetries int `json:"total_retries"`
	// Suggestions are follow-up actions offered to the user.
	Suggestions []string `json:"suggestions,omitempty"`
}
