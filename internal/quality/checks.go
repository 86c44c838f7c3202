package quality

import (
	"fmt"
	"time"

	"github.com/brightdesk/workflow/pkg/models"
)

// CompletionRateCheck scores the fraction of subtasks that reached a
// satisfying outcome. Anything under full completion warns; under half
// fails.
type CompletionRateCheck struct{}

// Name implements Check.
func (CompletionRateCheck) Name() string { return "completion-rate" }

// Execute implements Check.
func (CompletionRateCheck) Execute(p *models.ExecutionPlan) models.CheckResult {
	rate := p.Progress()
	res := models.CheckResult{Score: rate}

	switch {
	case rate >= 1.0:
		res.Verdict = models.VerdictPass
		res.Message = "every step finished"
	case rate >= 0.5:
		res.Verdict = models.VerdictWarning
		res.Message = fmt.Sprintf("only %d of %d steps finished", satisfied(p), len(p.SubTasks))
	default:
		res.Verdict = models.VerdictFail
		res.Message = fmt.Sprintf("most steps did not finish (%d of %d)", satisfied(p), len(p.SubTasks))
	}
	return res
}

// ErrorRateCheck scores the fraction of subtasks that failed outright.
// Any failure warns; more than a quarter failing fails the check.
type ErrorRateCheck struct{}

// Name implements Check.
func (ErrorRateCheck) Name() string { return "error-rate" }

// Execute implements Check.
func (ErrorRateCheck) Execute(p *models.ExecutionPlan) models.CheckResult {
	if len(p.SubTasks) == 0 {
		return models.CheckResult{Verdict: models.VerdictSkipped, Score: 1.0, Message: "no steps to evaluate"}
	}

	failRate := float64(p.FailedCount()) / float64(len(p.SubTasks))
	res := models.CheckResult{Score: 1.0 - failRate}

	switch {
	case failRate == 0:
		res.Verdict = models.VerdictPass
		res.Message = "no step failures"
	case failRate <= 0.25:
		res.Verdict = models.VerdictWarning
		res.Message = fmt.Sprintf("%d step(s) failed", p.FailedCount())
	default:
		res.Verdict = models.VerdictFail
		res.Message = fmt.Sprintf("high failure rate: %d of %d steps failed", p.FailedCount(), len(p.SubTasks))
	}
	return res
}

// ExecutionTimeCheck compares each subtask's wall time against its own
// timeout budget; steps that crowd their budget drag the score down.
type ExecutionTimeCheck struct{}

// Name implements Check.
func (ExecutionTimeCheck) Name() string { return "execution-time" }

// Execute implements Check.
func (ExecutionTimeCheck) Execute(p *models.ExecutionPlan) models.CheckResult {
	evaluated := 0
	slow := 0
	for _, t := range p.SubTasks {
		if t.StartedAt == nil || t.CompletedAt == nil || t.Timeout <= 0 {
			continue
		}
		evaluated++
		elapsed := t.CompletedAt.Sub(*t.StartedAt)
		// Retries multiply the budget: each attempt gets the full timeout.
		budget := time.Duration(maxInt(t.RetryCount, 1)) * t.Timeout
		if elapsed > budget*8/10 {
			slow++
		}
	}

	if evaluated == 0 {
		return models.CheckResult{Verdict: models.VerdictSkipped, Score: 1.0, Message: "no timing data"}
	}

	score := 1.0 - float64(slow)/float64(evaluated)
	res := models.CheckResult{Score: score}
	switch {
	case slow == 0:
		res.Verdict = models.VerdictPass
		res.Message = "all steps well within their time budgets"
	case score >= 0.5:
		res.Verdict = models.VerdictWarning
		res.Message = fmt.Sprintf("%d step(s) ran close to their time budget", slow)
	default:
		res.Verdict = models.VerdictFail
		res.Message = fmt.Sprintf("%d of %d steps nearly exhausted their time budget", slow, evaluated)
	}
	return res
}

// DataIntegrityCheck verifies completed subtasks actually carry a result
// payload; a completed step with nothing to show is suspect.
type DataIntegrityCheck struct{}

// Name implements Check.
func (DataIntegrityCheck) Name() string { return "data-integrity" }

// Execute implements Check.
func (DataIntegrityCheck) Execute(p *models.ExecutionPlan) models.CheckResult {
	completed := 0
	missing := 0
	for _, t := range p.SubTasks {
		if t.Status != models.StatusCompleted {
			continue
		}
		completed++
		if len(t.Result) == 0 {
			missing++
		}
	}

	if completed == 0 {
		return models.CheckResult{Verdict: models.VerdictSkipped, Score: 1.0, Message: "no completed steps to verify"}
	}

	score := 1.0 - float64(missing)/float64(completed)
	res := models.CheckResult{Score: score}
	switch {
	case missing == 0:
		res.Verdict = models.VerdictPass
		res.Message = "all completed steps produced results"
	case score >= 0.5:
		res.Verdict = models.VerdictWarning
		res.Message = fmt.Sprintf("%d completed step(s) produced no result payload", missing)
	default:
		res.Verdict = models.VerdictFail
		res.Message = fmt.Sprintf("%d of %d completed steps produced no result payload", missing, completed)
	}
	return res
}

func satisfied(p *models.ExecutionPlan) int {
	n := 0
	for _, t := range p.SubTasks {
		if t.Status.Satisfies() {
			n++
		}
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
