// Package quality evaluates finished plans with an ordered, pluggable
// list of checks. Evaluation is pure: the plan is never mutated.
package quality

import (
	"errors"

	"github.com/brightdesk/workflow/pkg/models"
)

// Check is one quality evaluation over a finished plan.
type Check interface {
	// Name identifies the check in reports.
	Name() string
	// Execute evaluates the plan and returns a verdict, a score in
	// 0.0-1.0, and a message.
	Execute(p *models.ExecutionPlan) models.CheckResult
}

// Checker runs its checks in order and aggregates their results.
type Checker struct {
	checks []Check
}

// NewChecker creates a Checker. The check list must not be empty.
func NewChecker(checks ...Check) (*Checker, error) {
	if len(checks) == 0 {
		return nil, errors.New("quality checker needs at least one check")
	}
	return &Checker{checks: checks}, nil
}

// Default returns a Checker with the stock check list: completion rate,
// error rate, execution time, and data integrity.
func Default() *Checker {
	c, _ := NewChecker(
		CompletionRateCheck{},
		ErrorRateCheck{},
		ExecutionTimeCheck{},
		DataIntegrityCheck{},
	)
	return c
}

// CheckPlan runs every check and aggregates. The verdict is Fail if any
// check failed, Warning if any warned, otherwise Pass; the score is the
// arithmetic mean of individual scores.
func (c *Checker) CheckPlan(p *models.ExecutionPlan) *models.QualityReport {
	report := &models.QualityReport{Verdict: models.VerdictPass}

	total := 0.0
	for _, check := range c.checks {
		res := check.Execute(p)
		res.Name = check.Name()
		report.Checks = append(report.Checks, res)
		total += res.Score

		switch res.Verdict {
		case models.VerdictFail:
			report.Verdict = models.VerdictFail
			report.Issues = append(report.Issues, res.Message)
		case models.VerdictWarning:
			if report.Verdict != models.VerdictFail {
				report.Verdict = models.VerdictWarning
			}
			report.Warnings = append(report.Warnings, res.Message)
		}
	}

	report.Score = total / float64(len(c.checks))
	return report
}
