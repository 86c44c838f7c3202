package models

import "time"

// PlanStatus represents the current state of an execution plan.
type PlanStatus string

const (
	// PlanPending indicates the plan has not started executing.
	PlanPending PlanStatus = "pending"
	// PlanInProgress indicates the plan is executing.
	PlanInProgress PlanStatus = "in_progress"
	// PlanCompleted indicates every subtask reached a satisfying outcome.
	PlanCompleted PlanStatus = "completed"
	// PlanFailed indicates the plan stopped with unresolved failures.
	PlanFailed PlanStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanPending, PlanInProgress, PlanCompleted, PlanFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the plan status will never change again.
func (s PlanStatus) Terminal() bool {
	return s == PlanCompleted || s == PlanFailed
}

// ExecutionPlan is the validated dependency graph of subtasks derived from
// one request. The plan exclusively owns its subtasks; the slice is kept in
// topological order by the planner.
type ExecutionPlan struct {
	// ID is the unique identifier for this plan.
	ID string `json:"id"`
	// Name is a short derived title for the plan.
	Name string `json:"name"`
	// Description summarizes what the plan will do.
	Description string `json:"description,omitempty"`
	// Request is the original free-text request the plan was built from.
	Request string `json:"request"`
	// SubTasks are the plan's subtasks in topological order.
	SubTasks []*SubTask `json:"subtasks"`
	// Parallel allows same-wave subtasks to execute concurrently.
	Parallel bool `json:"parallel"`
	// ContinueOnFailure lets unrelated subtasks proceed after a failure.
	ContinueOnFailure bool `json:"continue_on_failure"`
	// Status is the current state of the plan.
	Status PlanStatus `json:"status"`
	// QualityCheck enables the quality-check phase after execution.
	QualityCheck bool `json:"quality_check"`
	// MinQualityScore is the score below which quality is escalated.
	MinQualityScore float64 `json:"min_quality_score,omitempty"`
	// Tenant is the routing context of the requesting organization.
	Tenant string `json:"tenant,omitempty"`
	// CreatedAt is when the plan was built.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when execution began, if it has.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the plan reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SubTask returns the subtask with the given ID, or nil.
func (p *ExecutionPlan) SubTask(id string) *SubTask {
	for _, t := range p.SubTasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Progress returns the fraction of subtasks in a satisfying terminal
// status, in the range 0.0 to 1.0. Skipped counts the same as Completed.
func (p *ExecutionPlan) Progress() float64 {
	if len(p.SubTasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range p.SubTasks {
		if t.Status.Satisfies() {
			done++
		}
	}
	return float64(done) / float64(len(p.SubTasks))
}

// CompletedCount returns the number of completed subtasks.
func (p *ExecutionPlan) CompletedCount() int {
	return p.countStatus(StatusCompleted)
}

// FailedCount returns the number of failed subtasks.
func (p *ExecutionPlan) FailedCount() int {
	return p.countStatus(StatusFailed)
}

func (p *ExecutionPlan) countStatus(s SubTaskStatus) int {
	n := 0
	for _, t := range p.SubTasks {
		if t.Status == s {
			n++
		}
	}
	return n
}

// Finished returns true when every subtask is in a terminal status.
func (p *ExecutionPlan) Finished() bool {
	for _, t := range p.SubTasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}
