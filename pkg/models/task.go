// Package models defines the shared data model for the workflow core:
// subtasks, execution plans, escalations, and the report types derived
// from them.
package models

import "time"

// SubTaskStatus represents the current state of a subtask.
type SubTaskStatus string

const (
	// StatusPending indicates the subtask has not started.
	StatusPending SubTaskStatus = "pending"
	// StatusInProgress indicates the subtask is being executed.
	StatusInProgress SubTaskStatus = "in_progress"
	// StatusCompleted indicates the subtask completed successfully.
	StatusCompleted SubTaskStatus = "completed"
	// StatusFailed indicates the subtask failed after exhausting retries.
	StatusFailed SubTaskStatus = "failed"
	// StatusSkipped indicates an optional subtask was skipped after failure.
	StatusSkipped SubTaskStatus = "skipped"
	// StatusEscalated indicates the subtask was handed to a human.
	StatusEscalated SubTaskStatus = "escalated"
)

// Valid returns true if the status is a known value.
func (s SubTaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped, StatusEscalated:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status will never change again.
func (s SubTaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped, StatusEscalated:
		return true
	default:
		return false
	}
}

// Satisfies returns true if a dependency in this status unblocks its
// dependents. Skipped counts the same as Completed.
func (s SubTaskStatus) Satisfies() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// RecoveryStrategy is the policy applied to a subtask after retry exhaustion.
type RecoveryStrategy string

const (
	// RecoveryRetry leaves the subtask failed with no further automated action.
	RecoveryRetry RecoveryStrategy = "retry"
	// RecoveryAlternative looks up a registered alternative for the failure.
	RecoveryAlternative RecoveryStrategy = "alternative"
	// RecoverySkip marks an optional subtask as skipped.
	RecoverySkip RecoveryStrategy = "skip"
	// RecoveryEscalate hands the failure to a human.
	RecoveryEscalate RecoveryStrategy = "escalate"
	// RecoveryAbort fails the whole plan immediately.
	RecoveryAbort RecoveryStrategy = "abort"
)

// Valid returns true if the strategy is a known value.
func (r RecoveryStrategy) Valid() bool {
	switch r {
	case RecoveryRetry, RecoveryAlternative, RecoverySkip, RecoveryEscalate, RecoveryAbort:
		return true
	default:
		return false
	}
}

// SubTask is the smallest schedulable unit, bound to exactly one named
// capability. SubTasks are created by the decomposer and mutated only by
// the executor; they are never deleted from their plan.
type SubTask struct {
	// ID is the unique identifier for this subtask.
	ID string `json:"id"`
	// Name is the short description of the subtask.
	Name string `json:"name"`
	// Description provides detailed information about the subtask.
	Description string `json:"description,omitempty"`
	// Capability is the name of the handler that performs this subtask.
	Capability string `json:"capability"`
	// Params are passed to the capability handler.
	Params map[string]any `json:"params,omitempty"`
	// DependsOn lists subtask IDs that must finish before this one runs.
	DependsOn []string `json:"depends_on,omitempty"`
	// Status is the current state of the subtask.
	Status SubTaskStatus `json:"status"`
	// Priority orders subtasks of equal readiness; lower runs first.
	Priority int `json:"priority,omitempty"`
	// Optional marks the subtask as skippable on failure.
	Optional bool `json:"optional,omitempty"`
	// MaxRetries is the maximum number of execution attempts.
	MaxRetries int `json:"max_retries"`
	// Timeout bounds each individual execution attempt.
	Timeout time.Duration `json:"timeout"`
	// Strategy is applied after all retries are exhausted.
	Strategy RecoveryStrategy `json:"strategy"`
	// Result holds the handler payload after successful completion.
	Result map[string]any `json:"result,omitempty"`
	// Error contains the last error message if the subtask failed.
	Error string `json:"error,omitempty"`
	// RetryCount is the number of attempts made so far.
	RetryCount int `json:"retry_count,omitempty"`
	// CreatedAt is when the subtask was created.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when execution first began, if it has.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the subtask reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Ready reports whether the subtask can be dispatched: it must be pending
// and every dependency must be satisfied per the done callback.
func (t *SubTask) Ready(done func(id string) bool) bool {
	if t.Status != StatusPending {
		return false
	}
	for _, dep := range t.DependsOn {
		if !done(dep) {
			return false
		}
	}
	return true
}
