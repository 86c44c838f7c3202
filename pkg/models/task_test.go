package models

import (
	"testing"
	"time"
)

func TestSubTaskStatusValid(t *testing.T) {
	valid := []SubTaskStatus{StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped, StatusEscalated}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if SubTaskStatus("blocked").Valid() {
		t.Error("blocked is a derived condition, not a stored status")
	}
}

func TestSubTaskStatusTerminal(t *testing.T) {
	cases := []struct {
		status   SubTaskStatus
		terminal bool
	}{
		{StatusPending, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusSkipped, true},
		{StatusEscalated, true},
	}
	for _, c := range cases {
		if got := c.status.Terminal(); got != c.terminal {
			t.Errorf("%s: Terminal() = %v, want %v", c.status, got, c.terminal)
		}
	}
}

func TestSatisfiesTreatsSkippedAsCompleted(t *testing.T) {
	if !StatusSkipped.Satisfies() {
		t.Error("skipped dependencies should satisfy readiness")
	}
	if !StatusCompleted.Satisfies() {
		t.Error("completed dependencies should satisfy readiness")
	}
	if StatusFailed.Satisfies() {
		t.Error("failed dependencies should not satisfy readiness")
	}
	if StatusEscalated.Satisfies() {
		t.Error("escalated dependencies should not satisfy readiness")
	}
}

func TestSubTaskReady(t *testing.T) {
	done := map[string]bool{"a": true, "b": false}
	doneFn := func(id string) bool { return done[id] }

	task := &SubTask{ID: "c", Status: StatusPending, DependsOn: []string{"a"}}
	if !task.Ready(doneFn) {
		t.Error("expected task with satisfied dependency to be ready")
	}

	task.DependsOn = []string{"a", "b"}
	if task.Ready(doneFn) {
		t.Error("expected task with unsatisfied dependency to not be ready")
	}

	task.DependsOn = []string{"a"}
	task.Status = StatusInProgress
	if task.Ready(doneFn) {
		t.Error("only pending tasks can be ready")
	}
}

func TestPlanProgressCountsSkipped(t *testing.T) {
	plan := &ExecutionPlan{
		SubTasks: []*SubTask{
			{ID: "1", Status: StatusCompleted},
			{ID: "2", Status: StatusSkipped},
			{ID: "3", Status: StatusFailed},
			{ID: "4", Status: StatusPending},
		},
	}

	if got := plan.Progress(); got != 0.5 {
		t.Errorf("Progress() = %v, want 0.5", got)
	}
	if got := plan.CompletedCount(); got != 1 {
		t.Errorf("CompletedCount() = %d, want 1", got)
	}
	if got := plan.FailedCount(); got != 1 {
		t.Errorf("FailedCount() = %d, want 1", got)
	}
}

func TestPlanFinished(t *testing.T) {
	plan := &ExecutionPlan{
		SubTasks: []*SubTask{
			{ID: "1", Status: StatusCompleted},
			{ID: "2", Status: StatusPending},
		},
	}
	if plan.Finished() {
		t.Error("plan with pending subtask should not be finished")
	}

	plan.SubTasks[1].Status = StatusEscalated
	if !plan.Finished() {
		t.Error("plan with all-terminal subtasks should be finished")
	}
}

func TestPlanSubTaskLookup(t *testing.T) {
	task := &SubTask{ID: "x", Name: "lookup me", CreatedAt: time.Now()}
	plan := &ExecutionPlan{SubTasks: []*SubTask{task}}

	if got := plan.SubTask("x"); got != task {
		t.Error("expected lookup to return the owned subtask")
	}
	if got := plan.SubTask("missing"); got != nil {
		t.Errorf("expected nil for unknown id, got %v", got)
	}
}

func TestSeverityMarker(t *testing.T) {
	if SeverityDecision.Marker() != "[DECISION NEEDED]" {
		t.Errorf("unexpected decision marker %q", SeverityDecision.Marker())
	}
	if SeverityInfo.Marker() != "[FYI]" {
		t.Errorf("unexpected info marker %q", SeverityInfo.Marker())
	}
}
