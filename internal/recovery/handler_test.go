package recovery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brightdesk/workflow/pkg/models"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	b := NewBackoff(1*time.Second, 10*time.Second)

	cases := []struct {
		step int
		want time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{9, 10 * time.Second},
		{0, 1 * time.Second},
	}
	for _, c := range cases {
		if got := b.Delay(c.step); got != c.want {
			t.Errorf("Delay(%d) = %v, want %v", c.step, got, c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Category
	}{
		{errors.New("dial tcp: connection refused"), CategoryTransient},
		{errors.New("request timed out"), CategoryTransient},
		{errors.New("429 too many requests"), CategoryTransient},
		{context.DeadlineExceeded, CategoryTransient},
		{errors.New("permission denied for calendar"), CategoryPermission},
		{errors.New("403 Forbidden"), CategoryPermission},
		{errors.New("invalid meeting time"), CategoryData},
		{errors.New("user not found"), CategoryData},
		{errors.New("something exploded"), CategoryUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("Classify(%q) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestClassifyPermissionBeforeData(t *testing.T) {
	// "access denied: invalid token" matches both permission and data
	// markers; permission must win so it is never silently retried.
	if got := Classify(errors.New("access denied: invalid token")); got != CategoryPermission {
		t.Errorf("Classify = %q, want permission", got)
	}
}

func TestHandleTransientBackoffGrowsWithFailures(t *testing.T) {
	h := NewHandler(NewBackoff(1*time.Second, 30*time.Second), nil)
	err := errors.New("connection reset by peer")

	p := &models.ExecutionPlan{ID: "p1"}
	res := h.Handle(err, p, models.RequestContext{})
	if res.Action != ActionRetry || res.Delay != 1*time.Second {
		t.Errorf("no failures yet: action=%q delay=%v, want retry/1s", res.Action, res.Delay)
	}

	p.SubTasks = []*models.SubTask{
		{Status: models.StatusFailed}, {Status: models.StatusFailed},
	}
	res = h.Handle(err, p, models.RequestContext{})
	if res.Delay != 4*time.Second {
		t.Errorf("two failed steps: delay=%v, want 4s (doubled per step)", res.Delay)
	}
}

func TestHandlePermissionEscalates(t *testing.T) {
	h := NewHandler(NewBackoff(0, 0), nil)
	res := h.Handle(errors.New("unauthorized"), &models.ExecutionPlan{}, models.RequestContext{})

	if res.Action != ActionEscalate {
		t.Errorf("action = %q, want escalate", res.Action)
	}
	if res.Severity != models.SeverityDecision {
		t.Errorf("severity = %q, want decision", res.Severity)
	}
}

func TestHandleDataWithAlternative(t *testing.T) {
	alts := NewAlternatives()
	alts.Register("room not found", "book_virtual_room")
	h := NewHandler(NewBackoff(0, 0), alts)

	res := h.Handle(fmt.Errorf("booking failed: room not found"), &models.ExecutionPlan{}, models.RequestContext{})
	if res.Action != ActionAlternative {
		t.Fatalf("action = %q, want alternative", res.Action)
	}
	if res.Alternative != "book_virtual_room" {
		t.Errorf("alternative = %q, want book_virtual_room", res.Alternative)
	}
}

func TestHandleDataWithoutAlternativeEscalates(t *testing.T) {
	h := NewHandler(NewBackoff(0, 0), nil)
	res := h.Handle(errors.New("invalid payload shape"), &models.ExecutionPlan{}, models.RequestContext{})

	if res.Action != ActionEscalate {
		t.Errorf("action = %q, want escalate when no alternative is registered", res.Action)
	}
}

func TestHandleUnknownEscalatesUrgent(t *testing.T) {
	h := NewHandler(NewBackoff(0, 0), nil)
	res := h.Handle(errors.New("kaboom"), &models.ExecutionPlan{ID: "p"}, models.RequestContext{})

	if res.Action != ActionEscalate {
		t.Errorf("action = %q, want escalate: unknown errors are never swallowed", res.Action)
	}
	if res.Severity != models.SeverityUrgent {
		t.Errorf("severity = %q, want urgent", res.Severity)
	}
}

func TestAlternativesLookupCaseInsensitive(t *testing.T) {
	alts := NewAlternatives()
	alts.Register("Room Not Found", "book_virtual_room")

	if _, ok := alts.Lookup("error: ROOM NOT FOUND at step"); !ok {
		t.Error("lookup should be case-insensitive")
	}
	if _, ok := alts.Lookup("different error"); ok {
		t.Error("lookup should miss unrelated errors")
	}
}
