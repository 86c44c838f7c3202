package coordinate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brightdesk/workflow/internal/capability"
	"github.com/brightdesk/workflow/internal/decompose"
	"github.com/brightdesk/workflow/internal/executor"
	"github.com/brightdesk/workflow/pkg/models"
)

func TestShouldUseWorkflow(t *testing.T) {
	cases := []struct {
		request string
		want    bool
	}{
		{"send a welcome message to Dana", false},
		{"book a room for tomorrow", false},
		{"find a slot and then book the meeting", true},
		{"collect the numbers, after that email the report", true},
		{"message everyone on the support team", true},
		{"send the invoice in bulk to the vendors", true},
		{"do this:\n- step one\n- step two", true},
		{"check the balsolution account", false},
		{"pay the bill, then archive it", true},
	}
	for _, c := range cases {
		if got := ShouldUseWorkflow(c.request); got != c.want {
			t.Errorf("ShouldUseWorkflow(%q) = %t, want %t", c.request, got, c.want)
		}
	}
}

// recordingRecorder captures what was recorded.
type recordingRecorder struct {
	calls   int
	lastReq string
	planNil bool
	err     error
}

func (r *recordingRecorder) RecordRun(ctx context.Context, request string, p *models.ExecutionPlan, res *models.ExecutionResult) error {
	r.calls++
	r.lastReq = request
	r.planNil = p == nil
	return r.err
}

func newTestCoordinator(reg *capability.Registry) *Coordinator {
	d := decompose.New().WithRules(decompose.DefaultRules())
	return New(d, reg, executor.New(reg))
}

func TestExecuteRequestFastPath(t *testing.T) {
	var calls atomic.Int32
	reg := capability.NewRegistry()
	reg.Register(decompose.PassthroughCapability, capability.HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
		calls.Add(1)
		if tenant != "acme" {
			t.Errorf("tenant = %q, want acme", tenant)
		}
		return &capability.Result{Success: true, Message: "Sent the message to Dana."}, nil
	}))

	rec := &recordingRecorder{}
	c := newTestCoordinator(reg).WithRecorder(rec)

	res, err := c.ExecuteRequest(context.Background(), "send a welcome message to Dana",
		models.RequestContext{Tenant: "acme"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("fast path failed: %q", res.Message)
	}
	if res.Message != "Sent the message to Dana." {
		t.Errorf("message = %q, want the handler's own wording", res.Message)
	}
	if calls.Load() != 1 {
		t.Errorf("handler invoked %d times, want 1", calls.Load())
	}
	if rec.calls != 1 || !rec.planNil {
		t.Errorf("recorder calls=%d planNil=%t, want one plan-less record", rec.calls, rec.planNil)
	}
}

func TestExecuteRequestFastPathRetries(t *testing.T) {
	var calls atomic.Int32
	reg := capability.NewRegistry()
	reg.Register(decompose.PassthroughCapability, capability.HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
		if calls.Add(1) < 2 {
			return nil, errors.New("flaky backend")
		}
		return &capability.Result{Success: true}, nil
	}))

	c := newTestCoordinator(reg)
	res, err := c.ExecuteRequest(context.Background(), "book a room for tomorrow", models.RequestContext{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("should succeed on the second attempt: %q", res.Message)
	}
	if res.TotalRetries != 1 {
		t.Errorf("total retries = %d, want 1", res.TotalRetries)
	}
}

func TestExecuteRequestFullPipelineOnRuleMatch(t *testing.T) {
	reg := capability.NewRegistry()
	for _, name := range []string{"find_slot", "book_meeting", "send_message"} {
		reg.Register(name, capability.HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
			return &capability.Result{Success: true, Payload: map[string]any{"ok": true}}, nil
		}))
	}

	rec := &recordingRecorder{}
	c := newTestCoordinator(reg).WithRecorder(rec)

	res, err := c.ExecuteRequest(context.Background(),
		"schedule a meeting with the sales team and then invite the account owner",
		models.RequestContext{Tenant: "acme"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("pipeline failed: %q", res.Message)
	}
	if len(res.Completed) != 3 {
		t.Errorf("completed = %v, want all three scheduling steps", res.Completed)
	}
	if rec.calls != 1 || rec.planNil {
		t.Errorf("recorder calls=%d planNil=%t, want one record with a plan", rec.calls, rec.planNil)
	}
}

func TestExecuteRequestMultiActionCueForcesPipeline(t *testing.T) {
	// The cue alone routes through the planner even when decomposition
	// produced a single passthrough step.
	var calls atomic.Int32
	reg := capability.NewRegistry()
	reg.Register(decompose.PassthroughCapability, capability.HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
		calls.Add(1)
		return &capability.Result{Success: true, Payload: map[string]any{"ok": true}}, nil
	}))

	rec := &recordingRecorder{}
	c := newTestCoordinator(reg).WithRecorder(rec)

	res, err := c.ExecuteRequest(context.Background(), "water the plants and then whistle", models.RequestContext{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("pipeline failed: %q", res.Message)
	}
	if rec.planNil {
		t.Error("a cue-bearing request must be recorded with a plan")
	}
	if calls.Load() != 1 {
		t.Errorf("handler invoked %d times, want 1", calls.Load())
	}
}

func TestExecuteRequestRecorderFailureDoesNotFailRun(t *testing.T) {
	reg := capability.NewRegistry()
	reg.Register(decompose.PassthroughCapability, capability.HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
		return &capability.Result{Success: true}, nil
	}))

	rec := &recordingRecorder{err: errors.New("disk full")}
	c := newTestCoordinator(reg).WithRecorder(rec)

	res, err := c.ExecuteRequest(context.Background(), "ping the status page", models.RequestContext{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Error("a recorder failure is logged, never surfaced to the user")
	}
}

// The fast path applies the same hard timeout as the executor: a handler
// sleeping past its deadline is cut off, not waited out.
func TestExecuteRequestFastPathStuckHandlerTimesOut(t *testing.T) {
	reg := capability.NewRegistry()
	reg.Register(decompose.PassthroughCapability, capability.HandlerFunc(func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
		time.Sleep(600 * time.Millisecond)
		return &capability.Result{Success: true}, nil
	}))

	d := decompose.New().WithRules(decompose.DefaultRules()).WithOptions(decompose.Options{
		MaxRetries: 1,
		Timeout:    20 * time.Millisecond,
		Strategy:   models.RecoveryRetry,
	})
	c := New(d, reg, executor.New(reg))

	start := time.Now()
	res, err := c.ExecuteRequest(context.Background(), "ping the status page", models.RequestContext{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("a handler that outlives its timeout must not report success")
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("fast path took %v, want a return near the 20ms timeout", elapsed)
	}
}

func TestExecuteRequestFastPathMissingHandler(t *testing.T) {
	c := newTestCoordinator(capability.NewRegistry())

	res, err := c.ExecuteRequest(context.Background(), "ping the status page", models.RequestContext{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Error("missing handler cannot succeed")
	}
	if res.Message == "" {
		t.Error("failure still carries a readable message")
	}
}
