// Package coordinate is the entry point of the workflow core: it decides
// whether a request needs the full decompose-plan-execute pipeline or a
// cheap direct execution, runs the chosen path, and records the outcome.
package coordinate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brightdesk/workflow/internal/capability"
	"github.com/brightdesk/workflow/internal/decompose"
	"github.com/brightdesk/workflow/internal/executor"
	"github.com/brightdesk/workflow/internal/plan"
	"github.com/brightdesk/workflow/internal/worklog"
	"github.com/brightdesk/workflow/pkg/models"
)

// Recorder persists run outcomes. The plan is nil for fast-path runs.
type Recorder interface {
	RecordRun(ctx context.Context, request string, p *models.ExecutionPlan, res *models.ExecutionResult) error
}

// nopRecorder drops everything.
type nopRecorder struct{}

func (nopRecorder) RecordRun(context.Context, string, *models.ExecutionPlan, *models.ExecutionResult) error {
	return nil
}

// Coordinator wires the decomposer, planner, and executor behind one
// ExecuteRequest call.
type Coordinator struct {
	decomposer *decompose.Decomposer
	registry   *capability.Registry
	executor   *executor.Executor
	planOpts   plan.Options
	recorder   Recorder
	log        *worklog.Logger
}

// New creates a Coordinator. The executor must share the same registry.
func New(decomposer *decompose.Decomposer, registry *capability.Registry, exec *executor.Executor) *Coordinator {
	return &Coordinator{
		decomposer: decomposer,
		registry:   registry,
		executor:   exec,
		planOpts:   plan.DefaultOptions(),
		recorder:   nopRecorder{},
		log:        worklog.Nop(),
	}
}

// WithPlanOptions overrides the planner options for new plans.
func (c *Coordinator) WithPlanOptions(opts plan.Options) *Coordinator {
	c.planOpts = opts
	return c
}

// WithRecorder attaches a run recorder.
func (c *Coordinator) WithRecorder(r Recorder) *Coordinator {
	if r != nil {
		c.recorder = r
	}
	return c
}

// WithLogger attaches a worklog.
func (c *Coordinator) WithLogger(l *worklog.Logger) *Coordinator {
	if l != nil {
		c.log = l
	}
	return c
}

// ExecuteRequest runs one user request end to end and returns the
// outcome. The result is always non-nil with a readable message; the
// error return carries fatal conditions alongside it.
func (c *Coordinator) ExecuteRequest(ctx context.Context, request string, rc models.RequestContext) (*models.ExecutionResult, error) {
	subtasks := c.decomposer.Decompose(ctx, request, rc)

	if !ShouldUseWorkflow(request) && len(subtasks) == 1 {
		c.log.Log("request routed to fast path: %q", request)
		res := c.fastPath(ctx, subtasks[0], rc)
		if err := c.recorder.RecordRun(ctx, request, nil, res); err != nil {
			c.log.Log("recording fast-path run: %v", err)
		}
		return res, nil
	}

	c.log.Log("request routed to full pipeline: %q (%d step(s))", request, len(subtasks))
	p, err := plan.CreatePlan(subtasks, request, rc, c.planOpts)
	if err != nil {
		res := &models.ExecutionResult{
			Message: "The request could not be organized into a working order of steps. Please try rephrasing it.",
		}
		if errors.Is(err, plan.ErrCycleDetected) {
			c.log.Log("planning failed with a dependency cycle: %v", err)
		}
		return res, fmt.Errorf("planning request: %w", err)
	}

	res, execErr := c.executor.ExecutePlan(ctx, p, rc)
	if err := c.recorder.RecordRun(ctx, request, p, res); err != nil {
		c.log.Log("recording run %s: %v", p.ID, err)
	}
	return res, execErr
}

// fastPath executes a single subtask directly, with the same retry and
// timeout semantics the executor applies, but without building a plan.
func (c *Coordinator) fastPath(ctx context.Context, t *models.SubTask, rc models.RequestContext) *models.ExecutionResult {
	start := time.Now()
	res := &models.ExecutionResult{}

	handler, err := c.registry.Resolve(t.Capability)
	if err != nil {
		t.Status = models.StatusFailed
		t.Error = err.Error()
		res.Failed = []string{t.Name}
		res.Message = "The request could not be handled: no capability is set up for it."
		res.Duration = time.Since(start)
		return res
	}

	max := t.MaxRetries
	if max < 1 {
		max = 1
	}
	t.Status = models.StatusInProgress

	var lastErr error
	for i := 1; i <= max; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			lastErr = ctxErr
			break
		}
		t.RetryCount = i

		attemptCtx := ctx
		cancel := func() {}
		if t.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		}
		out, execErr := capability.Invoke(attemptCtx, handler, t.Params, rc.Tenant)
		cancel()

		switch {
		case execErr != nil:
			lastErr = execErr
		case out == nil || !out.Success:
			lastErr = errors.New(resultMessage(out))
		default:
			t.Status = models.StatusCompleted
			t.Result = out.Payload
			res.Success = true
			res.Completed = []string{t.Name}
			res.Message = doneMessage(out)
			res.TotalRetries = i - 1
			res.Duration = time.Since(start)
			return res
		}
	}

	t.Status = models.StatusFailed
	if lastErr != nil {
		t.Error = lastErr.Error()
	}
	res.Failed = []string{t.Name}
	res.TotalRetries = t.RetryCount - 1
	if res.TotalRetries < 0 {
		res.TotalRetries = 0
	}
	res.Message = "The request did not succeed. Please try again in a moment."
	res.Suggestions = []string{"Retry the request", "Rephrase it if the problem persists"}
	res.Duration = time.Since(start)
	return res
}

func resultMessage(out *capability.Result) string {
	if out != nil && out.Message != "" {
		return out.Message
	}
	return "the capability reported failure"
}

func doneMessage(out *capability.Result) string {
	if out.Message != "" {
		return out.Message
	}
	return "Done."
}
