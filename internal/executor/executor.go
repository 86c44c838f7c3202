// Package executor runs execution plans: it drives the subtask state
// machine wave by wave, applies per-subtask retry and recovery strategy,
// and reports the outcome as a human-readable ExecutionResult.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brightdesk/workflow/internal/capability"
	"github.com/brightdesk/workflow/internal/escalate"
	"github.com/brightdesk/workflow/internal/progress"
	"github.com/brightdesk/workflow/internal/quality"
	"github.com/brightdesk/workflow/internal/recovery"
	"github.com/brightdesk/workflow/internal/worklog"
	"github.com/brightdesk/workflow/pkg/models"
)

// ErrDeadlock reports a plan whose remaining subtasks can never become
// ready. It should only occur when planner validation was bypassed.
var ErrDeadlock = errors.New("plan deadlocked: no subtask can become ready")

// Executor drives plans to completion against a capability registry.
type Executor struct {
	registry     *capability.Registry
	tracker      *progress.Tracker
	checker      *quality.Checker
	escalations  *escalate.Manager
	recoverer    *recovery.Handler
	alternatives *recovery.Alternatives
	log          *worklog.Logger
	onProgress   func(*models.ProgressReport)
}

// New creates an Executor resolving capabilities from registry. The
// remaining collaborators are optional and attach via the With methods.
func New(registry *capability.Registry) *Executor {
	return &Executor{
		registry:     registry,
		alternatives: recovery.NewAlternatives(),
		log:          worklog.Nop(),
	}
}

// WithTracker attaches a progress tracker consulted after every wave.
func (e *Executor) WithTracker(t *progress.Tracker) *Executor {
	e.tracker = t
	return e
}

// WithChecker attaches the quality checker run after execution.
func (e *Executor) WithChecker(c *quality.Checker) *Executor {
	e.checker = c
	return e
}

// WithEscalations attaches the escalation manager used by the Escalate
// strategy and the quality phase.
func (e *Executor) WithEscalations(m *escalate.Manager) *Executor {
	e.escalations = m
	return e
}

// WithRecovery attaches the exception handler for errors escaping the
// main loop. Its alternatives registry also serves the Alternative
// strategy.
func (e *Executor) WithRecovery(h *recovery.Handler) *Executor {
	e.recoverer = h
	if h != nil {
		e.alternatives = h.Alternatives()
	}
	return e
}

// WithLogger attaches a worklog for step-level tracing.
func (e *Executor) WithLogger(l *worklog.Logger) *Executor {
	if l != nil {
		e.log = l
	}
	return e
}

// WithProgressSink attaches a callback invoked for every progress report
// the tracker decides to emit.
func (e *Executor) WithProgressSink(fn func(*models.ProgressReport)) *Executor {
	e.onProgress = fn
	return e
}

// run carries the mutable cross-goroutine state of one plan execution.
type run struct {
	mu          sync.Mutex
	aborted     bool
	abortCause  string
	escalations []*models.EscalationRequest
}

func (r *run) abort(cause string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.aborted {
		r.aborted = true
		r.abortCause = cause
	}
}

func (r *run) isAborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborted
}

func (r *run) escalated(req *models.EscalationRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escalations = append(r.escalations, req)
}

// ExecutePlan runs the plan to a stopping point: all subtasks terminal,
// blocked on an escalation, aborted, or deadlocked. The returned result
// is always populated with a human-readable message; the error return is
// reserved for fatal conditions like deadlock.
func (e *Executor) ExecutePlan(ctx context.Context, p *models.ExecutionPlan, rc models.RequestContext) (*models.ExecutionResult, error) {
	start := time.Now()
	p.Status = models.PlanInProgress
	p.StartedAt = &start
	e.log.Log("plan %s started: %d step(s), parallel=%t", p.ID, len(p.SubTasks), p.Parallel)

	r := &run{}
	var loopErr error

	for !p.Finished() && !r.isAborted() {
		wave := e.readyWave(p)
		if len(wave) == 0 {
			if blocked(p) {
				// A failed or escalated subtask is withholding readiness
				// from its dependents. Not a deadlock: the plan waits.
				break
			}
			loopErr = fmt.Errorf("plan %s: %w", p.ID, ErrDeadlock)
			p.Status = models.PlanFailed
			break
		}

		if p.Parallel && len(wave) > 1 {
			var wg sync.WaitGroup
			for _, task := range wave {
				wg.Add(1)
				go func(t *models.SubTask) {
					defer wg.Done()
					e.runSubTask(ctx, t, p, r)
				}(task)
			}
			wg.Wait()
		} else {
			for _, task := range wave {
				if r.isAborted() {
					break
				}
				e.runSubTask(ctx, task, p, r)
			}
		}

		if e.tracker != nil {
			if report := e.tracker.Update(p); report != nil && e.onProgress != nil {
				e.onProgress(report)
			}
		}

		if !p.ContinueOnFailure && p.FailedCount() > 0 {
			e.log.Log("plan %s: stopping after failure (continue-on-failure disabled)", p.ID)
			break
		}
	}

	e.finishPlan(p, r, loopErr)

	var report *models.QualityReport
	if loopErr == nil && p.QualityCheck && e.checker != nil && p.Finished() {
		report = e.checker.CheckPlan(p)
		if qualityRejected(p, report) && e.escalations != nil {
			req := e.escalations.CreateQualityEscalation(ctx, p, report)
			r.escalated(req)
			e.log.Log("plan %s: quality rejected (verdict %s, score %.2f, bar %.2f), escalated",
				p.ID, report.Verdict, report.Score, p.MinQualityScore)
		}
	}

	result := e.buildResult(p, r, report, loopErr, time.Since(start))
	if loopErr != nil && e.recoverer != nil {
		rec := e.recoverer.Handle(loopErr, p, rc)
		result.Suggestions = append(result.Suggestions, rec.Message)
	}
	e.log.Log("plan %s finished: success=%t %q", p.ID, result.Success, result.Message)
	return result, loopErr
}

// readyWave returns the Pending subtasks whose dependencies are all
// satisfied, in plan order.
func (e *Executor) readyWave(p *models.ExecutionPlan) []*models.SubTask {
	done := func(id string) bool {
		t := p.SubTask(id)
		return t != nil && t.Status.Satisfies()
	}
	var wave []*models.SubTask
	for _, t := range p.SubTasks {
		if t.Ready(done) {
			wave = append(wave, t)
		}
	}
	return wave
}

// blocked reports whether the plan has a terminal non-satisfying subtask
// that explains an empty ready set.
func blocked(p *models.ExecutionPlan) bool {
	for _, t := range p.SubTasks {
		if t.Status == models.StatusFailed || t.Status == models.StatusEscalated {
			return true
		}
	}
	return false
}

// runSubTask executes one subtask through its retry budget and, on
// exhaustion, resolves its recovery strategy.
func (e *Executor) runSubTask(ctx context.Context, t *models.SubTask, p *models.ExecutionPlan, r *run) {
	now := time.Now()
	t.StartedAt = &now

	handler, err := e.registry.Resolve(t.Capability)
	if err != nil {
		// Configuration defect: fail immediately, no retries, no strategy.
		t.Status = models.StatusFailed
		t.Error = err.Error()
		end := time.Now()
		t.CompletedAt = &end
		e.log.Log("step %q: no handler for capability %q", t.Name, t.Capability)
		return
	}

	t.Status = models.StatusInProgress
	lastErr := e.attempt(ctx, handler, t, p)
	if lastErr == nil {
		return
	}

	t.Status = models.StatusFailed
	t.Error = lastErr.Error()
	end := time.Now()
	t.CompletedAt = &end
	e.log.Log("step %q failed after %d attempt(s): %v", t.Name, t.RetryCount, lastErr)

	e.resolveStrategy(ctx, t, p, r, lastErr)
}

// attempt runs the handler up to MaxRetries times, each attempt bounded
// by the subtask timeout. The bound holds even for handlers that ignore
// their context: a timed-out attempt counts as failed and any late result
// is discarded. Logical failures and timeouts retry back to back; backoff
// is reserved for the top-level exception path.
func (e *Executor) attempt(ctx context.Context, handler capability.Handler, t *models.SubTask, p *models.ExecutionPlan) error {
	max := t.MaxRetries
	if max < 1 {
		max = 1
	}

	var lastErr error
	for i := 1; i <= max; i++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return lastErr
		}
		t.RetryCount = i

		attemptCtx := ctx
		cancel := func() {}
		if t.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		}
		res, err := capability.Invoke(attemptCtx, handler, t.Params, p.Tenant)
		cancel()

		switch {
		case err != nil:
			lastErr = err
		case res == nil || !res.Success:
			msg := "the capability reported failure"
			if res != nil && res.Message != "" {
				msg = res.Message
			}
			lastErr = errors.New(msg)
		default:
			t.Status = models.StatusCompleted
			t.Result = res.Payload
			t.Error = ""
			end := time.Now()
			t.CompletedAt = &end
			return nil
		}
	}
	return lastErr
}

// resolveStrategy applies the subtask's configured recovery strategy
// after its retry budget is exhausted.
func (e *Executor) resolveStrategy(ctx context.Context, t *models.SubTask, p *models.ExecutionPlan, r *run, lastErr error) {
	switch t.Strategy {
	case models.RecoverySkip:
		if t.Optional {
			t.Status = models.StatusSkipped
			e.log.Log("step %q skipped (optional)", t.Name)
		}

	case models.RecoveryEscalate:
		e.escalateTask(ctx, t, p, r, lastErr)

	case models.RecoveryAbort:
		r.abort(t.Name)
		e.log.Log("step %q: abort strategy stops the plan", t.Name)

	case models.RecoveryAlternative:
		alt, ok := e.alternatives.Lookup(lastErr.Error())
		if !ok {
			// No alternative known: hand the decision to a human rather
			// than terminating silently.
			e.escalateTask(ctx, t, p, r, lastErr)
			return
		}
		e.log.Log("step %q: trying alternative capability %q", t.Name, alt)
		handler, err := e.registry.Resolve(alt)
		if err != nil {
			e.log.Log("step %q: alternative %q has no handler", t.Name, alt)
			return
		}
		t.Capability = alt
		if err := e.attempt(ctx, handler, t, p); err != nil {
			t.Status = models.StatusFailed
			t.Error = err.Error()
		}

	default:
		// RecoveryRetry already spent its budget inline; stays Failed.
	}
}

func (e *Executor) escalateTask(ctx context.Context, t *models.SubTask, p *models.ExecutionPlan, r *run, lastErr error) {
	t.Status = models.StatusEscalated
	if e.escalations == nil {
		return
	}
	req := e.escalations.CreateTaskEscalation(ctx, t, p, lastErr)
	r.escalated(req)
}

// finishPlan settles the plan status once the loop stops.
func (e *Executor) finishPlan(p *models.ExecutionPlan, r *run, loopErr error) {
	end := time.Now()
	switch {
	case loopErr != nil || r.isAborted():
		p.Status = models.PlanFailed
		p.CompletedAt = &end
	case p.Finished():
		switch {
		case p.FailedCount() > 0:
			p.Status = models.PlanFailed
			p.CompletedAt = &end
		case countEscalated(p) > 0:
			// Every step is terminal but at least one awaits a human.
		default:
			p.Status = models.PlanCompleted
			p.CompletedAt = &end
		}
	default:
		// Blocked on an escalation or stopped by continue-on-failure with
		// work remaining; the plan stays InProgress awaiting a decision
		// unless the stop was a hard failure.
		if !p.ContinueOnFailure && p.FailedCount() > 0 {
			p.Status = models.PlanFailed
			p.CompletedAt = &end
		}
	}
}

// qualityRejected reports whether a quality report keeps the plan from
// being accepted: a failing verdict, or an aggregate score under the
// plan's minimum acceptance bar.
func qualityRejected(p *models.ExecutionPlan, report *models.QualityReport) bool {
	if report == nil {
		return false
	}
	if report.Verdict == models.VerdictFail {
		return true
	}
	return p.MinQualityScore > 0 && report.Score < p.MinQualityScore
}

func countEscalated(p *models.ExecutionPlan) int {
	n := 0
	for _, t := range p.SubTasks {
		if t.Status == models.StatusEscalated {
			n++
		}
	}
	return n
}

// buildResult folds the plan outcome into the user-facing result.
func (e *Executor) buildResult(p *models.ExecutionPlan, r *run, report *models.QualityReport, loopErr error, elapsed time.Duration) *models.ExecutionResult {
	res := &models.ExecutionResult{
		PlanID:      p.ID,
		Duration:    elapsed,
		Escalations: r.escalations,
	}
	for _, t := range p.SubTasks {
		switch t.Status {
		case models.StatusCompleted:
			res.Completed = append(res.Completed, t.Name)
		case models.StatusFailed:
			res.Failed = append(res.Failed, t.Name)
		case models.StatusSkipped:
			res.Skipped = append(res.Skipped, t.Name)
		}
		if t.RetryCount > 1 {
			res.TotalRetries += t.RetryCount - 1
		}
	}
	if report != nil {
		res.Quality = report
		res.QualityScore = report.Score
	}

	qualityBlocked := qualityRejected(p, report)

	switch {
	case errors.Is(loopErr, ErrDeadlock):
		res.Message = "The request got stuck: some steps were waiting on each other and could not proceed. Please try rephrasing the request."
		res.Suggestions = append(res.Suggestions, "Break the request into smaller independent asks")
	case r.isAborted():
		res.Message = fmt.Sprintf("The request was stopped because the step %q failed and is configured to stop everything.", r.abortCause)
	case len(r.escalations) > 0 && !qualityBlocked:
		res.Message = "The request needs your input before it can continue. Please answer the pending question."
	case qualityBlocked:
		res.Message = "The request finished, but the result quality needs your review before it can be accepted."
	case p.Status == models.PlanCompleted:
		res.Success = true
		res.Message = fmt.Sprintf("Done. %d of %d step(s) completed.", len(res.Completed), len(p.SubTasks))
		if len(res.Skipped) > 0 {
			res.Message += fmt.Sprintf(" %d optional step(s) were skipped.", len(res.Skipped))
		}
	default:
		res.Message = fmt.Sprintf("The request could not be completed: %d step(s) failed.", len(res.Failed))
		res.Suggestions = append(res.Suggestions, "Try the request again, or ask for the failing part separately")
	}
	return res
}
