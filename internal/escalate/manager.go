// Package escalate creates, delivers, and resolves escalation requests:
// the protocol for handing a decision to a human when automated recovery
// is unsafe or impossible.
package escalate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightdesk/workflow/pkg/models"
)

// Notifier delivers a rendered escalation message. Retrying failed
// deliveries is the channel's responsibility, not the manager's.
type Notifier interface {
	Send(ctx context.Context, target, message string) (deliveryID string, err error)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, target, message string) (string, error)

// Send calls the wrapped function.
func (f NotifierFunc) Send(ctx context.Context, target, message string) (string, error) {
	return f(ctx, target, message)
}

// Manager owns the in-memory pending escalation set and the delivery
// side effect. Requests become immutable once their status leaves
// Pending; resuming blocked downstream work after a response is the
// hosting application's job.
type Manager struct {
	notifier Notifier
	target   string

	mu      sync.RWMutex
	pending map[string]*models.EscalationRequest
}

// NewManager creates a Manager delivering to the given default target.
func NewManager(notifier Notifier, target string) *Manager {
	return &Manager{
		notifier: notifier,
		target:   target,
		pending:  make(map[string]*models.EscalationRequest),
	}
}

// CreateTaskEscalation raises a Decision-severity escalation for a
// subtask that failed beyond automated recovery.
func (m *Manager) CreateTaskEscalation(ctx context.Context, task *models.SubTask, p *models.ExecutionPlan, taskErr error) *models.EscalationRequest {
	errText := "the step could not be completed"
	if taskErr != nil {
		errText = taskErr.Error()
	}

	req := &models.EscalationRequest{
		ID:          uuid.New().String(),
		PlanID:      p.ID,
		SubTaskID:   task.ID,
		Severity:    models.SeverityDecision,
		Title:       fmt.Sprintf("Step needs your decision: %s", task.Name),
		Description: fmt.Sprintf("The step %q failed after %d attempt(s) and automated recovery is exhausted.", task.Name, task.RetryCount),
		Context:     errText,
		Options: []models.EscalationOption{
			{ID: "retry", Label: "Retry the step"},
			{ID: "skip", Label: "Skip the step and continue"},
			{ID: "abort", Label: "Abort the whole request"},
		},
		Recommendation: "retry",
		Rationale:      "failures at this stage are often temporary",
		Status:         models.EscalationPending,
		CreatedAt:      time.Now(),
	}

	m.register(ctx, req)
	return req
}

// CreateQualityEscalation raises one aggregate escalation for a plan
// whose quality report failed. One per plan, regardless of how many
// individual checks failed.
func (m *Manager) CreateQualityEscalation(ctx context.Context, p *models.ExecutionPlan, report *models.QualityReport) *models.EscalationRequest {
	ctxText := fmt.Sprintf("Overall quality score: %.2f", report.Score)
	for _, issue := range report.Issues {
		ctxText += "\n- " + issue
	}

	req := &models.EscalationRequest{
		ID:          uuid.New().String(),
		PlanID:      p.ID,
		Severity:    models.SeverityDecision,
		Title:       fmt.Sprintf("Result quality needs review: %s", p.Name),
		Description: "The request finished, but the result did not meet the quality bar.",
		Context:     ctxText,
		Options: []models.EscalationOption{
			{ID: "accept", Label: "Accept the result as-is"},
			{ID: "rerun", Label: "Run the request again"},
			{ID: "discard", Label: "Discard the result"},
		},
		Status:    models.EscalationPending,
		CreatedAt: time.Now(),
	}

	m.register(ctx, req)
	return req
}

// register renders, delivers, and tracks a new request.
func (m *Manager) register(ctx context.Context, req *models.EscalationRequest) {
	message := Render(req)

	if m.notifier != nil {
		deliveryID, err := m.notifier.Send(ctx, m.target, message)
		if err != nil {
			// Delivery failure does not void the escalation; the pending
			// set is still the source of truth for ProcessResponse.
			log.Printf("[escalate] delivery failed for escalation %s: %v", req.ID, err)
		} else {
			req.DeliveryID = deliveryID
		}
	}

	m.mu.Lock()
	m.pending[req.ID] = req
	m.mu.Unlock()
}

// ProcessResponse transitions a pending request to Responded and records
// the chosen option. It returns false, without overwriting anything, for
// unknown ids and for requests already resolved.
func (m *Manager) ProcessResponse(requestID, response, rationale string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.pending[requestID]
	if !ok || req.Status != models.EscalationPending {
		return false
	}

	now := time.Now()
	req.Status = models.EscalationResponded
	req.Response = response
	req.ResponseRationale = rationale
	req.RespondedAt = &now
	delete(m.pending, requestID)
	return true
}

// Pending returns the pending request with the given id, or nil.
func (m *Manager) Pending(requestID string) *models.EscalationRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending[requestID]
}

// PendingCount returns the number of unresolved escalations.
func (m *Manager) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}
