package recovery

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/brightdesk/workflow/pkg/models"
)

// Category is the error taxonomy the handler sorts failures into.
type Category string

const (
	// CategoryTransient covers network-like failures worth retrying.
	CategoryTransient Category = "transient"
	// CategoryPermission covers authorization failures; never retried.
	CategoryPermission Category = "permission"
	// CategoryData covers validation and bad-input failures.
	CategoryData Category = "data"
	// CategoryUnknown is the default safety net; always escalated.
	CategoryUnknown Category = "unknown"
)

// Action is what the handler recommends after classifying an error.
type Action string

const (
	// ActionRetry recommends retrying after the reported delay.
	ActionRetry Action = "retry"
	// ActionAlternative recommends the reported alternative capability.
	ActionAlternative Action = "alternative"
	// ActionEscalate recommends handing the problem to a human.
	ActionEscalate Action = "escalate"
)

// Result describes the recommended recovery for a classified error.
type Result struct {
	// Category is the classified error category.
	Category Category
	// Action is the recommended next step.
	Action Action
	// Delay is how long to wait before retrying, for ActionRetry.
	Delay time.Duration
	// Alternative names the substitute capability, for ActionAlternative.
	Alternative string
	// Severity is the escalation severity, for ActionEscalate.
	Severity models.Severity
	// Message is a human-readable summary of the recommendation.
	Message string
}

// Alternatives maps error signatures to substitute capabilities. The
// executor consults it for the Alternative recovery strategy and the
// handler consults it for data errors.
type Alternatives struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewAlternatives creates an empty alternatives registry.
func NewAlternatives() *Alternatives {
	return &Alternatives{entries: make(map[string]string)}
}

// Register binds an error signature substring to an alternative
// capability name.
func (a *Alternatives) Register(signature, capability string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[strings.ToLower(signature)] = capability
}

// Lookup returns the alternative capability for the first registered
// signature found in the error text, or false.
func (a *Alternatives) Lookup(errText string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	lower := strings.ToLower(errText)
	for sig, cap := range a.entries {
		if strings.Contains(lower, sig) {
			return cap, true
		}
	}
	return "", false
}

// Handler classifies errors escaping the execution loop. The inline
// per-subtask retry loop never comes through here.
type Handler struct {
	backoff      Backoff
	alternatives *Alternatives
}

// NewHandler creates a Handler sharing the given backoff and
// alternatives registry.
func NewHandler(backoff Backoff, alternatives *Alternatives) *Handler {
	if alternatives == nil {
		alternatives = NewAlternatives()
	}
	return &Handler{backoff: backoff, alternatives: alternatives}
}

// Alternatives exposes the registry so the executor can share it.
func (h *Handler) Alternatives() *Alternatives {
	return h.alternatives
}

// Handle classifies err and returns the recommended recovery. No category
// is silently swallowed: everything that is not retriable or substitutable
// escalates.
func (h *Handler) Handle(err error, p *models.ExecutionPlan, rc models.RequestContext) Result {
	if err == nil {
		return Result{Category: CategoryUnknown, Action: ActionEscalate, Severity: models.SeverityDecision,
			Message: "recovery invoked without an error"}
	}

	switch Classify(err) {
	case CategoryTransient:
		// Delay doubles per plan step already attempted, capped.
		step := p.FailedCount() + 1
		delay := h.backoff.Delay(step)
		return Result{
			Category: CategoryTransient,
			Action:   ActionRetry,
			Delay:    delay,
			Message:  "a temporary problem interrupted the work; retrying shortly",
		}

	case CategoryPermission:
		return Result{
			Category: CategoryPermission,
			Action:   ActionEscalate,
			Severity: models.SeverityDecision,
			Message:  "the requested action needs permissions the workflow does not have",
		}

	case CategoryData:
		if alt, ok := h.alternatives.Lookup(err.Error()); ok {
			return Result{
				Category:    CategoryData,
				Action:      ActionAlternative,
				Alternative: alt,
				Message:     "the data problem has a known workaround",
			}
		}
		return Result{
			Category: CategoryData,
			Action:   ActionEscalate,
			Severity: models.SeverityDecision,
			Message:  "the request data could not be processed and no workaround is known",
		}

	default:
		// Unknown errors get logged in full detail before escalating.
		log.Printf("[recovery] unclassified error on plan %s (tenant %s): %+v", p.ID, rc.Tenant, err)
		return Result{
			Category: CategoryUnknown,
			Action:   ActionEscalate,
			Severity: models.SeverityUrgent,
			Message:  "an unexpected problem stopped the workflow",
		}
	}
}

// transientMarkers are substrings that flag an error as network-like.
var transientMarkers = []string{
	"timeout", "timed out", "connection refused", "connection reset",
	"temporarily unavailable", "too many requests", "rate limit",
	"service unavailable", "try again",
}

// permissionMarkers flag authorization failures.
var permissionMarkers = []string{
	"permission denied", "unauthorized", "forbidden", "access denied",
	"not allowed", "insufficient privileges",
}

// dataMarkers flag validation and bad-input failures.
var dataMarkers = []string{
	"invalid", "validation", "malformed", "missing required",
	"not found", "no such", "parse error", "bad request",
}

// Classify sorts an error into the recovery taxonomy. Typed checks run
// before substring matching.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}
	if errors.Is(err, os.ErrPermission) {
		return CategoryPermission
	}

	text := strings.ToLower(err.Error())
	for _, m := range permissionMarkers {
		if strings.Contains(text, m) {
			return CategoryPermission
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(text, m) {
			return CategoryTransient
		}
	}
	for _, m := range dataMarkers {
		if strings.Contains(text, m) {
			return CategoryData
		}
	}
	return CategoryUnknown
}
