package models

import "time"

// Severity indicates how urgently a human needs to look at an escalation.
type Severity string

const (
	// SeverityInfo is a notification that needs no decision.
	SeverityInfo Severity = "info"
	// SeverityConfirmation asks the human to confirm an action.
	SeverityConfirmation Severity = "confirmation"
	// SeverityDecision asks the human to choose between options.
	SeverityDecision Severity = "decision"
	// SeverityUrgent demands immediate attention.
	SeverityUrgent Severity = "urgent"
)

// Valid returns true if the severity is a known value.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityConfirmation, SeverityDecision, SeverityUrgent:
		return true
	default:
		return false
	}
}

// Marker returns the rendered prefix for escalation messages.
func (s Severity) Marker() string {
	switch s {
	case SeverityUrgent:
		return "[URGENT]"
	case SeverityDecision:
		return "[DECISION NEEDED]"
	case SeverityConfirmation:
		return "[PLEASE CONFIRM]"
	default:
		return "[FYI]"
	}
}

// EscalationStatus represents the lifecycle state of an escalation request.
type EscalationStatus string

const (
	// EscalationPending indicates the escalation awaits a human response.
	EscalationPending EscalationStatus = "pending"
	// EscalationResponded indicates a human answered.
	EscalationResponded EscalationStatus = "responded"
	// EscalationExpired indicates the response window elapsed.
	EscalationExpired EscalationStatus = "expired"
)

// EscalationOption is one selectable answer presented to the human.
type EscalationOption struct {
	// ID identifies the option in responses.
	ID string `json:"id"`
	// Label is the human-readable option text.
	Label string `json:"label"`
}

// EscalationRequest hands a decision to a human when automated resolution
// is unsafe or impossible. It holds non-owning references to its plan and
// subtask, and is immutable once its status leaves Pending.
type EscalationRequest struct {
	// ID is the unique identifier for this escalation.
	ID string `json:"id"`
	// PlanID references the plan this escalation belongs to.
	PlanID string `json:"plan_id"`
	// SubTaskID references the originating subtask, if any.
	SubTaskID string `json:"subtask_id,omitempty"`
	// Severity indicates how urgent the escalation is.
	Severity Severity `json:"severity"`
	// Title is the one-line summary shown to the human.
	Title string `json:"title"`
	// Description explains the problem.
	Description string `json:"description"`
	// Context carries supporting detail (error text, report extracts).
	Context string `json:"context,omitempty"`
	// Options are the ordered selectable answers.
	Options []EscalationOption `json:"options"`
	// Recommendation names the suggested option, if there is one.
	Recommendation string `json:"recommendation,omitempty"`
	// Rationale explains why the recommendation is suggested.
	Rationale string `json:"rationale,omitempty"`
	// Status is the lifecycle state of the escalation.
	Status EscalationStatus `json:"status"`
	// Response is the chosen option ID once the human answers.
	Response string `json:"response,omitempty"`
	// ResponseRationale is the human's optional explanation.
	ResponseRationale string `json:"response_rationale,omitempty"`
	// CreatedAt is when the escalation was raised.
	CreatedAt time.Time `json:"created_at"`
	// RespondedAt is when the human answered, if they have.
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	// DeliveryID is the notification channel's receipt for the message.
	DeliveryID string `json:"delivery_id,omitempty"`
}
