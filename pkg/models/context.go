package models

// RequestContext carries the routing and user context of one request
// through decomposition, planning, and execution.
type RequestContext struct {
	// Tenant is the requesting organization.
	Tenant string `json:"tenant,omitempty"`
	// UserID identifies the requesting user within the tenant.
	UserID string `json:"user_id,omitempty"`
	// Channel is the conversation channel the request arrived on, used as
	// the default notification target for escalations.
	Channel string `json:"channel,omitempty"`
	// Metadata carries free-form routing hints.
	Metadata map[string]string `json:"metadata,omitempty"`
}
