package escalate

import (
	"fmt"
	"strings"

	"github.com/brightdesk/workflow/pkg/models"
)

// Render formats an escalation request as the plain-text message sent to
// the human. Sections without content are omitted.
func Render(req *models.EscalationRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n\n", req.Severity.Marker(), req.Title)
	if req.Description != "" {
		b.WriteString(req.Description)
		b.WriteString("\n\n")
	}
	if req.Context != "" {
		b.WriteString("Details:\n")
		b.WriteString(req.Context)
		b.WriteString("\n\n")
	}
	if len(req.Options) > 0 {
		b.WriteString("Your options:\n")
		for i, opt := range req.Options {
			fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, opt.Label, opt.ID)
		}
		b.WriteString("\n")
	}
	if req.Recommendation != "" {
		fmt.Fprintf(&b, "Recommended: %s", req.Recommendation)
		if req.Rationale != "" {
			fmt.Fprintf(&b, " (%s)", req.Rationale)
		}
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Reply with an option id to continue (reference: %s).\n", req.ID)

	return b.String()
}
