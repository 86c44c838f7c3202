// Package decompose turns one free-text request into ordered subtask
// descriptors. It tries a rule-based pattern library first, then an
// optional external oracle, and always falls back to a single
// pass-through subtask so decomposition never blocks a runnable request.
package decompose

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brightdesk/workflow/pkg/models"
)

// StepTemplate is the skeleton of one subtask inside a rule. DependsOn
// names other steps of the same rule; the decomposer resolves names to
// generated IDs.
type StepTemplate struct {
	// Name is the short description of the step.
	Name string `yaml:"name"`
	// Description provides detail for the step.
	Description string `yaml:"description"`
	// Capability names the handler that performs the step.
	Capability string `yaml:"capability"`
	// Params are passed to the capability handler.
	Params map[string]any `yaml:"params"`
	// DependsOn lists names of steps in this rule that must run first.
	DependsOn []string `yaml:"depends_on"`
	// Optional marks the step as skippable on failure.
	Optional bool `yaml:"optional"`
	// MaxRetries overrides the default retry budget when positive.
	MaxRetries int `yaml:"max_retries"`
	// Timeout overrides the default attempt timeout when positive.
	Timeout time.Duration `yaml:"timeout"`
	// Strategy overrides the default recovery strategy when set.
	Strategy models.RecoveryStrategy `yaml:"strategy"`
}

// Rule matches a class of requests and provides the subtask skeletons for
// it. Rules are evaluated in order; the first match wins, which keeps the
// rule-based path deterministic.
type Rule struct {
	// Name identifies the rule in logs.
	Name string `yaml:"name"`
	// Keywords trigger the rule when any of them appears in the request.
	Keywords []string `yaml:"keywords"`
	// Condition optionally narrows the match beyond keywords. Not
	// loadable from YAML.
	Condition func(request string, rc models.RequestContext) bool `yaml:"-"`
	// Steps are the subtask skeletons produced on a match.
	Steps []StepTemplate `yaml:"steps"`
}

// Matches reports whether the rule triggers for the request.
func (r *Rule) Matches(request string, rc models.RequestContext) bool {
	lower := strings.ToLower(request)
	matched := false
	for _, kw := range r.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if r.Condition != nil {
		return r.Condition(request, rc)
	}
	return true
}

// DefaultRules returns the built-in pattern library for common chatbot
// flows. Hosts extend or replace these via LoadRules.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "schedule-and-invite",
			Keywords: []string{"schedule a meeting", "book a meeting", "set up a meeting"},
			Steps: []StepTemplate{
				{
					Name:        "Find a free slot",
					Description: "Find a time slot that works for all participants",
					Capability:  "find_slot",
				},
				{
					Name:        "Book the meeting",
					Description: "Create the calendar event in the found slot",
					Capability:  "book_meeting",
					DependsOn:   []string{"Find a free slot"},
				},
				{
					Name:        "Send invitations",
					Description: "Notify participants about the booked meeting",
					Capability:  "send_message",
					DependsOn:   []string{"Book the meeting"},
					Optional:    true,
					Strategy:    models.RecoverySkip,
				},
			},
		},
		{
			Name:     "bulk-message",
			Keywords: []string{"message everyone", "notify everyone", "bulk message", "announce"},
			Steps: []StepTemplate{
				{
					Name:        "Resolve recipients",
					Description: "Expand the audience into a recipient list",
					Capability:  "resolve_recipients",
				},
				{
					Name:        "Send announcement",
					Description: "Deliver the message to every recipient",
					Capability:  "send_message",
					DependsOn:   []string{"Resolve recipients"},
				},
			},
		},
		{
			Name:     "report-and-notify",
			Keywords: []string{"generate a report", "weekly report", "status report"},
			Steps: []StepTemplate{
				{
					Name:        "Collect data",
					Description: "Gather the data the report is built from",
					Capability:  "collect_data",
				},
				{
					Name:        "Generate report",
					Description: "Render the report from collected data",
					Capability:  "generate_report",
					DependsOn:   []string{"Collect data"},
				},
				{
					Name:        "Share report",
					Description: "Send the finished report to the requester",
					Capability:  "send_message",
					DependsOn:   []string{"Generate report"},
					Optional:    true,
					Strategy:    models.RecoverySkip,
				},
			},
		},
	}
}

// ruleFile is the YAML structure for rule files.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads additional rules from a YAML file. Loaded rules are
// appended after the built-in ones, so built-ins keep precedence.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}

	for i, r := range f.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d: missing name", i)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule %q: no trigger keywords", r.Name)
		}
		if len(r.Steps) == 0 {
			return nil, fmt.Errorf("rule %q: no steps", r.Name)
		}
	}

	return f.Rules, nil
}
