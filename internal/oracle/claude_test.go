package oracle

import "testing"

func TestParseStepsToleratesProse(t *testing.T) {
	response := `Sure, here is the breakdown:
[
  {"name": "Find recipients", "action": "resolve_recipients"},
  {"name": "Send", "action": "send_message", "depends_on": ["Find recipients"]}
]
Let me know if you need anything else.`

	steps, err := ParseSteps(response)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(steps))
	}
	if steps[1].DependsOn[0] != "Find recipients" {
		t.Errorf("dependency = %q, want the first step's name", steps[1].DependsOn[0])
	}
}

func TestParseStepsRejectsBadResponses(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"no array", "I cannot break this down."},
		{"empty array", "[]"},
		{"invalid json", "[{name: broken}]"},
		{"missing action", `[{"name": "step one"}]`},
		{"missing name", `[{"action": "send_message"}]`},
	}
	for _, c := range cases {
		if _, err := ParseSteps(c.response); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}
