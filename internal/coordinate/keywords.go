package coordinate

import "strings"

// multiActionCues are request fragments that signal more than one piece
// of work: connectives, sequencing words, and fan-out markers. Matching
// any cue routes the request through the full workflow pipeline.
var multiActionCues = []string{
	"and then",
	"after that",
	"afterwards",
	"then",
	"also",
	"as well as",
	"followed by",
	"once that is done",
	"once done",
	"finally",
	"bulk",
	"everyone",
	"all of them",
	"each of",
	"for each",
}

// listMarkers signal an enumerated request body.
var listMarkers = []string{
	"\n-", "\n*", "\n1.", "\n2.", "1)", "2)",
}

// ShouldUseWorkflow reports whether a request reads like multiple
// actions and therefore needs decomposition, planning, and staged
// execution. Single-action requests take the cheaper direct path.
func ShouldUseWorkflow(request string) bool {
	lower := strings.ToLower(request)
	for _, cue := range multiActionCues {
		if containsWord(lower, cue) {
			return true
		}
	}
	for _, m := range listMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// containsWord matches a cue on word boundaries so "also" does not fire
// inside "balsolution".
func containsWord(text, cue string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], cue)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(cue)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
