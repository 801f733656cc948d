package chat

import (
	"regexp"
	"strings"
)

// unrelatedTopics short-circuits the whole pipeline: no persistence, no
// oracle call, just a fixed refusal.
var unrelatedTopics = []string{"weather", "joke", "sports", "math", "history", "movie", "game", "bitcoin"}

// Intent keyword sets. Matching is case-insensitive substring membership over
// the raw message; no normalization is applied first.
//
// The confirm and decline sets overlap in spirit (generic affirmatives vs.
// "change"/"modify"); the orchestrator resolves the ambiguity by checking
// confirm BEFORE decline. That precedence is a deliberate, documented
// tie-break carried over from the reference behavior.
var (
	confirmingRE = regexp.MustCompile(`(?i)yes|confirm|book|proceed|ok|sure|correct|right|agree`)
	decliningRE  = regexp.MustCompile(`(?i)no|cancel|change|modify|wrong|incorrect`)
	updatingRE   = regexp.MustCompile(`(?i)update|change|reschedule|modify|reset|start over|new appointment`)
)

// IsUnrelated reports whether the message touches a known off-topic subject.
func IsUnrelated(message string) bool {
	lower := strings.ToLower(message)
	for _, topic := range unrelatedTopics {
		if strings.Contains(lower, topic) {
			return true
		}
	}
	return false
}

// IsConfirming reports a confirmation intent ("yes", "book it", ...).
func IsConfirming(message string) bool {
	return confirmingRE.MatchString(message)
}

// IsDeclining reports a decline/correction intent ("no", "that's wrong", ...).
func IsDeclining(message string) bool {
	return decliningRE.MatchString(message)
}

// IsUpdating reports an explicit update/reschedule intent. When true, any
// existing booking for the session is deleted before further processing.
func IsUpdating(message string) bool {
	return updatingRE.MatchString(message)
}
