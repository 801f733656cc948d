package chat

import (
	"sort"
	"time"
)

// AggregateHistory fills slots from prior turns, scanning from the most
// recent user message backward. For each slot the value from the most recent
// user message in which that slot was non-empty wins ("most recent explicit
// statement", not "most recent message overall"). Assistant replies are never
// re-parsed. Scanning stops early once all four slots are filled.
//
// The input may arrive in either order; messages are sorted newest-first
// before scanning.
func AggregateHistory(messages []Message, extractor SlotExtractor, now time.Time) Slots {
	sorted := make([]Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var merged Slots
	for _, msg := range sorted {
		if msg.Role != RoleUser {
			continue
		}
		extracted := extractor.Extract(NormalizeMonths(msg.Body), now)
		merged = merged.FillFrom(extracted)
		if merged.Complete() {
			break
		}
	}
	return merged
}
