package chat

import (
	"regexp"
	"strings"
)

// monthMisspellings maps common month-name typos to their correct spelling.
// Patients type these often enough in date phrases that the extractor would
// otherwise miss the month entirely.
var monthMisspellings = map[string]string{
	"janaury":  "january",
	"janurary": "january",
	"febuary":  "february",
	"feburary": "february",
	"februray": "february",
	"marhc":    "march",
	"aprill":   "april",
	"apirl":    "april",
	"jully":    "july",
	"agust":    "august",
	"augest":   "august",
	"septmber": "september",
	"setember": "september",
	"sepember": "september",
	"octuber":  "october",
	"ocotber":  "october",
	"novmber":  "november",
	"novembr":  "november",
	"decmber":  "december",
	"desember": "december",
}

var misspellingRE = regexp.MustCompile(`(?i)\b(` + strings.Join(misspellingKeys(), "|") + `)\b`)

func misspellingKeys() []string {
	keys := make([]string, 0, len(monthMisspellings))
	for k := range monthMisspellings {
		keys = append(keys, k)
	}
	return keys
}

// NormalizeMonths corrects known month-name misspellings, word-boundary and
// case-insensitive. Pure function; unmatched text passes through untouched.
func NormalizeMonths(text string) string {
	return misspellingRE.ReplaceAllStringFunc(text, func(match string) string {
		if fixed, ok := monthMisspellings[strings.ToLower(match)]; ok {
			return fixed
		}
		return match
	})
}
