package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SlotExtractor pulls appointment slots out of a single message. Implemented
// as an interface so date/time/vocabulary rules can be unit-tested and
// swapped (e.g. locale-specific formats) without touching the orchestrator.
type SlotExtractor interface {
	Extract(text string, now time.Time) Slots
}

// Appointment vocabulary. Matching is case-insensitive substring matching,
// first occurrence in the text wins.
var (
	serviceTypeRE = regexp.MustCompile(`(?i)(consultation|treatment|test|screening|checkup|follow-up|surgery)`)
	cancerTypeRE  = regexp.MustCompile(`(?i)(breast|lung|skin|prostate|colon|liver|kidney|brain|blood|bone)`)
)

var monthNumbers = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

const monthAlternation = `january|february|march|april|may|june|july|august|september|october|november|december`

var (
	isoDateRE  = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	dmyDateRE  = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})\b`)
	dayMonthRE = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthAlternation + `)(?:\s+(\d{4}))?\b`)
	monthDayRE = regexp.MustCompile(`(?i)\b(` + monthAlternation + `)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)

	tomorrowRE = regexp.MustCompile(`(?i)\btomorrow\b`)
	todayRE    = regexp.MustCompile(`(?i)\btoday\b`)
	nextWeekRE = regexp.MustCompile(`(?i)\bnext\s+week\b`)

	clockTimeRE    = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?`)
	bareMeridiemRE = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	prepHourRE     = regexp.MustCompile(`(?i)\b(?:at|around|by)\s+(\d{1,2})\b`)
)

// RegexExtractor is the default heuristic extractor: ordered pattern rules,
// first match wins per slot, unmatched slots stay empty. It must tolerate
// garbage input without failing.
type RegexExtractor struct{}

// NewRegexExtractor returns the default extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract parses a single normalized message. now anchors relative dates
// ("tomorrow") and defaults the year for natural-language dates.
func (e *RegexExtractor) Extract(text string, now time.Time) Slots {
	return Slots{
		ServiceType:   strings.ToLower(serviceTypeRE.FindString(text)),
		CancerType:    strings.ToLower(cancerTypeRE.FindString(text)),
		PreferredDate: extractDate(text, now),
		PreferredTime: extractTime(text),
	}
}

// extractDate tries, in order: relative keywords, structured numeric dates,
// natural-language day/month phrases. Every candidate must survive calendar
// round-trip validation; otherwise the slot stays empty.
func extractDate(text string, now time.Time) string {
	switch {
	case tomorrowRE.MatchString(text):
		return now.AddDate(0, 0, 1).Format(isoDate)
	case todayRE.MatchString(text):
		return now.Format(isoDate)
	case nextWeekRE.MatchString(text):
		return now.AddDate(0, 0, 7).Format(isoDate)
	}

	if m := isoDateRE.FindStringSubmatch(text); m != nil {
		if d := formatCalendarDate(m[3], m[2], m[1]); d != "" {
			return d
		}
	}
	if m := dmyDateRE.FindStringSubmatch(text); m != nil {
		if d := formatCalendarDate(m[1], m[2], m[3]); d != "" {
			return d
		}
	}

	// Natural language: try day-month order first, then month-day. Iterate
	// every match and keep the first one that is a real calendar date, so
	// "31 February" is rejected rather than clamped.
	for _, m := range dayMonthRE.FindAllStringSubmatch(text, -1) {
		if d := resolveNaturalDate(m[1], m[2], m[3], now); d != "" {
			return d
		}
	}
	for _, m := range monthDayRE.FindAllStringSubmatch(text, -1) {
		if d := resolveNaturalDate(m[2], m[1], m[3], now); d != "" {
			return d
		}
	}
	return ""
}

// formatCalendarDate builds YYYY-MM-DD from string parts and validates it.
// Returns "" when the parts do not form a real date.
func formatCalendarDate(day, month, year string) string {
	d, err1 := strconv.Atoi(day)
	m, err2 := strconv.Atoi(month)
	y, err3 := strconv.Atoi(year)
	if err1 != nil || err2 != nil || err3 != nil {
		return ""
	}
	candidate := fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	if !IsCalendarDate(candidate) {
		return ""
	}
	return candidate
}

func resolveNaturalDate(dayStr, monthName, yearStr string, now time.Time) string {
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return ""
	}
	month, ok := monthNumbers[strings.ToLower(monthName)]
	if !ok {
		return ""
	}
	year := now.Year()
	if yearStr != "" {
		if y, err := strconv.Atoi(yearStr); err == nil {
			year = y
		}
	}
	candidate := fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
	if !IsCalendarDate(candidate) {
		return ""
	}
	return candidate
}

// extractTime tries, in order: H:MM with optional meridiem, bare hour with
// meridiem ("2pm"), and a bare hour introduced by at/around/by. The last rule
// defaults hours 9 through 17 to PM, biasing toward daytime appointment
// hours; hours above 12 are kept as an ambiguous 24-hour string.
func extractTime(text string) string {
	if m := clockTimeRE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if minute <= 59 {
			if m[3] != "" {
				return fmt.Sprintf("%d:%02d %s", hour, minute, strings.ToUpper(m[3]))
			}
			if hour <= 23 {
				h12, meridiem := to12Hour(hour)
				return fmt.Sprintf("%d:%02d %s", h12, minute, meridiem)
			}
		}
	}

	if m := bareMeridiemRE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%d:00 %s", hour, strings.ToUpper(m[2]))
	}

	if m := prepHourRE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		switch {
		case hour > 12:
			// Ambiguous 24-hour style, left unnormalized.
			return fmt.Sprintf("%d:00", hour)
		case hour >= 9:
			return fmt.Sprintf("%d:00 PM", hour)
		default:
			return fmt.Sprintf("%d:00 AM", hour)
		}
	}
	return ""
}

// to12Hour converts a 24-hour hour value to its 12-hour rendering.
func to12Hour(hour int) (int, string) {
	switch {
	case hour == 0:
		return 12, "AM"
	case hour == 12:
		return 12, "PM"
	case hour > 12:
		return hour - 12, "PM"
	default:
		return hour, "AM"
	}
}
