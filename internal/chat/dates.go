package chat

import "time"

const isoDate = "2006-01-02"

// maxBookingHorizon bounds how far ahead an appointment may be requested.
const maxBookingHorizonYears = 2

// IsCalendarDate reports whether s round-trips through calendar-date parsing
// to the identical YYYY-MM-DD string. Catches impossible dates such as
// "2025-02-30", which time.Parse would otherwise normalize.
func IsCalendarDate(s string) bool {
	t, err := time.Parse(isoDate, s)
	return err == nil && t.Format(isoDate) == s
}

// DateValidation is the structured result of business-date validation.
type DateValidation struct {
	Valid   bool
	Err     error
	Message string
}

// ValidateFutureDate checks a syntactically valid YYYY-MM-DD date against the
// booking window: not before today, not more than two years out. Comparison
// is at day granularity; time-of-day is ignored. Never panics or throws.
func ValidateFutureDate(dateStr string, now time.Time) DateValidation {
	t, err := time.ParseInLocation(isoDate, dateStr, now.Location())
	if err != nil || t.Format(isoDate) != dateStr {
		return DateValidation{
			Err:     ErrInvalidDateFormat,
			Message: "I couldn't understand that date. Please give it as YYYY-MM-DD, for example 2026-09-15.",
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if t.Before(today) {
		return DateValidation{
			Err:     ErrPastDate,
			Message: "That date has already passed. Please choose today or a future date.",
		}
	}
	if t.After(today.AddDate(maxBookingHorizonYears, 0, 0)) {
		return DateValidation{
			Err:     ErrTooFarFuture,
			Message: "That date is more than two years away. Please choose a date within the next two years.",
		}
	}
	return DateValidation{Valid: true}
}
