package chat

import (
	"strings"
	"time"
)

// Message roles as persisted in chat_messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BookingStatusPending is the initial status of every committed booking.
const BookingStatusPending = "pending"

// Session is one ongoing conversation thread for a patient. It is looked up
// either by its numeric ID or by its opaque external token.
type Session struct {
	ID        int64
	Token     string
	UserID    int64
	CreatedAt time.Time
}

// Message is a single conversation turn. Messages are append-only; creation
// time defines ordering.
type Message struct {
	ID        int64
	SessionID int64
	Role      string
	Body      string
	CreatedAt time.Time
}

// Booking is the appointment record owned by a session. A session holds at
// most one live booking at a time.
type Booking struct {
	ID            int64
	UserID        int64
	SessionID     int64
	ServiceType   string
	CancerType    string
	PreferredDate string
	PreferredTime string
	Notes         string
	Status        string
	CreatedAt     time.Time
}

// Slots carries the four appointment fields pulled out of conversational
// text. A field is either a validated normalized value or empty, never a
// partially parsed string.
type Slots struct {
	ServiceType   string `json:"serviceType,omitempty"`
	CancerType    string `json:"cancerType,omitempty"`
	PreferredDate string `json:"preferredDate,omitempty"`
	PreferredTime string `json:"preferredTime,omitempty"`
}

// Complete reports whether all four slots are filled.
func (s Slots) Complete() bool {
	return s.ServiceType != "" && s.CancerType != "" && s.PreferredDate != "" && s.PreferredTime != ""
}

// Empty reports whether no slot is filled.
func (s Slots) Empty() bool {
	return s == Slots{}
}

// Missing returns human labels for the unfilled slots, in a fixed order.
func (s Slots) Missing() []string {
	var missing []string
	if s.ServiceType == "" {
		missing = append(missing, "service type")
	}
	if s.CancerType == "" {
		missing = append(missing, "cancer type")
	}
	if s.PreferredDate == "" {
		missing = append(missing, "preferred date")
	}
	if s.PreferredTime == "" {
		missing = append(missing, "preferred time")
	}
	return missing
}

// FillFrom returns a copy of s with empty fields taken from older. Values
// already present in s always win.
func (s Slots) FillFrom(older Slots) Slots {
	if s.ServiceType == "" {
		s.ServiceType = older.ServiceType
	}
	if s.CancerType == "" {
		s.CancerType = older.CancerType
	}
	if s.PreferredDate == "" {
		s.PreferredDate = older.PreferredDate
	}
	if s.PreferredTime == "" {
		s.PreferredTime = older.PreferredTime
	}
	return s
}

// MatchesBooking reports whether the slots equal the four fields of an
// existing booking. Used as the idempotent-confirmation gate.
func (s Slots) MatchesBooking(b *Booking) bool {
	if b == nil {
		return false
	}
	return strings.EqualFold(s.ServiceType, b.ServiceType) &&
		strings.EqualFold(s.CancerType, b.CancerType) &&
		s.PreferredDate == b.PreferredDate &&
		s.PreferredTime == b.PreferredTime
}

// Summary renders the slots as a short human-readable list for prompts and
// confirmation messages. Empty fields render as "not set".
func (s Slots) Summary() string {
	orDefault := func(v string) string {
		if v == "" {
			return "not set"
		}
		return v
	}
	var b strings.Builder
	b.WriteString("- Service type: " + orDefault(s.ServiceType) + "\n")
	b.WriteString("- Cancer type: " + orDefault(s.CancerType) + "\n")
	b.WriteString("- Preferred date: " + orDefault(s.PreferredDate) + "\n")
	b.WriteString("- Preferred time: " + orDefault(s.PreferredTime))
	return b.String()
}
