package chat

import "errors"

// Error taxonomy for the chat turn pipeline. Every error surfaced to a
// patient resolves to a natural-language sentence plus a machine-readable
// code; raw internals never leak to the client.
var (
	// ErrPastDate means the requested date is strictly before today.
	ErrPastDate = errors.New("chat: preferred date is in the past")
	// ErrTooFarFuture means the requested date is more than two years out.
	ErrTooFarFuture = errors.New("chat: preferred date is more than two years away")
	// ErrInvalidDateFormat means the candidate string is not a real calendar date.
	ErrInvalidDateFormat = errors.New("chat: invalid date format")
	// ErrMessagePersist means the inbound user message could not be saved
	// after exhausting retries.
	ErrMessagePersist = errors.New("chat: failed to persist message")
	// ErrBookingCommit means the booking transaction rolled back.
	ErrBookingCommit = errors.New("chat: booking commit failed")
	// ErrSessionNotFound means the supplied session reference resolved to nothing.
	ErrSessionNotFound = errors.New("chat: session not found")
)

// Error codes surfaced in responses for client branching.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodePastDate      = "PAST_DATE"
	CodeTooFarFuture  = "DATE_TOO_FAR"
	CodeInvalidDate   = "INVALID_DATE"
	CodePersistFailed = "MESSAGE_PERSIST_FAILED"
	CodeBookingFailed = "BOOKING_COMMIT_FAILED"
	CodeInternal      = "INTERNAL_ERROR"
)
