package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cancermitr/care-platform/pkg/logging"
)

var orchestratorTracer = otel.Tracer("cancermitr.internal.chat.orchestrator")

// Turn outcomes recorded in metrics.
const (
	OutcomeRefused         = "refused"
	OutcomeDateError       = "date_error"
	OutcomeBooked          = "booked"
	OutcomeBookingFailed   = "booking_failed"
	OutcomePersistFailed   = "persist_failed"
	OutcomeAwaitingConfirm = "awaiting_confirmation"
	OutcomeModifying       = "modifying"
	OutcomeCollecting      = "collecting"
	OutcomeReply           = "reply"
)

// turnState is the conversation state re-derived from persisted facts each
// turn. Modeled explicitly so branch handling stays exhaustive.
type turnState int

const (
	stateCollecting turnState = iota
	stateAwaitingConfirmation
	stateBooked
	stateModifying
)

// TurnStore is the persistence surface the orchestrator needs. *Store
// satisfies it; tests substitute fakes.
type TurnStore interface {
	FindSession(ctx context.Context, ref string) (*Session, error)
	LatestSessionForUser(ctx context.Context, userID int64) (*Session, error)
	CreateSession(ctx context.Context, userID int64) (*Session, error)
	AppendMessage(ctx context.Context, sessionID int64, role, body string) error
	RecentMessages(ctx context.Context, sessionID int64, limit int) ([]Message, error)
	BookingForSession(ctx context.Context, sessionID int64) (*Booking, error)
	DeleteBookingForSession(ctx context.Context, sessionID int64) error
	CommitBooking(ctx context.Context, booking Booking, confirmation string) (*Booking, error)
	UserEmail(ctx context.Context, userID int64) (string, error)
}

// TurnMetrics records per-turn counters and latency. A nil value disables
// recording.
type TurnMetrics interface {
	ObserveTurn(outcome string, took time.Duration)
	BookingCreated()
	OracleDegraded()
}

// BookingNotifier delivers the booking confirmation out-of-band. A nil value
// disables notifications.
type BookingNotifier interface {
	BookingConfirmed(ctx context.Context, email string, booking Booking) error
}

// TurnInput is one inbound chat message with its resolved identity.
type TurnInput struct {
	UserID     int64
	SessionRef string
	Message    string
}

// TurnResult is the structured outcome of one turn.
type TurnResult struct {
	Message              string   `json:"message"`
	SessionID            string   `json:"sessionId"`
	Confirmed            bool     `json:"confirmed,omitempty"`
	AppointmentID        int64    `json:"appointmentId,omitempty"`
	AppointmentDetails   *Booking `json:"appointmentDetails,omitempty"`
	RequiresConfirmation bool     `json:"requiresConfirmation,omitempty"`
	RequiresModification bool     `json:"requiresModification,omitempty"`
	MissingFields        []string `json:"missingFields,omitempty"`
	DateError            string   `json:"dateError,omitempty"`
	ErrorCode            string   `json:"errorCode,omitempty"`
}

// Orchestrator runs the per-turn conversation pipeline: session resolution,
// slot extraction and merge, date validation, intent handling, the oracle
// call, and the booking state machine.
type Orchestrator struct {
	store     TurnStore
	oracle    *Oracle
	extractor SlotExtractor
	cache     *HistoryCache
	metrics   TurnMetrics
	notifier  BookingNotifier
	logger    *logging.Logger

	historyWindow     int
	wideHistoryWindow int
	now               func() time.Time
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithHistoryWindows overrides the normal and wide history fetch limits.
func WithHistoryWindows(normal, wide int) OrchestratorOption {
	return func(o *Orchestrator) {
		if normal > 0 {
			o.historyWindow = normal
		}
		if wide > normal {
			o.wideHistoryWindow = wide
		}
	}
}

// WithClock injects the time source used for relative-date resolution.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithHistoryCache attaches a Redis-backed history cache.
func WithHistoryCache(cache *HistoryCache) OrchestratorOption {
	return func(o *Orchestrator) { o.cache = cache }
}

// WithMetrics attaches turn metrics.
func WithMetrics(metrics TurnMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = metrics }
}

// WithNotifier attaches the booking confirmation notifier.
func WithNotifier(notifier BookingNotifier) OrchestratorOption {
	return func(o *Orchestrator) { o.notifier = notifier }
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(store TurnStore, oracle *Oracle, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if store == nil {
		panic("chat: store cannot be nil")
	}
	if oracle == nil {
		panic("chat: oracle cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		store:             store,
		oracle:            oracle,
		extractor:         NewRegexExtractor(),
		logger:            logger,
		historyWindow:     30,
		wideHistoryWindow: 200,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessTurn runs one inbound message through the full pipeline and returns
// the structured reply. Only a failure to persist the user's own message is
// surfaced as an error; every other failure resolves to a reply.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	started := o.now()
	ctx, span := orchestratorTracer.Start(ctx, "chat.turn")
	defer span.End()

	// Off-topic messages short-circuit before any persistence or oracle work.
	if IsUnrelated(in.Message) {
		o.observe(OutcomeRefused, started)
		return &TurnResult{Message: refusalReply, SessionID: in.SessionRef}, nil
	}

	sess, err := o.resolveSession(ctx, in)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("chat.session", sess.Token))

	// History is fetched before the current message is persisted so the
	// oracle sees the current turn exactly once.
	history, err := o.fetchHistory(ctx, sess, o.historyWindow)
	if err != nil {
		o.logger.Warn("history fetch failed, continuing with current message only", "session", sess.Token, "error", err)
		history = nil
	}

	if err := o.store.AppendMessage(ctx, sess.ID, RoleUser, in.Message); err != nil {
		o.observe(OutcomePersistFailed, started)
		return nil, err
	}
	o.cache.Invalidate(ctx, sess.Token)

	now := o.now()
	normalized := NormalizeMonths(in.Message)
	current := o.extractor.Extract(normalized, now)
	merged := current.FillFrom(AggregateHistory(history, o.extractor, now))

	// A message that states new slot values is a statement, not a
	// confirmation, even when it contains a word like "book". Only a turn
	// with no fresh slot data can confirm ("yes", "confirm", ...).
	confirming := current.Empty() && IsConfirming(in.Message)
	declining := !confirming && IsDeclining(in.Message)
	updating := IsUpdating(in.Message)

	// Dates are validated against business rules only outside a confirmation
	// turn; the confirmation step works with the already-accepted value.
	if merged.PreferredDate != "" && !confirming {
		if v := ValidateFutureDate(merged.PreferredDate, now); !v.Valid {
			o.persistReply(ctx, sess, v.Message)
			o.observe(OutcomeDateError, started)
			return &TurnResult{
				Message:   v.Message,
				SessionID: sess.Token,
				DateError: v.Message,
				ErrorCode: dateErrorCode(v.Err),
			}, nil
		}
	}

	// A confirmation should not fail because a slot was mentioned many turns
	// back; widen the history search before giving up.
	if confirming && !merged.Complete() {
		if wide, wideErr := o.fetchHistory(ctx, sess, o.wideHistoryWindow); wideErr == nil {
			merged = merged.FillFrom(AggregateHistory(wide, o.extractor, now))
		}
	}

	if updating {
		if err := o.store.DeleteBookingForSession(ctx, sess.ID); err != nil {
			o.logger.Error("booking reset failed", "session", sess.Token, "error", err)
		}
	}

	oracleReply, degraded := o.oracle.Reply(ctx, merged, history, in.Message)
	if degraded && o.metrics != nil {
		o.metrics.OracleDegraded()
	}

	existing, err := o.store.BookingForSession(ctx, sess.ID)
	if err != nil {
		o.logger.Error("booking lookup failed", "session", sess.Token, "error", err)
		existing = nil
	}

	result := o.resolveBranch(ctx, sess, merged, existing, oracleReply, confirming, declining, started)
	result.SessionID = sess.Token
	return result, nil
}

// resolveBranch runs step 12 of the pipeline as an explicit state switch and
// persists the assistant reply for the non-transactional branches.
func (o *Orchestrator) resolveBranch(ctx context.Context, sess *Session, merged Slots, existing *Booking, oracleReply string, confirming, declining bool, started time.Time) *TurnResult {
	switch o.deriveState(merged, existing, confirming, declining) {
	case stateBooked:
		if confirming && merged.Complete() && !merged.MatchesBooking(existing) {
			// Confirming a different slot set replaces the live booking.
			if err := o.store.DeleteBookingForSession(ctx, sess.ID); err != nil {
				o.logger.Error("stale booking removal failed", "session", sess.Token, "error", err)
			}
			return o.commitBooking(ctx, sess, merged, started)
		}
		// Re-confirming an identical booked slot set is a no-op.
		o.persistReply(ctx, sess, oracleReply)
		o.observe(OutcomeReply, started)
		return &TurnResult{Message: oracleReply}

	case stateAwaitingConfirmation:
		if confirming {
			return o.commitBooking(ctx, sess, merged, started)
		}
		reply := oracleReply + "\n\n" + confirmationPrompt(merged)
		o.persistReply(ctx, sess, reply)
		o.observe(OutcomeAwaitingConfirm, started)
		return &TurnResult{Message: reply, RequiresConfirmation: true}

	case stateModifying:
		reply := modificationPrompt(merged)
		o.persistReply(ctx, sess, reply)
		o.observe(OutcomeModifying, started)
		return &TurnResult{Message: reply, RequiresModification: true}

	default: // stateCollecting
		reply := oracleReply
		missing := merged.Missing()
		if !merged.Empty() && len(missing) > 0 && !confirming {
			reply += missingFieldsSuffix(missing)
		}
		o.persistReply(ctx, sess, reply)
		outcome := OutcomeReply
		if !merged.Empty() && len(missing) > 0 {
			outcome = OutcomeCollecting
		}
		o.observe(outcome, started)
		return &TurnResult{Message: reply, MissingFields: missing}
	}
}

func (o *Orchestrator) deriveState(merged Slots, existing *Booking, confirming, declining bool) turnState {
	if existing != nil {
		return stateBooked
	}
	if !merged.Complete() {
		return stateCollecting
	}
	if declining {
		return stateModifying
	}
	return stateAwaitingConfirmation
}

// commitBooking runs the all-or-nothing booking transaction and builds the
// confirmation result. The confirmation message is inserted inside the same
// transaction, so no separate reply persist happens on success.
func (o *Orchestrator) commitBooking(ctx context.Context, sess *Session, slots Slots, started time.Time) *TurnResult {
	confirmation := bookingConfirmationMessage(slots)
	booking := Booking{
		UserID:        sess.UserID,
		SessionID:     sess.ID,
		ServiceType:   slots.ServiceType,
		CancerType:    slots.CancerType,
		PreferredDate: slots.PreferredDate,
		PreferredTime: slots.PreferredTime,
		Notes:         bookingNotes(slots, o.now().Format(time.RFC3339)),
		Status:        BookingStatusPending,
	}

	committed, err := o.store.CommitBooking(ctx, booking, confirmation)
	if err != nil {
		o.logger.Error("booking transaction failed", "session", sess.Token, "error", err)
		o.persistReply(ctx, sess, apologyReply)
		o.observe(OutcomeBookingFailed, started)
		return &TurnResult{
			Message:   apologyReply,
			ErrorCode: CodeBookingFailed,
		}
	}
	o.cache.Invalidate(ctx, sess.Token)

	if o.metrics != nil {
		o.metrics.BookingCreated()
	}
	o.notifyBooking(ctx, committed)
	o.observe(OutcomeBooked, started)

	return &TurnResult{
		Message:            confirmation,
		Confirmed:          true,
		AppointmentID:      committed.ID,
		AppointmentDetails: committed,
	}
}

func (o *Orchestrator) notifyBooking(ctx context.Context, booking *Booking) {
	if o.notifier == nil {
		return
	}
	email, err := o.store.UserEmail(ctx, booking.UserID)
	if err != nil || email == "" {
		if err != nil {
			o.logger.Warn("booking email lookup failed", "user_id", booking.UserID, "error", err)
		}
		return
	}
	if err := o.notifier.BookingConfirmed(ctx, email, *booking); err != nil {
		o.logger.Warn("booking confirmation email failed", "booking_id", booking.ID, "error", err)
	}
}

// resolveSession finds the referenced session, falls back to the user's most
// recent session, and finally opens a new one.
func (o *Orchestrator) resolveSession(ctx context.Context, in TurnInput) (*Session, error) {
	if in.SessionRef != "" {
		sess, err := o.store.FindSession(ctx, in.SessionRef)
		if err == nil {
			if sess.UserID != in.UserID {
				return nil, ErrSessionNotFound
			}
			return sess, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}
	sess, err := o.store.LatestSessionForUser(ctx, in.UserID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	created, err := o.store.CreateSession(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("chat: open session: %w", err)
	}
	return created, nil
}

func (o *Orchestrator) fetchHistory(ctx context.Context, sess *Session, limit int) ([]Message, error) {
	if limit == o.historyWindow {
		if cached := o.cache.Load(ctx, sess.Token); cached != nil {
			return cached, nil
		}
	}
	messages, err := o.store.RecentMessages(ctx, sess.ID, limit)
	if err != nil {
		return nil, err
	}
	if limit == o.historyWindow {
		o.cache.Save(ctx, sess.Token, messages)
	}
	return messages, nil
}

// persistReply stores the assistant's reply best-effort; a failure never
// blocks returning the reply to the caller.
func (o *Orchestrator) persistReply(ctx context.Context, sess *Session, reply string) {
	if err := o.store.AppendMessage(ctx, sess.ID, RoleAssistant, reply); err != nil {
		o.logger.Error("assistant reply persist failed", "session", sess.Token, "error", err)
		return
	}
	o.cache.Invalidate(ctx, sess.Token)
}

func (o *Orchestrator) observe(outcome string, started time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.ObserveTurn(outcome, o.now().Sub(started))
}

func dateErrorCode(err error) string {
	switch err {
	case ErrPastDate:
		return CodePastDate
	case ErrTooFarFuture:
		return CodeTooFarFuture
	case ErrInvalidDateFormat:
		return CodeInvalidDate
	default:
		return CodeValidation
	}
}
