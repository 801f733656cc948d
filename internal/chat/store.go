package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cancermitr/care-platform/pkg/logging"
)

// PgxPool is the subset of pgxpool.Pool the store needs. Declared as an
// interface so tests can inject a pgxmock pool.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists sessions, messages, and bookings to PostgreSQL.
type Store struct {
	db     PgxPool
	retry  BackoffPolicy
	logger *logging.Logger
}

// NewStore creates a store backed by a pgx pool.
func NewStore(db PgxPool, retry BackoffPolicy, logger *logging.Logger) *Store {
	if db == nil {
		panic("chat: pgx pool required")
	}
	if retry.MaxAttempts == 0 {
		retry = DefaultBackoff()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{db: db, retry: retry, logger: logger}
}

// FindSession resolves a session reference that may be either the opaque
// external token or the internal numeric id.
func (s *Store) FindSession(ctx context.Context, ref string) (*Session, error) {
	if ref == "" {
		return nil, ErrSessionNotFound
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		sess, err := s.querySession(ctx, `SELECT id, token, user_id, created_at FROM chat_sessions WHERE id = $1`, id)
		if err == nil || !errors.Is(err, ErrSessionNotFound) {
			return sess, err
		}
	}
	return s.querySession(ctx, `SELECT id, token, user_id, created_at FROM chat_sessions WHERE token = $1`, ref)
}

// LatestSessionForUser returns the user's most recently created session, or
// ErrSessionNotFound when the user has none.
func (s *Store) LatestSessionForUser(ctx context.Context, userID int64) (*Session, error) {
	return s.querySession(ctx, `
		SELECT id, token, user_id, created_at FROM chat_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID)
}

// CreateSession opens a new conversation thread for the user.
func (s *Store) CreateSession(ctx context.Context, userID int64) (*Session, error) {
	token := uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO chat_sessions (token, user_id)
		VALUES ($1, $2)
		RETURNING id, token, user_id, created_at`, token, userID)

	var sess Session
	if err := row.Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.CreatedAt); err != nil {
		return nil, fmt.Errorf("chat: create session: %w", err)
	}
	return &sess, nil
}

func (s *Store) querySession(ctx context.Context, query string, arg any) (*Session, error) {
	var sess Session
	err := s.db.QueryRow(ctx, query, arg).Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chat: load session: %w", err)
	}
	return &sess, nil
}

// AppendMessage persists one conversation turn, retrying transient failures
// with bounded exponential backoff.
func (s *Store) AppendMessage(ctx context.Context, sessionID int64, role, body string) error {
	err := s.retry.Retry(ctx, func() error {
		_, execErr := s.db.Exec(ctx, `
			INSERT INTO chat_messages (session_id, role, body)
			VALUES ($1, $2, $3)`, sessionID, role, body)
		return execErr
	})
	if err != nil {
		s.logger.Error("message persist failed after retries", "session_id", sessionID, "role", role, "error", err)
		return fmt.Errorf("%w: %v", ErrMessagePersist, err)
	}
	return nil
}

// RecentMessages returns up to limit most recent messages for the session in
// ascending creation order.
func (s *Store) RecentMessages(ctx context.Context, sessionID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, role, body, created_at FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat: load messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("chat: scan message: %w", err)
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: load messages: %w", err)
	}

	// Reverse to chronological order for callers.
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}

// BookingForSession returns the session's live booking, or nil when none
// exists.
func (s *Store) BookingForSession(ctx context.Context, sessionID int64) (*Booking, error) {
	var b Booking
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, session_id, service_type, cancer_type, preferred_date, preferred_time, notes, status, created_at
		FROM bookings
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, sessionID).Scan(
		&b.ID, &b.UserID, &b.SessionID, &b.ServiceType, &b.CancerType,
		&b.PreferredDate, &b.PreferredTime, &b.Notes, &b.Status, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat: load booking: %w", err)
	}
	return &b, nil
}

// DeleteBookingForSession removes the session's booking if one exists.
// Deleting zero or one row is equally valid.
func (s *Store) DeleteBookingForSession(ctx context.Context, sessionID int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM bookings WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("chat: delete booking: %w", err)
	}
	return nil
}

// CommitBooking inserts the booking row and the assistant confirmation
// message inside one all-or-nothing transaction. If the transaction fails,
// neither row exists.
func (s *Store) CommitBooking(ctx context.Context, booking Booking, confirmation string) (*Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrBookingCommit, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (user_id, session_id, service_type, cancer_type, preferred_date, preferred_time, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		booking.UserID, booking.SessionID, booking.ServiceType, booking.CancerType,
		booking.PreferredDate, booking.PreferredTime, booking.Notes, booking.Status,
	)
	if err := row.Scan(&booking.ID, &booking.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: insert booking: %v", ErrBookingCommit, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_messages (session_id, role, body)
		VALUES ($1, $2, $3)`, booking.SessionID, RoleAssistant, confirmation); err != nil {
		return nil, fmt.Errorf("%w: insert confirmation: %v", ErrBookingCommit, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrBookingCommit, err)
	}
	return &booking, nil
}

// UserEmail returns the account email for booking notifications. Missing
// users return an empty email, not an error.
func (s *Store) UserEmail(ctx context.Context, userID int64) (string, error) {
	var email string
	err := s.db.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("chat: load user email: %w", err)
	}
	return email, nil
}
