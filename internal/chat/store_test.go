package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cancermitr/care-platform/pkg/logging"
)

var storeNow = time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	policy := BackoffPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: func(time.Duration) {}}
	return NewStore(mock, policy, logging.New("error")), mock
}

func sessionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "token", "user_id", "created_at"}).
		AddRow(int64(1), "tok-1", int64(7), storeNow)
}

func TestFindSessionByToken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, token, user_id, created_at FROM chat_sessions WHERE token").
		WithArgs("tok-1").
		WillReturnRows(sessionRows())

	sess, err := store.FindSession(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sess.ID)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, int64(7), sess.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSessionByNumericID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, token, user_id, created_at FROM chat_sessions WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sessionRows())

	sess, err := store.FindSession(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSessionNumericFallsBackToToken(t *testing.T) {
	store, mock := newMockStore(t)

	// A purely numeric token must still resolve when no id matches.
	mock.ExpectQuery("SELECT id, token, user_id, created_at FROM chat_sessions WHERE id").
		WithArgs(int64(12345)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT id, token, user_id, created_at FROM chat_sessions WHERE token").
		WithArgs("12345").
		WillReturnRows(sessionRows())

	sess, err := store.FindSession(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sess.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSessionNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, token, user_id, created_at FROM chat_sessions WHERE token").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.FindSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCreateSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO chat_sessions").
		WithArgs(pgxmock.AnyArg(), int64(7)).
		WillReturnRows(sessionRows())

	sess, err := store.CreateSession(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), sess.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessageRetriesTransientFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs(int64(1), RoleUser, "hello").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs(int64(1), RoleUser, "hello").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.AppendMessage(context.Background(), 1, RoleUser, "hello")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessageExhaustsRetries(t *testing.T) {
	store, mock := newMockStore(t)

	for i := 0; i < 3; i++ {
		mock.ExpectExec("INSERT INTO chat_messages").
			WithArgs(int64(1), RoleUser, "hello").
			WillReturnError(errors.New("db down"))
	}

	err := store.AppendMessage(context.Background(), 1, RoleUser, "hello")
	assert.ErrorIs(t, err, ErrMessagePersist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentMessagesReversesToChronological(t *testing.T) {
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"id", "session_id", "role", "body", "created_at"}).
		AddRow(int64(3), int64(1), RoleUser, "newest", storeNow).
		AddRow(int64(2), int64(1), RoleAssistant, "middle", storeNow.Add(-time.Minute)).
		AddRow(int64(1), int64(1), RoleUser, "oldest", storeNow.Add(-2*time.Minute))
	mock.ExpectQuery("SELECT id, session_id, role, body, created_at FROM chat_messages").
		WithArgs(int64(1), 30).
		WillReturnRows(rows)

	messages, err := store.RecentMessages(context.Background(), 1, 30)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "oldest", messages[0].Body)
	assert.Equal(t, "middle", messages[1].Body)
	assert.Equal(t, "newest", messages[2].Body)
}

func TestBookingForSessionNone(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, user_id, session_id, service_type").
		WithArgs(int64(1)).
		WillReturnError(pgx.ErrNoRows)

	booking, err := store.BookingForSession(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, booking)
}

func TestBookingForSessionFound(t *testing.T) {
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "session_id", "service_type", "cancer_type",
		"preferred_date", "preferred_time", "notes", "status", "created_at",
	}).AddRow(int64(9), int64(7), int64(1), "consultation", "breast",
		"2026-08-31", "2:00 PM", "notes", BookingStatusPending, storeNow)
	mock.ExpectQuery("SELECT id, user_id, session_id, service_type").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	booking, err := store.BookingForSession(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, "consultation", booking.ServiceType)
	assert.Equal(t, "2026-08-31", booking.PreferredDate)
}

func TestDeleteBookingForSessionIdempotent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM bookings").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, store.DeleteBookingForSession(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitBookingTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	booking := Booking{
		UserID: 7, SessionID: 1,
		ServiceType: "consultation", CancerType: "breast",
		PreferredDate: "2026-08-31", PreferredTime: "2:00 PM",
		Notes: "notes", Status: BookingStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(booking.UserID, booking.SessionID, booking.ServiceType, booking.CancerType,
			booking.PreferredDate, booking.PreferredTime, booking.Notes, booking.Status).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), storeNow))
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs(booking.SessionID, RoleAssistant, "confirmed!").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback() // deferred rollback after a successful commit is a no-op

	committed, err := store.CommitBooking(context.Background(), booking, "confirmed!")
	require.NoError(t, err)
	assert.Equal(t, int64(42), committed.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitBookingRollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	_, err := store.CommitBooking(context.Background(), Booking{}, "confirmed!")
	assert.ErrorIs(t, err, ErrBookingCommit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitBookingRollsBackOnMessageFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), storeNow))
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.CommitBooking(context.Background(), Booking{SessionID: 1}, "confirmed!")
	assert.ErrorIs(t, err, ErrBookingCommit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT email FROM users").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"email"}).AddRow("patient@example.com"))

	email, err := store.UserEmail(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "patient@example.com", email)
}

func TestUserEmailMissingUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT email FROM users").
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	email, err := store.UserEmail(context.Background(), 404)
	require.NoError(t, err)
	assert.Empty(t, email)
}
