package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCalendarDate(t *testing.T) {
	assert.True(t, IsCalendarDate("2026-09-15"))
	assert.True(t, IsCalendarDate("2028-02-29")) // leap year
	assert.False(t, IsCalendarDate("2025-02-30"))
	assert.False(t, IsCalendarDate("2025-04-31"))
	assert.False(t, IsCalendarDate("2025-13-01"))
	assert.False(t, IsCalendarDate("2026-9-15")) // must be zero-padded
	assert.False(t, IsCalendarDate("not a date"))
}

func TestValidateFutureDate(t *testing.T) {
	now := time.Date(2026, time.August, 30, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		name    string
		date    string
		wantErr error
	}{
		{"today is valid", "2026-08-30", nil},
		{"yesterday is past", "2026-08-29", ErrPastDate},
		{"tomorrow is valid", "2026-08-31", nil},
		{"exactly two years out is valid", "2028-08-30", nil},
		{"two years and a day is too far", "2028-08-31", ErrTooFarFuture},
		{"impossible date", "2026-02-30", ErrInvalidDateFormat},
		{"garbage", "soonish", ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateFutureDate(tt.date, now)
			if tt.wantErr == nil {
				assert.True(t, v.Valid)
				assert.NoError(t, v.Err)
				assert.Empty(t, v.Message)
				return
			}
			require.False(t, v.Valid)
			assert.ErrorIs(t, v.Err, tt.wantErr)
			assert.NotEmpty(t, v.Message)
		})
	}
}

func TestValidateFutureDateDayGranularity(t *testing.T) {
	// Late in the evening, today's date must still validate.
	now := time.Date(2026, time.August, 30, 23, 59, 59, 0, time.UTC)
	v := ValidateFutureDate("2026-08-30", now)
	assert.True(t, v.Valid)
}
