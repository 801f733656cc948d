package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUnrelated(t *testing.T) {
	assert.True(t, IsUnrelated("what's the weather like"))
	assert.True(t, IsUnrelated("tell me a JOKE"))
	assert.True(t, IsUnrelated("should I buy bitcoin or book a consultation"))
	assert.False(t, IsUnrelated("I want to book a consultation"))
	assert.False(t, IsUnrelated(""))
}

func TestIsConfirming(t *testing.T) {
	assert.True(t, IsConfirming("yes"))
	assert.True(t, IsConfirming("YES please"))
	assert.True(t, IsConfirming("ok, proceed"))
	assert.True(t, IsConfirming("that's correct"))
	assert.False(t, IsConfirming("hmm"))
}

func TestIsDeclining(t *testing.T) {
	assert.True(t, IsDeclining("no"))
	assert.True(t, IsDeclining("that's wrong"))
	assert.True(t, IsDeclining("cancel that"))
	assert.True(t, IsDeclining("I want to change the date"))
	assert.False(t, IsDeclining("looks great"))
}

func TestIsUpdating(t *testing.T) {
	assert.True(t, IsUpdating("update my appointment"))
	assert.True(t, IsUpdating("I need to reschedule"))
	assert.True(t, IsUpdating("let's start over"))
	assert.True(t, IsUpdating("new appointment please"))
	assert.False(t, IsUpdating("yes"))
}

// The confirm and decline keyword sets overlap; a message matching both is
// treated as confirming because the orchestrator checks confirm first.
func TestConfirmDeclineOverlap(t *testing.T) {
	msg := "ok but change the time"
	assert.True(t, IsConfirming(msg))
	assert.True(t, IsDeclining(msg))
}
