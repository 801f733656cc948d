package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cancermitr/care-platform/pkg/logging"
)

type capturingLLM struct {
	lastReq LLMRequest
	reply   string
	err     error
}

func (c *capturingLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	c.lastReq = req
	if c.err != nil {
		return LLMResponse{}, c.err
	}
	return LLMResponse{Text: c.reply}, nil
}

func TestOracleReplySuppliesPersonaAndSlots(t *testing.T) {
	llm := &capturingLLM{reply: "Of course."}
	oracle := NewOracle(llm, "test-model", time.Second, logging.New("error"))

	slots := Slots{ServiceType: "consultation", CancerType: "breast"}
	history := []Message{
		{Role: RoleUser, Body: "hello"},
		{Role: RoleAssistant, Body: "hi, how can I help?"},
	}

	reply, degraded := oracle.Reply(context.Background(), slots, history, "what happens next?")
	assert.Equal(t, "Of course.", reply)
	assert.False(t, degraded)

	require.Len(t, llm.lastReq.System, 2)
	assert.Contains(t, llm.lastReq.System[0], "CancerMitr")
	assert.Contains(t, llm.lastReq.System[1], "consultation")

	require.Len(t, llm.lastReq.Messages, 3)
	assert.Equal(t, ChatRoleAssistant, llm.lastReq.Messages[1].Role)
	assert.Equal(t, "what happens next?", llm.lastReq.Messages[2].Content)
}

func TestOracleReplyBoundsHistoryWindow(t *testing.T) {
	llm := &capturingLLM{reply: "ok"}
	oracle := NewOracle(llm, "test-model", time.Second, logging.New("error"))

	history := make([]Message, 50)
	for i := range history {
		history[i] = Message{Role: RoleUser, Body: "turn"}
	}

	_, _ = oracle.Reply(context.Background(), Slots{}, history, "latest")
	assert.Len(t, llm.lastReq.Messages, oracleHistoryWindow+1)
}

func TestOracleReplyDegradesOnError(t *testing.T) {
	llm := &capturingLLM{err: errors.New("provider down")}
	oracle := NewOracle(llm, "test-model", time.Second, logging.New("error"))

	reply, degraded := oracle.Reply(context.Background(), Slots{}, nil, "hello")
	assert.True(t, degraded)
	assert.Equal(t, degradedOracleReply, reply)
}

func TestOracleReplyDegradesOnEmptyText(t *testing.T) {
	llm := &capturingLLM{reply: ""}
	oracle := NewOracle(llm, "test-model", time.Second, logging.New("error"))

	reply, degraded := oracle.Reply(context.Background(), Slots{}, nil, "hello")
	assert.True(t, degraded)
	assert.Equal(t, degradedOracleReply, reply)
}

func TestFallbackClientUsesSecondary(t *testing.T) {
	primary := &capturingLLM{err: errors.New("primary down")}
	secondary := &capturingLLM{reply: "fallback reply"}
	client := NewFallbackLLMClient(primary, secondary, logging.New("error"))

	resp, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatTurn{{Role: ChatRoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "fallback reply", resp.Text)
}

func TestFallbackClientPropagatesWhenBothFail(t *testing.T) {
	primary := &capturingLLM{err: errors.New("primary down")}
	secondary := &capturingLLM{err: errors.New("secondary down")}
	client := NewFallbackLLMClient(primary, secondary, logging.New("error"))

	_, err := client.Complete(context.Background(), LLMRequest{})
	assert.ErrorContains(t, err, "secondary down")
}

func TestFallbackClientNoSecondary(t *testing.T) {
	primary := &capturingLLM{err: errors.New("primary down")}
	client := NewFallbackLLMClient(primary, nil, logging.New("error"))

	_, err := client.Complete(context.Background(), LLMRequest{})
	assert.ErrorContains(t, err, "primary down")
}
