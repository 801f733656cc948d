package chat

import (
	"context"
	"time"

	"github.com/cancermitr/care-platform/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var oracleTracer = otel.Tracer("cancermitr.internal.chat.oracle")

// defaultOracleTimeout bounds every oracle call; expiry degrades the reply
// instead of hanging the request.
const defaultOracleTimeout = 30 * time.Second

// oracleHistoryWindow bounds how many prior turns are replayed to the oracle.
const oracleHistoryWindow = 20

// Oracle produces the conversational portion of each reply. It supplies the
// fixed persona, the currently-known slot values, and a bounded window of
// prior turns, and degrades to a fixed sentence when the provider fails.
type Oracle struct {
	client  LLMClient
	model   string
	timeout time.Duration
	logger  *logging.Logger
}

// NewOracle wraps an LLM client for use by the orchestrator.
func NewOracle(client LLMClient, model string, timeout time.Duration, logger *logging.Logger) *Oracle {
	if client == nil {
		panic("chat: llm client cannot be nil")
	}
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Oracle{client: client, model: model, timeout: timeout, logger: logger}
}

// Reply returns the oracle's conversational text for the current turn, and
// whether the reply is the degraded fallback sentence.
func (o *Oracle) Reply(ctx context.Context, slots Slots, history []Message, userMessage string) (string, bool) {
	ctx, span := oracleTracer.Start(ctx, "chat.oracle.reply")
	defer span.End()
	span.SetAttributes(attribute.Int("chat.history_len", len(history)))

	turns := make([]ChatTurn, 0, oracleHistoryWindow+1)
	start := 0
	if len(history) > oracleHistoryWindow {
		start = len(history) - oracleHistoryWindow
	}
	for _, msg := range history[start:] {
		role := ChatRoleUser
		if msg.Role == RoleAssistant {
			role = ChatRoleAssistant
		}
		turns = append(turns, ChatTurn{Role: role, Content: msg.Body})
	}
	turns = append(turns, ChatTurn{Role: ChatRoleUser, Content: userMessage})

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Complete(callCtx, LLMRequest{
		Model:       o.model,
		System:      []string{systemPersona, knownSlotsPrompt(slots)},
		Messages:    turns,
		Temperature: -1,
	})
	if err != nil || resp.Text == "" {
		if err != nil {
			span.RecordError(err)
			o.logger.Error("oracle call failed, degrading reply", "error", err)
		} else {
			o.logger.Warn("oracle returned empty text, degrading reply")
		}
		return degradedOracleReply, true
	}

	span.SetAttributes(attribute.Int("chat.oracle_tokens", int(resp.Usage.TotalTokens)))
	return resp.Text, false
}
