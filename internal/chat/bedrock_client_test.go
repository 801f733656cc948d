package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	lastInput *bedrockruntime.ConverseInput
	output    *bedrockruntime.ConverseOutput
	err       error
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.lastInput = params
	return f.output, f.err
}

func converseTextOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(5),
			TotalTokens:  aws.Int32(15),
		},
	}
}

func TestBedrockComplete(t *testing.T) {
	api := &fakeConverseAPI{output: converseTextOutput("hello from bedrock")}
	client := NewBedrockLLMClient(api, "model-id")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System:      []string{"persona"},
		Messages:    []ChatTurn{{Role: ChatRoleUser, Content: "hi"}},
		MaxTokens:   100,
		Temperature: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello from bedrock", resp.Text)
	assert.Equal(t, int32(15), resp.Usage.TotalTokens)
	assert.Equal(t, "model-id", aws.ToString(api.lastInput.ModelId))
	assert.Len(t, api.lastInput.System, 1)
	assert.Len(t, api.lastInput.Messages, 1)
	require.NotNil(t, api.lastInput.InferenceConfig)
	assert.Equal(t, int32(100), aws.ToInt32(api.lastInput.InferenceConfig.MaxTokens))
}

func TestBedrockNegativeTemperatureOmitted(t *testing.T) {
	api := &fakeConverseAPI{output: converseTextOutput("ok")}
	client := NewBedrockLLMClient(api, "model-id")

	_, err := client.Complete(context.Background(), LLMRequest{
		Messages:    []ChatTurn{{Role: ChatRoleUser, Content: "hi"}},
		Temperature: -1,
	})
	require.NoError(t, err)
	assert.Nil(t, api.lastInput.InferenceConfig)
}

func TestBedrockRequiresModelID(t *testing.T) {
	client := NewBedrockLLMClient(&fakeConverseAPI{}, "")
	_, err := client.Complete(context.Background(), LLMRequest{
		Messages: []ChatTurn{{Role: ChatRoleUser, Content: "hi"}},
	})
	assert.Error(t, err)
}

func TestBedrockPropagatesAPIError(t *testing.T) {
	api := &fakeConverseAPI{err: errors.New("throttled")}
	client := NewBedrockLLMClient(api, "model-id")

	_, err := client.Complete(context.Background(), LLMRequest{
		Messages: []ChatTurn{{Role: ChatRoleUser, Content: "hi"}},
	})
	assert.ErrorContains(t, err, "throttled")
}
