package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedqa/orchestrator/llm"
	"github.com/groundedqa/orchestrator/model"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func textMessage(text string) *sdk.Message {
	return &sdk.Message{
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: text}},
	}
}

func TestNew_RejectsMissingAPIKeyOrModel(t *testing.T) {
	_, err := New("", "claude-3.5-sonnet")
	assert.Error(t, err)

	_, err = New("sk-test", "")
	assert.Error(t, err)
}

func TestGeneratePlan_ReturnsRawTextAndSetsTemperature(t *testing.T) {
	stub := &stubMessagesClient{resp: textMessage(`{"intent":"x","actions":[],"needsClarification":false}`)}
	a := &Adapter{msg: stub, model: "claude-3.5-sonnet", maxTokens: defaultMaxTokens}

	out, err := a.GeneratePlan(context.Background(), llm.GeneratePlanInput{
		UserMessage:  "how many rows?",
		AllowedTools: []string{"sql.query"},
		Temperature:  0.2,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"intent":"x","actions":[],"needsClarification":false}`, string(out))
	require.NotNil(t, stub.lastParams.Temperature)
	assert.InDelta(t, 0.2, stub.lastParams.Temperature.Value, 0.001)
}

func TestGenerateAnswer_PropagatesToolResultsIntoPrompt(t *testing.T) {
	stub := &stubMessagesClient{resp: textMessage(`{"content":"answer","citations":[]}`)}
	a := &Adapter{msg: stub, model: "claude-3.5-sonnet", maxTokens: defaultMaxTokens}

	out, err := a.GenerateAnswer(context.Background(), llm.GenerateAnswerInput{
		UserMessage: "summarize",
		ToolResults: []model.ToolResult{{ID: "tr-42"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"answer","citations":[]}`, string(out))
	require.Len(t, stub.lastParams.System, 1)
	assert.Contains(t, stub.lastParams.System[0].Text, "Answer schema")
	assert.Contains(t, stub.lastParams.System[0].Text, "tr-42")
}

func TestStreamAnswer_EmitsDecodedContentThenCloses(t *testing.T) {
	stub := &stubMessagesClient{resp: textMessage(`{"content":"streamed","citations":[]}`)}
	a := &Adapter{msg: stub, model: "claude-3.5-sonnet", maxTokens: defaultMaxTokens}

	ch := make(chan string, 1)
	err := a.StreamAnswer(context.Background(), llm.GenerateAnswerInput{UserMessage: "x"}, ch)
	require.NoError(t, err)

	fragment, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, "streamed", fragment)

	_, ok = <-ch
	assert.False(t, ok, "channel should be closed after streaming completes")
}

func TestCompleteJSON_PropagatesClientError(t *testing.T) {
	stub := &stubMessagesClient{err: assert.AnError}
	a := &Adapter{msg: stub, model: "claude-3.5-sonnet", maxTokens: defaultMaxTokens}

	_, err := a.GeneratePlan(context.Background(), llm.GeneratePlanInput{UserMessage: "x"})
	assert.Error(t, err)
}

func TestCompleteJSON_ErrorsOnNoTextBlock(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{}}
	a := &Adapter{msg: stub, model: "claude-3.5-sonnet", maxTokens: defaultMaxTokens}

	_, err := a.GeneratePlan(context.Background(), llm.GeneratePlanInput{UserMessage: "x"})
	assert.Error(t, err)
}
