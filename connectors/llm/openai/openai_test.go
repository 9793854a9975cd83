package openai

import (
	"context"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedqa/orchestrator/llm"
)

type stubChatClient struct {
	lastParams openai.ChatCompletionNewParams
	resp       *openai.ChatCompletion
	err        error
}

func (s *stubChatClient) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.lastParams = body
	return s.resp, s.err
}

func chatResponse(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestNew_RejectsMissingAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGeneratePlan_ReturnsRawTextAndSetsTemperature(t *testing.T) {
	stub := &stubChatClient{resp: chatResponse(`{"intent":"x","actions":[],"needsClarification":false}`)}
	a := &Adapter{chat: stub, model: "gpt-4o"}

	out, err := a.GeneratePlan(context.Background(), llm.GeneratePlanInput{
		UserMessage:  "how many rows?",
		AllowedTools: []string{"sql.query"},
		Temperature:  0.3,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"intent":"x","actions":[],"needsClarification":false}`, string(out))
	require.NotNil(t, stub.lastParams.Temperature)
	assert.InDelta(t, 0.3, stub.lastParams.Temperature.Value, 0.001)
}

func TestGenerateAnswer_SendsSystemAndUserMessages(t *testing.T) {
	stub := &stubChatClient{resp: chatResponse(`{"content":"answer","citations":[]}`)}
	a := &Adapter{chat: stub, model: "gpt-4o"}

	out, err := a.GenerateAnswer(context.Background(), llm.GenerateAnswerInput{UserMessage: "summarize"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"answer","citations":[]}`, string(out))
	require.Len(t, stub.lastParams.Messages, 2)
}

func TestStreamAnswer_EmitsDecodedContentThenCloses(t *testing.T) {
	stub := &stubChatClient{resp: chatResponse(`{"content":"streamed","citations":[]}`)}
	a := &Adapter{chat: stub, model: "gpt-4o"}

	ch := make(chan string, 1)
	err := a.StreamAnswer(context.Background(), llm.GenerateAnswerInput{UserMessage: "x"}, ch)
	require.NoError(t, err)

	fragment, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, "streamed", fragment)

	_, ok = <-ch
	assert.False(t, ok, "channel should be closed after streaming completes")
}

func TestCompleteJSON_ErrorsOnEmptyChoices(t *testing.T) {
	stub := &stubChatClient{resp: &openai.ChatCompletion{}}
	a := &Adapter{chat: stub, model: "gpt-4o"}

	_, err := a.GeneratePlan(context.Background(), llm.GeneratePlanInput{UserMessage: "x"})
	assert.Error(t, err)
}

func TestCompleteJSON_PropagatesClientError(t *testing.T) {
	stub := &stubChatClient{err: assert.AnError}
	a := &Adapter{chat: stub, model: "gpt-4o"}

	_, err := a.GeneratePlan(context.Background(), llm.GeneratePlanInput{UserMessage: "x"})
	assert.Error(t, err)
}
