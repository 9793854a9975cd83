// Package anthropic implements llm.Adapter on top of Anthropic's Messages
// API via github.com/anthropics/anthropic-sdk-go. It prompts the model to
// emit nothing but a JSON document matching the Plan or Answer schema and
// hands the raw text back to the caller unparsed, since schema validation
// belongs to the Planner/Answer Generator, not the adapter.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/groundedqa/orchestrator/llm"
)

const defaultMaxTokens = 4096

// MessagesClient captures the subset of the SDK client the adapter uses, so
// tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Adapter implements llm.Adapter against Anthropic Claude models.
type Adapter struct {
	msg       MessagesClient
	model     string
	maxTokens int
}

// New constructs an Adapter using apiKey and model (e.g.
// string(sdk.ModelClaudeSonnet4_5)).
func New(apiKey, model string) (*Adapter, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	if model == "" {
		return nil, errors.New("anthropic: model is required")
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &Adapter{msg: &client.Messages, model: model, maxTokens: defaultMaxTokens}, nil
}

func (a *Adapter) GeneratePlan(ctx context.Context, in llm.GeneratePlanInput) ([]byte, error) {
	system := planSystemPrompt(in.SystemContext, in.AllowedTools)
	return a.completeJSON(ctx, system, in.UserMessage, in.Temperature)
}

func (a *Adapter) GenerateAnswer(ctx context.Context, in llm.GenerateAnswerInput) ([]byte, error) {
	system, err := answerSystemPrompt(in.SystemContext, in.ToolResults, in.VerifierReport)
	if err != nil {
		return nil, err
	}
	return a.completeJSON(ctx, system, in.UserMessage, 0.1)
}

func (a *Adapter) StreamAnswer(ctx context.Context, in llm.GenerateAnswerInput, ch chan<- string) error {
	defer close(ch)
	raw, err := a.GenerateAnswer(ctx, in)
	if err != nil {
		return err
	}
	var parsed struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("anthropic: decode answer for streaming: %w", err)
	}
	ch <- parsed.Content
	return nil
}

func (a *Adapter) completeJSON(ctx context.Context, system, userMessage string, temperature float64) ([]byte, error) {
	params := sdk.MessageNewParams{
		MaxTokens: int64(a.maxTokens),
		Model:     sdk.Model(a.model),
		System:    []sdk.TextBlockParam{{Text: system}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userMessage)),
		},
	}
	if temperature > 0 {
		params.Temperature = sdk.Float(temperature)
	}

	resp, err := a.msg.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: messages.new: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return []byte(block.Text), nil
		}
	}
	return nil, errors.New("anthropic: response contained no text block")
}

func planSystemPrompt(systemContext string, allowedTools []string) string {
	return fmt.Sprintf(
		"%s\nRespond with ONLY a JSON object matching the Plan schema (intent, actions[], needsClarification). "+
			"Allowed tools: %v. Do not include any prose outside the JSON.",
		systemContext, allowedTools)
}

func answerSystemPrompt(systemContext string, toolResults any, report any) (string, error) {
	resultsJSON, err := json.Marshal(toolResults)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal tool results: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal verifier report: %w", err)
	}
	return fmt.Sprintf(
		"%s\nGround your answer ONLY in the following tool results and verifier report; "+
			"cite every factual statement with a [index] whose Citation appears in the output. "+
			"Tool results: %s\nVerifier report: %s\n"+
			"Respond with ONLY a JSON object matching the Answer schema (content, citations[]).",
		systemContext, resultsJSON, reportJSON), nil
}
