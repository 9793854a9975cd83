// Package openai implements llm.Adapter on top of the Chat Completions API
// via github.com/openai/openai-go. Like the Anthropic adapter, it prompts
// for a bare JSON document and returns the response text unparsed; schema
// validation happens downstream in the Planner and Answer Generator.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/groundedqa/orchestrator/llm"
)

const defaultMaxTokens = 4096

// ChatClient captures the subset of the SDK the adapter uses.
type ChatClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Adapter implements llm.Adapter against an OpenAI-compatible Chat
// Completions endpoint.
type Adapter struct {
	chat  ChatClient
	model string
}

// Config configures an Adapter. BaseURL is optional and lets this adapter
// target OpenAI-compatible gateways.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New constructs an Adapter from cfg.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &Adapter{chat: &client.Chat.Completions, model: model}, nil
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
		return fmt.Errorf("openai: decode answer for streaming: %w", err)
	}
	ch <- parsed.Content
	return nil
}

func (a *Adapter) completeJSON(ctx context.Context, system, userMessage string, temperature float64) ([]byte, error) {
	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(userMessage),
		},
		MaxCompletionTokens: openai.Int(defaultMaxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if temperature > 0 {
		params.Temperature = openai.Float(temperature)
	}

	resp, err := a.chat.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: chat.completions.new: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: response contained no choices")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, errors.New("openai: response contained empty content")
	}
	return []byte(content), nil
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
		return "", fmt.Errorf("openai: marshal tool results: %w", err)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("openai: marshal verifier report: %w", err)
	}
	return fmt.Sprintf(
		"%s\nGround your answer ONLY in the following tool results and verifier report; "+
			"cite every factual statement with a [index] whose Citation appears in the output. "+
			"Tool results: %s\nVerifier report: %s\n"+
			"Respond with ONLY a JSON object matching the Answer schema (content, citations[]).",
		systemContext, resultsJSON, reportJSON), nil
}
