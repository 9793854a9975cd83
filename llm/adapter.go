// Package llm defines the Adapter contract the Planner and Answer Generator
// invoke. Adapters are opaque to the rest of the pipeline: the core never
// inspects a provider's wire format, only the structured Plan/Answer JSON
// each method returns.
package llm

import (
	"context"

	"github.com/groundedqa/orchestrator/model"
)

// GeneratePlanInput groups the arguments passed to Adapter.GeneratePlan.
type GeneratePlanInput struct {
	UserMessage   string
	SystemContext string
	AllowedTools  []string
	Temperature   float64
}

// GenerateAnswerInput groups the arguments passed to Adapter.GenerateAnswer
// and Adapter.StreamAnswer.
type GenerateAnswerInput struct {
	UserMessage    string
	ToolResults    []model.ToolResult
	VerifierReport model.VerifierReport
	SystemContext  string
}

// Adapter is the contract every LLM provider integration implements. The
// core assumes adapters are safe to invoke concurrently across independent
// requests; an individual adapter instance is shared process-wide.
type Adapter interface {
	// GeneratePlan asks the model to produce a Plan for userMessage. The
	// returned bytes are raw JSON; the caller routes them through
	// schema.ValidatePlan before trusting them.
	GeneratePlan(ctx context.Context, in GeneratePlanInput) ([]byte, error)

	// GenerateAnswer asks the model to produce a final Answer grounded
	// exclusively in in.ToolResults and in.VerifierReport. The returned
	// bytes are raw JSON; the caller routes them through
	// schema.ValidateAnswer before trusting them.
	GenerateAnswer(ctx context.Context, in GenerateAnswerInput) ([]byte, error)

	// StreamAnswer yields answer content as a lazy finite sequence of
	// string fragments over ch, closing ch when the stream ends (error or
	// not). The caller is still responsible for calling GenerateAnswer (or
	// assembling the streamed fragments) to obtain a final validated
	// Answer with citations.
	StreamAnswer(ctx context.Context, in GenerateAnswerInput, ch chan<- string) error
}
