// Package answer implements the Answer Generator (C8): invokes the LLM
// adapter to produce a final, cited Answer grounded exclusively in a run's
// ToolResults and VerifierReport, then enforces the citation-closure
// invariant the adapter is contractually forbidden from violating.
package answer

import (
	"context"
	"fmt"

	"github.com/groundedqa/orchestrator/connectors"
	"github.com/groundedqa/orchestrator/llm"
	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/orcherrors"
	"github.com/groundedqa/orchestrator/schema"
)

// Generator invokes an llm.Adapter and validates its output against the
// Answer schema plus the citation-closure invariant.
type Generator struct {
	adapter llm.Adapter
}

// New constructs a Generator.
func New(adapter llm.Adapter) *Generator {
	return &Generator{adapter: adapter}
}

// Generate produces a validated Answer for userMessage given toolResults
// and report. If toolResults is empty, an empty citation set is permitted
// and content must express absence of data; the adapter is still invoked
// so phrasing stays natural-language rather than a hardcoded string.
func (g *Generator) Generate(ctx context.Context, userMessage string, toolResults []model.ToolResult, report model.VerifierReport, systemContext string) (model.Answer, error) {
	raw, err := g.adapter.GenerateAnswer(ctx, llm.GenerateAnswerInput{
		UserMessage:    userMessage,
		ToolResults:    toolResults,
		VerifierReport: report,
		SystemContext:  systemContext,
	})
	if err != nil {
		return model.Answer{}, orcherrors.New(orcherrors.CodeToolExecutionError,
			"answer generation failed", map[string]any{"cause": err.Error()}, err)
	}

	result := schema.ValidateAnswer(raw)
	if !result.OK {
		return model.Answer{}, orcherrors.New(orcherrors.CodePlannerError,
			"answer failed schema validation", map[string]any{"issues": result.Issues}, nil)
	}

	known := make(map[string]bool, len(toolResults))
	for _, tr := range toolResults {
		known[tr.ID] = true
		if rag, ok := tr.Data.(connectors.RagSearchOutput); ok {
			for _, chunk := range rag.Chunks {
				known[chunk.ChunkID] = true
			}
		}
	}
	for _, c := range result.Value.Citations {
		if !known[c.EvidenceID] {
			return model.Answer{}, orcherrors.New(orcherrors.CodePlannerError,
				fmt.Sprintf("answer cites unknown evidence id %q", c.EvidenceID),
				map[string]any{"evidenceId": c.EvidenceID}, nil)
		}
	}

	return result.Value, nil
}

// StreamFragments relays the adapter's streamed fragments on ch, returning
// once the underlying stream ends. Callers still call Generate separately
// (or accumulate these fragments themselves) to obtain the final validated
// Answer with citations.
func (g *Generator) StreamFragments(ctx context.Context, userMessage string, toolResults []model.ToolResult, report model.VerifierReport, systemContext string, ch chan<- string) error {
	return g.adapter.StreamAnswer(ctx, llm.GenerateAnswerInput{
		UserMessage:    userMessage,
		ToolResults:    toolResults,
		VerifierReport: report,
		SystemContext:  systemContext,
	}, ch)
}
