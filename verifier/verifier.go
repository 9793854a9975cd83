// Package verifier implements the Verifier (C7): a pure function from a
// run's ToolExecutionResults to a VerifierReport. Grounding is structural —
// a count of usable evidence items — never linguistic claim extraction
// against answer text; that is a separate problem this pipeline does not
// attempt.
package verifier

import (
	"fmt"

	"github.com/groundedqa/orchestrator/connectors"
	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/orcherrors"
)

// Verify derives a VerifierReport from results. It never mutates results
// and never performs I/O.
func Verify(results []model.ToolExecutionResult) model.VerifierReport {
	checks := make([]model.EvidenceCheck, 0, len(results)+1)

	coverageSupported := false
	for _, r := range results {
		if r.ToolCall.Status == model.ToolCallSuccess && r.ToolResult != nil {
			coverageSupported = true
			break
		}
	}
	checks = append(checks, model.EvidenceCheck{
		Claim:     "at least one tool execution succeeded",
		Supported: coverageSupported,
	})

	for _, r := range results {
		if r.ToolCall.Status == model.ToolCallSuccess && r.ToolResult != nil {
			supported := resultHasData(r.ToolResult)
			checks = append(checks, model.EvidenceCheck{
				Claim:        fmt.Sprintf("tool %q returned data", r.ToolCall.ToolName),
				Supported:    supported,
				EvidenceID:   r.ToolResult.ID,
				EvidenceType: model.EvidenceToolResult,
			})
		}
	}

	var suggestedActions []string
	for _, r := range results {
		if r.ToolCall.Status == model.ToolCallError {
			checks = append(checks, model.EvidenceCheck{
				Claim:     fmt.Sprintf("tool %q executed successfully", r.ToolCall.ToolName),
				Supported: false,
				Reason:    r.ToolCall.ErrorMessage,
			})
			suggestedActions = append(suggestedActions, fmt.Sprintf("retry or replan around the %q failure", r.ToolCall.ToolName))
		}
	}

	approved := coverageSupported
	if approved {
		for _, c := range checks {
			if c.EvidenceType != "" && !c.Supported {
				approved = false
				break
			}
		}
	}

	report := model.VerifierReport{
		Approved:         approved,
		Checks:           checks,
		SuggestedActions: suggestedActions,
	}
	if !approved {
		report.Summary = "one or more tool results lacked grounding evidence"
	}
	return report
}

// resultHasData applies the spec's non-fatal-zero-result rule: supported iff
// rowCount > 0 OR the data itself is non-empty. A RowCount of exactly zero
// still falls through to the data check rather than short-circuit, so a
// result reporting zero rows whose payload is non-empty is supported. A RAG
// payload counts as non-empty only when it holds at least one chunk.
func resultHasData(tr *model.ToolResult) bool {
	if tr.RowCount != nil && *tr.RowCount > 0 {
		return true
	}
	return dataNonEmpty(tr.Data)
}

func dataNonEmpty(data any) bool {
	switch v := data.(type) {
	case connectors.SqlQueryOutput:
		return len(v.Rows) > 0
	case connectors.RagSearchOutput:
		return len(v.Chunks) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return data != nil
	}
}

// VerifyOrThrow calls Verify and additionally raises VerificationError iff
// every attempted tool failed and at least one was attempted. A rejection
// with mixed or zero successes is non-fatal; the Answer Generator
// acknowledges the absence of data instead.
func VerifyOrThrow(results []model.ToolExecutionResult) (model.VerifierReport, error) {
	report := Verify(results)
	if len(results) == 0 {
		return report, nil
	}
	anyFailed := false
	allFailed := true
	for _, r := range results {
		if r.ToolCall.Status == model.ToolCallError {
			anyFailed = true
		} else {
			allFailed = false
		}
	}
	if anyFailed && allFailed {
		return report, orcherrors.New(orcherrors.CodeVerificationError,
			"every attempted tool execution failed",
			map[string]any{"attempted": len(results)}, nil)
	}
	return report, nil
}
