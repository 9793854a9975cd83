// Package model defines the immutable data entities that flow through the
// evidence-grounded orchestration pipeline: Plan, PolicyDecision, ToolCall,
// ToolResult, VerifierReport, and Answer. Every entity is produced exactly
// once by the pipeline stage that owns it; downstream stages consume it by
// reference and never mutate it.
package model

import (
	"time"
)

type (
	// Plan is the planner's structured output: a summary of intent plus the
	// ordered tool actions required to fulfil it. A Plan either carries at
	// least one action or asks the user for clarification; it never does
	// both.
	Plan struct {
		Intent                string           `json:"intent"`
		Actions               []PlanAction     `json:"actions"`
		Constraints           *PlanConstraints `json:"constraints,omitempty"`
		NeedsClarification    bool             `json:"needsClarification"`
		ClarificationQuestion string           `json:"clarificationQuestion,omitempty"`
	}

	// PlanConstraints narrows how a Plan's actions may be executed. All
	// fields are optional; a zero value imposes no additional constraint
	// beyond the Policy Engine's own defaults.
	PlanConstraints struct {
		MaxRows        *int     `json:"maxRows,omitempty"`
		SourceIDs      []string `json:"sourceIds,omitempty"`
		AllowedTables  []string `json:"allowedTables,omitempty"`
	}

	// PlanAction is a single planned tool invocation.
	PlanAction struct {
		Tool   string         `json:"tool"`
		Args   map[string]any `json:"args"`
		Reason string         `json:"reason,omitempty"`
	}

	// PolicyDecision is the approval verdict for one PlanAction, plus the
	// sanitized arguments the Tool Runtime must dispatch. SanitizedArgs is
	// present if and only if Approved is true.
	PolicyDecision struct {
		Action        PlanAction     `json:"action"`
		Approved      bool           `json:"approved"`
		SanitizedArgs map[string]any `json:"sanitizedArgs,omitempty"`
		Errors        []string       `json:"errors,omitempty"`
	}

	// ToolCallStatus enumerates the lifecycle states of a ToolCall audit
	// record.
	ToolCallStatus string

	// ToolCall is the audit record created for every dispatched (or
	// rejected) tool action. The Tool Runtime creates it as running at
	// dispatch, then moves it to success or error at completion;
	// blocked records are never dispatched.
	ToolCall struct {
		ID           string         `json:"id"`
		MessageID    string         `json:"messageId"`
		ThreadID     string         `json:"threadId"`
		WorkspaceID  string         `json:"workspaceId"`
		ToolName     string         `json:"toolName"`
		ToolArgs     map[string]any `json:"toolArgs"`
		Status       ToolCallStatus `json:"status"`
		StartedAt    time.Time      `json:"startedAt"`
		FinishedAt   time.Time      `json:"finishedAt,omitempty"`
		DurationMs   int64          `json:"durationMs,omitempty"`
		ErrorMessage string         `json:"errorMessage,omitempty"`
	}

	// ToolResult is the structured output of a successful ToolCall. It is
	// created only when the corresponding ToolCall.Status is Success.
	ToolResult struct {
		ID           string `json:"id"`
		ToolCallID   string `json:"toolCallId"`
		ThreadID     string `json:"threadId"`
		WorkspaceID  string `json:"workspaceId"`
		Data         any    `json:"data"`
		RowCount     *int   `json:"rowCount,omitempty"`
		Checksum     string `json:"checksum,omitempty"`
		PreviewRows  []any  `json:"previewRows,omitempty"`
	}

	// ToolExecutionResult pairs a ToolCall audit record with its ToolResult,
	// if any. ToolResult is nil when the call ended in error.
	ToolExecutionResult struct {
		ToolCall   ToolCall    `json:"toolCall"`
		ToolResult *ToolResult `json:"toolResult,omitempty"`
	}

	// EvidenceType enumerates the two admissible bases for a factual claim.
	EvidenceType string

	// EvidenceCheck is one structural claim the Verifier evaluated, along
	// with whether it found supporting evidence.
	EvidenceCheck struct {
		Claim        string       `json:"claim"`
		Supported    bool         `json:"supported"`
		EvidenceID   string       `json:"evidenceId,omitempty"`
		EvidenceType EvidenceType `json:"evidenceType,omitempty"`
		Reason       string       `json:"reason,omitempty"`
	}

	// VerifierReport is the Verifier's approval decision plus the checks
	// that justify it.
	VerifierReport struct {
		Approved         bool            `json:"approved"`
		Checks           []EvidenceCheck `json:"checks"`
		Summary          string          `json:"summary,omitempty"`
		SuggestedActions []string        `json:"suggestedActions,omitempty"`
	}

	// Citation is a typed, indexed reference from Answer content to one
	// evidence item (a ToolResult or a RAG chunk).
	Citation struct {
		Index        int          `json:"index"`
		EvidenceID   string       `json:"evidenceId"`
		EvidenceType EvidenceType `json:"evidenceType"`
		Label        string       `json:"label,omitempty"`
	}

	// Answer is the Answer Generator's validated output: the final
	// user-facing content plus the citations that ground every factual
	// claim it makes.
	Answer struct {
		Content   string     `json:"content"`
		Citations []Citation `json:"citations"`
		FollowUps []string   `json:"followUps,omitempty"`
	}

	// RunContext is the read-only identity of one orchestration request.
	// It is created once per request and never mutated during the run.
	RunContext struct {
		WorkspaceID    string   `json:"workspaceId"`
		ThreadID       string   `json:"threadId"`
		MessageID      string   `json:"messageId"`
		UserMessage    string   `json:"userMessage"`
		AllowedSources []string `json:"allowedSources,omitempty"`
	}

	// MessageRole distinguishes a thread message's author.
	MessageRole string

	// EvidenceMessage is the audit record an EvidenceStore persists for
	// each user turn and generated answer in a thread.
	EvidenceMessage struct {
		ID        string      `json:"id"`
		ThreadID  string      `json:"threadId"`
		Role      MessageRole `json:"role"`
		Content   string      `json:"content"`
		CreatedAt time.Time   `json:"createdAt"`
	}
)

const (
	// MessageRoleUser marks a message authored by the end user.
	MessageRoleUser MessageRole = "user"
	// MessageRoleAssistant marks a message produced by the Answer Generator.
	MessageRoleAssistant MessageRole = "assistant"
)

const (
	// ToolCallPending marks a ToolCall created but not yet dispatched.
	ToolCallPending ToolCallStatus = "pending"
	// ToolCallRunning marks a ToolCall in flight.
	ToolCallRunning ToolCallStatus = "running"
	// ToolCallSuccess marks a ToolCall that completed with a ToolResult.
	ToolCallSuccess ToolCallStatus = "success"
	// ToolCallError marks a ToolCall that failed or timed out.
	ToolCallError ToolCallStatus = "error"
	// ToolCallBlocked marks a ToolCall the Policy Engine rejected. Blocked
	// calls are never dispatched to a connector.
	ToolCallBlocked ToolCallStatus = "blocked"
)

const (
	// EvidenceToolResult identifies evidence backed by a ToolResult.
	EvidenceToolResult EvidenceType = "tool_result"
	// EvidenceChunk identifies evidence backed by a RAG chunk.
	EvidenceChunk EvidenceType = "chunk"
)

// NeedsClarificationInvariant reports whether p satisfies the spec
// invariant: a Plan that needs clarification has no actions and a non-empty
// clarificationQuestion; any other Plan has at least one action.
func (p Plan) NeedsClarificationInvariant() bool {
	if p.NeedsClarification {
		return len(p.Actions) == 0 && p.ClarificationQuestion != ""
	}
	return len(p.Actions) >= 1
}

// Executable reports whether at least one decision in decisions was
// approved, the Coordinator's threshold for treating a Plan as runnable.
func Executable(decisions []PolicyDecision) bool {
	for _, d := range decisions {
		if d.Approved {
			return true
		}
	}
	return false
}
