package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/groundedqa/orchestrator/model"
)

// Result is the outcome of validating one raw JSON document against an
// entity's schema: either OK is true and Value holds the decoded entity, or
// OK is false and Issues lists every schema violation found.
type Result[T any] struct {
	OK     bool
	Value  T
	Issues []string
}

func validate[T any](s *jsonschema.Schema, raw []byte) Result[T] {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Result[T]{Issues: []string{fmt.Sprintf("invalid json: %v", err)}}
	}
	if err := s.Validate(generic); err != nil {
		return Result[T]{Issues: flattenIssues(err)}
	}
	var target T
	if err := json.Unmarshal(raw, &target); err != nil {
		return Result[T]{Issues: []string{fmt.Sprintf("decode into target: %v", err)}}
	}
	return Result[T]{OK: true, Value: target}
}

// ValidatePlan validates a planner-produced Plan document and enforces the
// needsClarification/actions invariant the JSON Schema cannot express.
func ValidatePlan(raw []byte) Result[model.Plan] {
	r := validate[model.Plan](planSchema, raw)
	if !r.OK {
		return r
	}
	if !r.Value.NeedsClarificationInvariant() {
		return Result[model.Plan]{Issues: []string{
			"needsClarification must hold iff actions is empty and clarificationQuestion is set",
		}}
	}
	return r
}

// ValidatePolicyDecision validates a single PolicyDecision document and
// enforces that sanitizedArgs is present if and only if approved is true.
func ValidatePolicyDecision(raw []byte) Result[model.PolicyDecision] {
	r := validate[model.PolicyDecision](policyDecisionSchema, raw)
	if !r.OK {
		return r
	}
	if r.Value.Approved && r.Value.SanitizedArgs == nil {
		return Result[model.PolicyDecision]{Issues: []string{"approved decisions must carry sanitizedArgs"}}
	}
	if !r.Value.Approved && r.Value.SanitizedArgs != nil {
		return Result[model.PolicyDecision]{Issues: []string{"rejected decisions must not carry sanitizedArgs"}}
	}
	return r
}

// ValidateToolCall validates a ToolCall audit record.
func ValidateToolCall(raw []byte) Result[model.ToolCall] {
	return validate[model.ToolCall](toolCallSchema, raw)
}

// ValidateToolResult validates a ToolResult document.
func ValidateToolResult(raw []byte) Result[model.ToolResult] {
	return validate[model.ToolResult](toolResultSchema, raw)
}

// ValidateVerifierReport validates a VerifierReport document.
func ValidateVerifierReport(raw []byte) Result[model.VerifierReport] {
	return validate[model.VerifierReport](verifierReportSchema, raw)
}

// ValidateAnswer validates an Answer document. Citation indices must be
// unique and at least 1; gaps in the index sequence are not rejected.
func ValidateAnswer(raw []byte) Result[model.Answer] {
	r := validate[model.Answer](answerSchema, raw)
	if !r.OK {
		return r
	}
	seen := make(map[int]bool, len(r.Value.Citations))
	for _, c := range r.Value.Citations {
		if seen[c.Index] {
			return Result[model.Answer]{Issues: []string{fmt.Sprintf("duplicate citation index %d", c.Index)}}
		}
		seen[c.Index] = true
	}
	return r
}

// ValidateUserMessage validates a raw user message string against the
// length bound the pipeline enforces at its ingress.
func ValidateUserMessage(raw []byte) Result[string] {
	return validate[string](userMessageSchema, raw)
}
