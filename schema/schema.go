// Package schema implements the Schema Validators (C1): the sole gatekeepers
// between untrusted JSON — LLM output, client-provided arguments — and the
// rest of the orchestration pipeline. Every entity in package model has a
// JSON Schema document compiled once at init and a Validate function with
// the shape validate(raw) -> (ok, parsed) | (err, issues).
package schema

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Numeric and string limits from the orchestration spec's Schema Validators
// section: all integer fields are signed 64-bit, rowCount and durationMs are
// non-negative, citation index is positive, userMessage is capped at 10,000
// characters, and tool names are non-empty and capped at 128 characters.
const (
	maxUserMessageLen = 10000
	maxToolNameLen    = 128
)

const planSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["intent", "actions", "needsClarification"],
  "properties": {
    "intent": {"type": "string", "minLength": 1},
    "needsClarification": {"type": "boolean"},
    "clarificationQuestion": {"type": "string"},
    "actions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["tool", "args"],
        "properties": {
          "tool": {"type": "string", "minLength": 1, "maxLength": ` + toStr(maxToolNameLen) + `},
          "args": {"type": "object"},
          "reason": {"type": "string"}
        }
      }
    },
    "constraints": {
      "type": "object",
      "properties": {
        "maxRows": {"type": "integer", "minimum": 0},
        "sourceIds": {"type": "array", "items": {"type": "string"}},
        "allowedTables": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

const policyDecisionSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["action", "approved", "errors"],
  "properties": {
    "action": {"type": "object"},
    "approved": {"type": "boolean"},
    "sanitizedArgs": {"type": "object"},
    "errors": {"type": "array", "items": {"type": "string"}}
  }
}`

const toolCallSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "messageId", "threadId", "workspaceId", "toolName", "status"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "messageId": {"type": "string"},
    "threadId": {"type": "string"},
    "workspaceId": {"type": "string"},
    "toolName": {"type": "string", "minLength": 1, "maxLength": ` + toStr(maxToolNameLen) + `},
    "toolArgs": {"type": "object"},
    "status": {"enum": ["pending", "running", "success", "error", "blocked"]},
    "durationMs": {"type": "integer", "minimum": 0},
    "errorMessage": {"type": "string"}
  }
}`

const toolResultSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "toolCallId", "threadId", "workspaceId", "data"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "toolCallId": {"type": "string", "minLength": 1},
    "threadId": {"type": "string"},
    "workspaceId": {"type": "string"},
    "rowCount": {"type": "integer", "minimum": 0},
    "checksum": {"type": "string"}
  }
}`

const verifierReportSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["approved", "checks"],
  "properties": {
    "approved": {"type": "boolean"},
    "checks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["claim", "supported"],
        "properties": {
          "claim": {"type": "string"},
          "supported": {"type": "boolean"},
          "evidenceId": {"type": "string"},
          "evidenceType": {"enum": ["tool_result", "chunk"]},
          "reason": {"type": "string"}
        }
      }
    },
    "summary": {"type": "string"},
    "suggestedActions": {"type": "array", "items": {"type": "string"}}
  }
}`

const answerSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["content", "citations"],
  "properties": {
    "content": {"type": "string", "minLength": 1},
    "citations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["index", "evidenceId", "evidenceType"],
        "properties": {
          "index": {"type": "integer", "minimum": 1},
          "evidenceId": {"type": "string", "minLength": 1},
          "evidenceType": {"enum": ["tool_result", "chunk"]},
          "label": {"type": "string"}
        }
      }
    },
    "followUps": {"type": "array", "items": {"type": "string"}}
  }
}`

const userMessageSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "string",
  "minLength": 1,
  "maxLength": ` + toStr(maxUserMessageLen) + `
}`

var (
	planSchema           *jsonschema.Schema
	policyDecisionSchema *jsonschema.Schema
	toolCallSchema       *jsonschema.Schema
	toolResultSchema     *jsonschema.Schema
	verifierReportSchema *jsonschema.Schema
	answerSchema         *jsonschema.Schema
	userMessageSchema    *jsonschema.Schema
)

func init() {
	planSchema = mustCompile("plan.json", planSchemaDoc)
	policyDecisionSchema = mustCompile("policy_decision.json", policyDecisionSchemaDoc)
	toolCallSchema = mustCompile("tool_call.json", toolCallSchemaDoc)
	toolResultSchema = mustCompile("tool_result.json", toolResultSchemaDoc)
	verifierReportSchema = mustCompile("verifier_report.json", verifierReportSchemaDoc)
	answerSchema = mustCompile("answer.json", answerSchemaDoc)
	userMessageSchema = mustCompile("user_message.json", userMessageSchemaDoc)
}

func mustCompile(resourceName, doc string) *jsonschema.Schema {
	decoded, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
	if err != nil {
		panic(fmt.Sprintf("schema: decode %s: %v", resourceName, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceName, decoded); err != nil {
		panic(fmt.Sprintf("schema: add resource %s: %v", resourceName, err))
	}
	s, err := c.Compile(resourceName)
	if err != nil {
		panic(fmt.Sprintf("schema: compile %s: %v", resourceName, err))
	}
	return s
}

func toStr(n int) string {
	return fmt.Sprintf("%d", n)
}

// flattenIssues walks a jsonschema.ValidationError tree and returns one
// human-readable message per leaf cause, so callers see every violation
// instead of only the first.
func flattenIssues(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	if len(ve.Causes) == 0 {
		return []string{formatLeaf(ve)}
	}
	var issues []string
	for _, cause := range ve.Causes {
		issues = append(issues, flattenIssues(cause)...)
	}
	return issues
}

func formatLeaf(ve *jsonschema.ValidationError) string {
	loc := ve.InstanceLocation
	if len(loc) == 0 {
		return ve.Error()
	}
	return fmt.Sprintf("%s: %s", strings.Join(loc, "/"), ve.Error())
}
