// Package toolruntime implements the Tool Runtime (C6): dispatches approved
// actions to a registered connector, enforces a per-call timeout, and
// builds the ToolCall/ToolResult audit records the rest of the pipeline
// consumes. One failed action never aborts the sequence; subsequent actions
// in the plan still run.
package toolruntime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/groundedqa/orchestrator/connectors"
	"github.com/groundedqa/orchestrator/model"
)

// Handler dispatches one approved action's sanitized args and returns the
// data it produced plus an optional row count, for checksum/preview
// bookkeeping. Handlers never need to populate ToolCall/ToolResult
// themselves; the Runtime does that uniformly.
type Handler func(ctx context.Context, sanitizedArgs map[string]any) (data any, rows []any, rowCount *int, err error)

// Runtime holds the open dispatch table from tool name to Handler.
type Runtime struct {
	handlers map[string]Handler
}

// New constructs a Runtime with the two built-in connectors registered:
// sql.query and rag.search. Additional tools may be registered via
// Register.
func New(sql connectors.SqlConnector, rag connectors.RagConnector) *Runtime {
	r := &Runtime{handlers: make(map[string]Handler)}
	if sql != nil {
		r.Register("sql.query", sqlHandler(sql))
	}
	if rag != nil {
		r.Register("rag.search", ragHandler(rag))
	}
	return r
}

// Register adds or overwrites the handler for tool name.
func (r *Runtime) Register(tool string, h Handler) {
	r.handlers[tool] = h
}

// ExecuteActions runs every approved decision's action strictly in order
// (ordering-dependent citations require it) and returns one
// ToolExecutionResult per decision, never raising out of the Runtime.
func (r *Runtime) ExecuteActions(ctx context.Context, rc model.RunContext, decisions []model.PolicyDecision, perToolTimeout time.Duration) []model.ToolExecutionResult {
	results := make([]model.ToolExecutionResult, 0, len(decisions))
	for _, d := range decisions {
		if !d.Approved {
			continue
		}
		results = append(results, r.executeOne(ctx, rc, d, perToolTimeout))
	}
	return results
}

func (r *Runtime) executeOne(ctx context.Context, rc model.RunContext, decision model.PolicyDecision, perToolTimeout time.Duration) model.ToolExecutionResult {
	callID := uuid.NewString()
	startedAt := time.Now().UTC()

	call := model.ToolCall{
		ID:          callID,
		MessageID:   rc.MessageID,
		ThreadID:    rc.ThreadID,
		WorkspaceID: rc.WorkspaceID,
		ToolName:    decision.Action.Tool,
		ToolArgs:    decision.SanitizedArgs,
		Status:      model.ToolCallRunning,
		StartedAt:   startedAt,
	}

	handler, ok := r.handlers[decision.Action.Tool]
	if !ok {
		return finishWithError(call, startedAt, fmt.Sprintf("unknown tool %q", decision.Action.Tool))
	}

	callCtx, cancel := context.WithTimeout(ctx, perToolTimeout)
	defer cancel()

	data, rows, rowCount, err := handler(callCtx, decision.SanitizedArgs)
	if err != nil {
		return finishWithError(call, startedAt, err.Error())
	}

	finishedAt := time.Now().UTC()
	call.Status = model.ToolCallSuccess
	call.FinishedAt = finishedAt
	call.DurationMs = finishedAt.Sub(startedAt).Milliseconds()

	checksum, err := model.Checksum(data)
	if err != nil {
		checksum = ""
	}

	preview := rows
	if len(preview) > 10 {
		preview = preview[:10]
	}

	result := &model.ToolResult{
		ID:          uuid.NewString(),
		ToolCallID:  callID,
		ThreadID:    rc.ThreadID,
		WorkspaceID: rc.WorkspaceID,
		Data:        data,
		RowCount:    rowCount,
		Checksum:    checksum,
		PreviewRows: preview,
	}

	return model.ToolExecutionResult{ToolCall: call, ToolResult: result}
}

func finishWithError(call model.ToolCall, startedAt time.Time, message string) model.ToolExecutionResult {
	finishedAt := time.Now().UTC()
	call.Status = model.ToolCallError
	call.FinishedAt = finishedAt
	call.DurationMs = finishedAt.Sub(startedAt).Milliseconds()
	call.ErrorMessage = message
	return model.ToolExecutionResult{ToolCall: call}
}

func sqlHandler(sql connectors.SqlConnector) Handler {
	return func(ctx context.Context, args map[string]any) (any, []any, *int, error) {
		sqlText, _ := args["sql"].(string)
		sourceID, _ := args["sourceId"].(string)
		maxRows := 0
		if v, ok := args["effectiveLimit"].(int); ok {
			maxRows = v
		}
		out, err := sql.Query(ctx, connectors.SqlQueryInput{SQL: sqlText, SourceID: sourceID, MaxRows: maxRows})
		if err != nil {
			return nil, nil, nil, err
		}
		if maxRows > 0 && len(out.Rows) > maxRows {
			out.Rows = out.Rows[:maxRows]
			out.RowCount = maxRows
			out.Truncated = true
		}
		rows := make([]any, len(out.Rows))
		for i, row := range out.Rows {
			rows[i] = row
		}
		rowCount := out.RowCount
		return out, rows, &rowCount, nil
	}
}

func ragHandler(rag connectors.RagConnector) Handler {
	return func(ctx context.Context, args map[string]any) (any, []any, *int, error) {
		query, _ := args["query"].(string)
		topK := 0
		if v, ok := args["topK"].(float64); ok {
			topK = int(v)
		} else if v, ok := args["topK"].(int); ok {
			topK = v
		}
		var sourceIDs []string
		switch raw := args["sourceIds"].(type) {
		case []string:
			sourceIDs = raw
		case []interface{}:
			for _, v := range raw {
				if s, ok := v.(string); ok {
					sourceIDs = append(sourceIDs, s)
				}
			}
		}
		out, err := rag.Search(ctx, connectors.RagSearchInput{Query: query, SourceIDs: sourceIDs, TopK: topK})
		if err != nil {
			return nil, nil, nil, err
		}
		rows := make([]any, len(out.Chunks))
		for i, c := range out.Chunks {
			rows[i] = c
		}
		rowCount := len(out.Chunks)
		return out, rows, &rowCount, nil
	}
}
