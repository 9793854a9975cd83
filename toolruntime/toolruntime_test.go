package toolruntime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedqa/orchestrator/connectors"
	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/toolruntime"
)

type stubSQL struct {
	out connectors.SqlQueryOutput
	err error
}

func (s stubSQL) Query(context.Context, connectors.SqlQueryInput) (connectors.SqlQueryOutput, error) {
	return s.out, s.err
}
func (stubSQL) TestConnection(context.Context) error { return nil }
func (stubSQL) Disconnect(context.Context) error     { return nil }

type stubRag struct{}

func (stubRag) Search(context.Context, connectors.RagSearchInput) (connectors.RagSearchOutput, error) {
	return connectors.RagSearchOutput{}, nil
}

func approvedSQL(sqlText string) model.PolicyDecision {
	return model.PolicyDecision{
		Action:        model.PlanAction{Tool: "sql.query", Args: map[string]any{"sql": sqlText}},
		Approved:      true,
		SanitizedArgs: map[string]any{"sql": sqlText, "effectiveLimit": 0},
	}
}

func TestExecuteActions_SuccessBuildsToolResult(t *testing.T) {
	sql := stubSQL{out: connectors.SqlQueryOutput{
		Columns:  []string{"count"},
		Rows:     []map[string]any{{"count": 2}},
		RowCount: 1,
	}}
	rt := toolruntime.New(sql, stubRag{})
	rc := model.RunContext{ThreadID: "th1", WorkspaceID: "ws1", MessageID: "m1"}

	results := rt.ExecuteActions(context.Background(), rc, []model.PolicyDecision{approvedSQL("SELECT COUNT(*) FROM workspaces")}, time.Second)

	require.Len(t, results, 1)
	assert.Equal(t, model.ToolCallSuccess, results[0].ToolCall.Status)
	require.NotNil(t, results[0].ToolResult)
	assert.NotEmpty(t, results[0].ToolResult.Checksum)
}

func TestExecuteActions_ConnectorErrorDoesNotAbortSequence(t *testing.T) {
	failing := stubSQL{err: errors.New("connection refused")}
	rt := toolruntime.New(failing, stubRag{})
	rc := model.RunContext{ThreadID: "th1", WorkspaceID: "ws1"}

	decisions := []model.PolicyDecision{approvedSQL("SELECT 1"), approvedSQL("SELECT 2")}
	results := rt.ExecuteActions(context.Background(), rc, decisions, time.Second)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, model.ToolCallError, r.ToolCall.Status)
		assert.Nil(t, r.ToolResult)
		assert.NotEmpty(t, r.ToolCall.ErrorMessage)
	}
}

func TestExecuteActions_UnknownToolProducesExecutionError(t *testing.T) {
	rt := toolruntime.New(stubSQL{}, stubRag{})
	rc := model.RunContext{}
	decisions := []model.PolicyDecision{{
		Action:        model.PlanAction{Tool: "fs.read"},
		Approved:      true,
		SanitizedArgs: map[string]any{},
	}}
	results := rt.ExecuteActions(context.Background(), rc, decisions, time.Second)
	require.Len(t, results, 1)
	assert.Equal(t, model.ToolCallError, results[0].ToolCall.Status)
	assert.Contains(t, results[0].ToolCall.ErrorMessage, "unknown tool")
}

func TestExecuteActions_SkipsUnapprovedDecisions(t *testing.T) {
	rt := toolruntime.New(stubSQL{}, stubRag{})
	decisions := []model.PolicyDecision{{Approved: false}}
	results := rt.ExecuteActions(context.Background(), model.RunContext{}, decisions, time.Second)
	assert.Empty(t, results)
}
