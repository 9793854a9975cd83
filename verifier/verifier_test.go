package verifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedqa/orchestrator/connectors"
	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/orcherrors"
	"github.com/groundedqa/orchestrator/verifier"
)

func successResult(tool string, rowCount int) model.ToolExecutionResult {
	return model.ToolExecutionResult{
		ToolCall:   model.ToolCall{ToolName: tool, Status: model.ToolCallSuccess},
		ToolResult: &model.ToolResult{ID: tool + "-result", RowCount: &rowCount},
	}
}

func errorResult(tool, message string) model.ToolExecutionResult {
	return model.ToolExecutionResult{
		ToolCall: model.ToolCall{ToolName: tool, Status: model.ToolCallError, ErrorMessage: message},
	}
}

func TestVerify_ApprovesWhenAtLeastOneSuccessWithData(t *testing.T) {
	report := verifier.Verify([]model.ToolExecutionResult{successResult("sql.query", 2)})
	assert.True(t, report.Approved)
	require.Len(t, report.Checks, 2)
	assert.True(t, report.Checks[0].Supported)
	assert.Equal(t, "sql.query-result", report.Checks[1].EvidenceID)
}

func TestVerify_RejectsWhenSuccessHasZeroRows(t *testing.T) {
	report := verifier.Verify([]model.ToolExecutionResult{successResult("sql.query", 0)})
	assert.False(t, report.Approved)
	assert.NotEmpty(t, report.Summary)
}

func TestVerify_ZeroRowCountWithNonEmptyDataIsSupported(t *testing.T) {
	zero := 0
	result := model.ToolExecutionResult{
		ToolCall: model.ToolCall{ToolName: "rag.search", Status: model.ToolCallSuccess},
		ToolResult: &model.ToolResult{
			ID:       "rag.search-result",
			RowCount: &zero,
			Data:     connectors.RagSearchOutput{Chunks: []connectors.RagChunk{{ChunkID: "c1"}}},
		},
	}
	report := verifier.Verify([]model.ToolExecutionResult{result})
	assert.True(t, report.Approved)
	require.Len(t, report.Checks, 2)
	assert.True(t, report.Checks[1].Supported)
}

func TestVerify_MixedResultsAddsSuggestedAction(t *testing.T) {
	report := verifier.Verify([]model.ToolExecutionResult{
		successResult("sql.query", 2),
		errorResult("rag.search", "timeout"),
	})
	assert.True(t, report.Approved)
	require.Len(t, report.SuggestedActions, 1)
}

func TestVerifyOrThrow_AllFailedIsFatal(t *testing.T) {
	_, err := verifier.VerifyOrThrow([]model.ToolExecutionResult{
		errorResult("sql.query", "boom"),
		errorResult("rag.search", "boom"),
	})
	require.Error(t, err)
	assert.True(t, orcherrors.Is(err, orcherrors.CodeVerificationError))
}

func TestVerifyOrThrow_MixedResultsIsNonFatal(t *testing.T) {
	_, err := verifier.VerifyOrThrow([]model.ToolExecutionResult{
		successResult("sql.query", 1),
		errorResult("rag.search", "boom"),
	})
	require.NoError(t, err)
}

func TestVerifyOrThrow_EmptyResultsIsNonFatal(t *testing.T) {
	report, err := verifier.VerifyOrThrow(nil)
	require.NoError(t, err)
	assert.False(t, report.Approved)
}
