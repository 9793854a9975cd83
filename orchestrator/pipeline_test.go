package orchestrator_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedqa/orchestrator/answer"
	"github.com/groundedqa/orchestrator/connectors"
	"github.com/groundedqa/orchestrator/llm"
	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/orchestrator"
	"github.com/groundedqa/orchestrator/planner"
	"github.com/groundedqa/orchestrator/policy"
	"github.com/groundedqa/orchestrator/sqlgate"
	"github.com/groundedqa/orchestrator/telemetry"
	"github.com/groundedqa/orchestrator/toolruntime"
)

// recordingSink collects every StreamEvent emitted during a run in order,
// the way a test harness inspects the orchestration pipeline's ordering
// guarantee without standing up a real transport.
type recordingSink struct {
	events []model.StreamEvent
}

func (s *recordingSink) Send(_ context.Context, ev model.StreamEvent) error {
	s.events = append(s.events, ev)
	return nil
}
func (s *recordingSink) Close(context.Context) error { return nil }

func (s *recordingSink) tags() []model.EventTag {
	tags := make([]model.EventTag, len(s.events))
	for i, e := range s.events {
		tags[i] = e.Tag
	}
	return tags
}

// stubAdapter returns canned JSON for GeneratePlan/GenerateAnswer; tests
// configure it per scenario. When answerFn is set it takes priority over
// answerJSON, letting a test derive its answer from the live ToolResults
// (and their runtime-assigned IDs) the Coordinator passes in.
type stubAdapter struct {
	planJSON   []byte
	answerJSON []byte
	answerFn   func(llm.GenerateAnswerInput) []byte
}

func (s stubAdapter) GeneratePlan(context.Context, llm.GeneratePlanInput) ([]byte, error) {
	return s.planJSON, nil
}
func (s stubAdapter) GenerateAnswer(_ context.Context, in llm.GenerateAnswerInput) ([]byte, error) {
	if s.answerFn != nil {
		return s.answerFn(in), nil
	}
	return s.answerJSON, nil
}
func (s stubAdapter) StreamAnswer(_ context.Context, _ llm.GenerateAnswerInput, ch chan<- string) error {
	close(ch)
	return nil
}

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

func newCoordinator(sql connectors.SqlConnector, adapter llm.Adapter) *orchestrator.Coordinator {
	p := planner.New(adapter, planner.Config{AllowedTools: []string{"sql.query", "rag.search"}})
	pol := policy.New(policy.Config{
		MaxToolCallsPerPlan: 10,
		AllowedTools:        []string{"sql.query", "rag.search"},
		SQL:                 sqlgate.PolicyConfig{MaxRows: 100},
	}, nil)
	rt := toolruntime.New(sql, stubRag{})
	ag := answer.New(adapter)
	return orchestrator.New(p, pol, rt, ag, nil, telemetry.NewNoop(), orchestrator.Config{ToolTimeout: time.Second})
}

func TestRun_HappyPathSingleSQL(t *testing.T) {
	adapter := stubAdapter{
		planJSON: []byte(`{
			"intent": "count workspaces",
			"needsClarification": false,
			"actions": [{"tool": "sql.query", "args": {"sql": "SELECT COUNT(*) FROM workspaces"}}]
		}`),
	}
	sql := stubSQL{out: connectors.SqlQueryOutput{Columns: []string{"count"}, Rows: []map[string]any{{"count": 2}}, RowCount: 1}}

	coord := newCoordinator(sql, answerAdapterAfterTool(adapter))
	sink := &recordingSink{}

	err := coord.Run(context.Background(), model.RunContext{ThreadID: "th1", MessageID: "m1", UserMessage: "How many workspaces are there?"}, sink)
	require.NoError(t, err)

	tags := sink.tags()
	assert.Equal(t, model.EventDone, tags[len(tags)-1])
	assertOrderedSubsequence(t, tags, []model.EventTag{
		model.EventMeta, model.EventStatus, model.EventPlan, model.EventStatus,
		model.EventToolCallStart, model.EventToolCallEnd,
		model.EventStatus, model.EventVerification, model.EventStatus, model.EventAnswer, model.EventDone,
	})

	var ans model.Answer
	for _, ev := range sink.events {
		if ev.Tag == model.EventAnswer {
			ans = ev.Payload.(model.AnswerPayload).Answer
		}
	}
	require.Len(t, ans.Citations, 1)
	assert.Equal(t, model.EvidenceToolResult, ans.Citations[0].EvidenceType)
}

func TestRun_BlockedStatementWithNoOtherActionTerminatesWithError(t *testing.T) {
	adapter := stubAdapter{
		planJSON: []byte(`{
			"intent": "mutate",
			"needsClarification": false,
			"actions": [{"tool": "sql.query", "args": {"sql": "UPDATE users SET x = 1"}}]
		}`),
	}
	coord := newCoordinator(stubSQL{}, adapter)
	sink := &recordingSink{}

	err := coord.Run(context.Background(), model.RunContext{ThreadID: "th1", UserMessage: "do it"}, sink)
	require.NoError(t, err)

	tags := sink.tags()
	assert.Contains(t, tags, model.EventError)
	assert.Equal(t, model.EventDone, tags[len(tags)-1])
}

func TestRun_ClarificationShortCircuits(t *testing.T) {
	adapter := stubAdapter{
		planJSON: []byte(`{
			"intent": "ambiguous",
			"needsClarification": true,
			"clarificationQuestion": "which workspace do you mean?",
			"actions": []
		}`),
	}
	coord := newCoordinator(stubSQL{}, adapter)
	sink := &recordingSink{}

	err := coord.Run(context.Background(), model.RunContext{ThreadID: "th1", UserMessage: "tell me about it"}, sink)
	require.NoError(t, err)

	tags := sink.tags()
	assert.NotContains(t, tags, model.EventToolCallStart)
	assert.Contains(t, tags, model.EventAnswer)
	assert.Equal(t, model.EventDone, tags[len(tags)-1])
}

func TestRun_AllToolsFailEndsWithVerificationError(t *testing.T) {
	adapter := stubAdapter{
		planJSON: []byte(`{
			"intent": "fail",
			"needsClarification": false,
			"actions": [{"tool": "sql.query", "args": {"sql": "SELECT 1"}}]
		}`),
	}
	failingSQL := stubSQL{err: assertErr{"connection refused"}}
	coord := newCoordinator(failingSQL, adapter)
	sink := &recordingSink{}

	err := coord.Run(context.Background(), model.RunContext{ThreadID: "th1", UserMessage: "q"}, sink)
	require.NoError(t, err)

	tags := sink.tags()
	assert.Contains(t, tags, model.EventVerification)
	assert.Contains(t, tags, model.EventError)
	assert.Equal(t, model.EventDone, tags[len(tags)-1])
}

// answerAdapterAfterTool wraps a stub whose answer cites the real
// ToolResult ID the Tool Runtime assigns at execution time. That ID (a
// uuid) is unpredictable ahead of time, but llm.GenerateAnswerInput already
// carries the live ToolResults by the time GenerateAnswer is invoked, so
// the stub derives its citation from in.ToolResults instead of hardcoding
// one.
func answerAdapterAfterTool(a stubAdapter) stubAdapter {
	a.answerFn = func(in llm.GenerateAnswerInput) []byte {
		id := in.ToolResults[0].ID
		return []byte(fmt.Sprintf(
			`{"content": "There are 2 workspaces [1].", "citations": [{"index": 1, "evidenceId": %q, "evidenceType": "tool_result"}]}`,
			id))
	}
	return a
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func assertOrderedSubsequence(t *testing.T, haystack, needle []model.EventTag) {
	t.Helper()
	i := 0
	for _, h := range haystack {
		if i < len(needle) && h == needle[i] {
			i++
		}
	}
	assert.Equal(t, len(needle), i, "expected ordered subsequence %v within %v", needle, haystack)
}
