// Package orchestrator implements the Pipeline Coordinator (C9): the state
// machine that sequences Planner → Policy Engine → Tool Runtime → Verifier
// → Answer Generator, emitting ordered StreamEvents and handling
// stage-level failure branching. The Coordinator is single-goroutine-
// equivalent: it never calls a Sink concurrently, and downstream event
// consumers cannot influence its control flow.
package orchestrator

import (
	"context"
	"time"

	"github.com/groundedqa/orchestrator/answer"
	"github.com/groundedqa/orchestrator/connectors"
	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/orcherrors"
	"github.com/groundedqa/orchestrator/planner"
	"github.com/groundedqa/orchestrator/policy"
	"github.com/groundedqa/orchestrator/stream"
	"github.com/groundedqa/orchestrator/telemetry"
	"github.com/groundedqa/orchestrator/toolruntime"
	"github.com/groundedqa/orchestrator/verifier"
)

// Config bounds one orchestration run.
type Config struct {
	ToolTimeout time.Duration
}

// DefaultToolTimeout is the per-tool-call deadline applied when
// Config.ToolTimeout is zero.
const DefaultToolTimeout = 30 * time.Second

// Coordinator wires together the five pipeline stages.
type Coordinator struct {
	planner   *planner.Planner
	policy    *policy.Engine
	runtime   *toolruntime.Runtime
	answerGen *answer.Generator
	evidence  connectors.EvidenceStore
	telemetry telemetry.Bundle
	cfg       Config
}

// New constructs a Coordinator. evidence and tel may be nil; a nil evidence
// store skips audit persistence and a nil telemetry bundle falls back to
// no-ops.
func New(p *planner.Planner, pol *policy.Engine, rt *toolruntime.Runtime, ag *answer.Generator, evidence connectors.EvidenceStore, tel telemetry.Bundle, cfg Config) *Coordinator {
	if cfg.ToolTimeout == 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	if tel.Logger == nil || tel.Metrics == nil || tel.Tracer == nil {
		tel = telemetry.NewNoop()
	}
	return &Coordinator{planner: p, policy: pol, runtime: rt, answerGen: ag, evidence: evidence, telemetry: tel, cfg: cfg}
}

// Run drives one request through PLAN → POLICY → EXEC → VERIFY → ANSWER,
// emitting StreamEvents onto sink in the order the orchestration pipeline's
// ordering guarantee requires. Run always terminates by emitting exactly
// one `done` event as its final act, regardless of which branch it takes.
func (c *Coordinator) Run(ctx context.Context, rc model.RunContext, sink stream.Sink) error {
	emit := func(ev model.StreamEvent) error { return sink.Send(ctx, ev) }

	if err := emit(model.NewMetaEvent(rc.ThreadID, rc.MessageID)); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return c.terminateWithError(ctx, sink, "cancelled", "")
	}

	// PLAN
	if err := emit(model.NewStatusEvent(model.StagePlanning)); err != nil {
		return err
	}
	plan, err := c.planner.Plan(ctx, rc.UserMessage)
	if err != nil {
		return c.terminateWithError(ctx, sink, err.Error(), "planning")
	}
	if err := emit(model.NewPlanEvent(plan)); err != nil {
		return err
	}

	if plan.NeedsClarification {
		clarifyAnswer := model.Answer{Content: plan.ClarificationQuestion}
		if err := emit(model.NewAnswerEvent(clarifyAnswer)); err != nil {
			return err
		}
		return c.done(ctx, sink)
	}

	// POLICY
	if err := emit(model.NewStatusEvent(model.StagePolicy)); err != nil {
		return err
	}
	decisions, err := c.policy.Evaluate(plan)
	if err != nil {
		return c.terminateWithError(ctx, sink, err.Error(), "policy")
	}
	if !model.Executable(decisions) {
		return c.terminateWithError(ctx, sink,
			orcherrors.New(orcherrors.CodePolicyBlocked, "no action in the plan was approved", nil, nil).Error(),
			"policy")
	}

	// EXEC
	if err := emit(model.NewStatusEvent(model.StageToolsRunning)); err != nil {
		return err
	}
	results, err := c.execActions(ctx, rc, decisions, sink)
	if err != nil {
		return err
	}

	// VERIFY
	if err := emit(model.NewStatusEvent(model.StageVerifying)); err != nil {
		return err
	}
	report, verr := verifier.VerifyOrThrow(results)
	if err := emit(model.NewVerificationEvent(report)); err != nil {
		return err
	}
	if verr != nil {
		return c.terminateWithError(ctx, sink, verr.Error(), "verifying")
	}

	// ANSWER
	if err := emit(model.NewStatusEvent(model.StageAnswering)); err != nil {
		return err
	}
	toolResults := successfulResults(results)
	if err := c.streamAnswer(ctx, rc.UserMessage, toolResults, report, sink); err != nil {
		return err
	}
	a, err := c.answerGen.Generate(ctx, rc.UserMessage, toolResults, report, "")
	if err != nil {
		return c.terminateWithError(ctx, sink, err.Error(), "answering")
	}
	if err := emit(model.NewAnswerEvent(a)); err != nil {
		return err
	}
	c.persistBestEffort(ctx, rc, results)
	c.persistMessages(ctx, rc, a)

	return c.done(ctx, sink)
}

// execActions runs the Tool Runtime over approved decisions, emitting a
// strictly ordered tool_call_start/tool_call_end pair per action — the
// pair for action i never interleaves with the pair for action i+1.
func (c *Coordinator) execActions(ctx context.Context, rc model.RunContext, decisions []model.PolicyDecision, sink stream.Sink) ([]model.ToolExecutionResult, error) {
	results := make([]model.ToolExecutionResult, 0, len(decisions))
	for _, d := range decisions {
		if !d.Approved {
			continue
		}
		if err := sink.Send(ctx, model.NewToolCallStartEvent(d.Action.Tool, d.SanitizedArgs)); err != nil {
			return nil, err
		}

		one := c.runtime.ExecuteActions(ctx, rc, []model.PolicyDecision{d}, c.cfg.ToolTimeout)
		r := one[0]
		results = append(results, r)

		if err := sink.Send(ctx, model.NewToolCallEndEvent(r.ToolCall.ToolName, r.ToolCall.Status, r.ToolCall.DurationMs, rowCountOf(r), r.ToolCall.ErrorMessage)); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// streamAnswer relays the Answer Generator's streamed fragments onto sink as
// token events ahead of the final, citation-checked answer event. Free-form
// LLM text reaches the stream only through this path; Generate is still
// called separately afterward to produce the validated Answer. A streaming
// failure is logged and swallowed rather than aborting the run, since
// Generate is the authoritative source of the final Answer.
func (c *Coordinator) streamAnswer(ctx context.Context, userMessage string, toolResults []model.ToolResult, report model.VerifierReport, sink stream.Sink) error {
	ch := make(chan string)
	done := make(chan error, 1)
	go func() {
		done <- c.answerGen.StreamFragments(ctx, userMessage, toolResults, report, "", ch)
	}()

	var sendErr error
	for fragment := range ch {
		if sendErr != nil {
			continue
		}
		if err := sink.Send(ctx, model.NewTokenEvent(fragment)); err != nil {
			sendErr = err
		}
	}
	if err := <-done; err != nil {
		c.telemetry.Logger.Warn(ctx, "answer generator: streaming fragments failed", "error", err.Error())
	}
	return sendErr
}

func rowCountOf(r model.ToolExecutionResult) *int {
	if r.ToolResult == nil {
		return nil
	}
	return r.ToolResult.RowCount
}

func successfulResults(results []model.ToolExecutionResult) []model.ToolResult {
	out := make([]model.ToolResult, 0, len(results))
	for _, r := range results {
		if r.ToolResult != nil {
			out = append(out, *r.ToolResult)
		}
	}
	return out
}

// persistBestEffort writes audit records to the EvidenceStore. Failure
// never aborts the response stream; it is logged and swallowed.
func (c *Coordinator) persistBestEffort(ctx context.Context, rc model.RunContext, results []model.ToolExecutionResult) {
	if c.evidence == nil {
		return
	}
	for _, r := range results {
		if err := c.evidence.InsertToolCall(ctx, r.ToolCall); err != nil {
			c.telemetry.Logger.Warn(ctx, "evidence store: insert tool call failed", "error", err.Error())
		}
		if r.ToolResult != nil {
			if err := c.evidence.InsertToolResult(ctx, *r.ToolResult); err != nil {
				c.telemetry.Logger.Warn(ctx, "evidence store: insert tool result failed", "error", err.Error())
			}
		}
	}
}

// persistMessages writes the user turn and the generated answer to the
// EvidenceStore, best-effort like persistBestEffort.
func (c *Coordinator) persistMessages(ctx context.Context, rc model.RunContext, a model.Answer) {
	if c.evidence == nil {
		return
	}
	now := time.Now().UTC()
	userMsg := model.EvidenceMessage{
		ID: rc.MessageID, ThreadID: rc.ThreadID, Role: model.MessageRoleUser,
		Content: rc.UserMessage, CreatedAt: now,
	}
	if err := c.evidence.InsertMessage(ctx, userMsg); err != nil {
		c.telemetry.Logger.Warn(ctx, "evidence store: insert user message failed", "error", err.Error())
	}
	answerMsg := model.EvidenceMessage{
		ID: rc.MessageID + "-answer", ThreadID: rc.ThreadID, Role: model.MessageRoleAssistant,
		Content: a.Content, CreatedAt: now,
	}
	if err := c.evidence.InsertMessage(ctx, answerMsg); err != nil {
		c.telemetry.Logger.Warn(ctx, "evidence store: insert answer message failed", "error", err.Error())
	}
}

func (c *Coordinator) terminateWithError(ctx context.Context, sink stream.Sink, message, stage string) error {
	if err := sink.Send(ctx, model.NewErrorEvent(message, stage)); err != nil {
		return err
	}
	return c.done(ctx, sink)
}

func (c *Coordinator) done(ctx context.Context, sink stream.Sink) error {
	return sink.Send(ctx, model.NewDoneEvent())
}
