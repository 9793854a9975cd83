// Package policy implements the Tool Gate (C3) and Policy Engine (C4): the
// whole-plan and per-action gatekeepers the Pipeline Coordinator consults
// before any action reaches the Tool Runtime. The Tool Gate rejects a Plan
// outright on shape violations (too many actions, disallowed tool names);
// the Policy Engine then evaluates each action individually, delegating SQL
// actions to the SQL Safety Gate.
package policy

import (
	"fmt"
	"strings"

	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/orcherrors"
	"github.com/groundedqa/orchestrator/sqlgate"
)

// Config bounds what a Plan as a whole, and each of its actions, may do.
// An empty AllowedTools is permissive, matching the SQL gate's empty
// AllowedTables convention.
type Config struct {
	MaxToolCallsPerPlan int
	AllowedTools        []string
	SQL                 sqlgate.PolicyConfig
}

// Logger is the minimal event-channel the engine uses to report permissive
// allowlist conditions. It takes no context, so a telemetry.Logger needs a
// small adapter to satisfy it.
type Logger interface {
	Warn(msg string, keyvals ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Engine evaluates a Plan against Config and produces one PolicyDecision
// per action. The Coordinator treats the plan as executable iff at least
// one returned decision is approved.
type Engine struct {
	cfg    Config
	logger Logger
}

// New constructs an Engine. A nil logger falls back to a no-op.
func New(cfg Config, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Evaluate runs the Tool Gate over the whole plan, then the per-action
// Policy Engine over each action that survives it. A Tool Gate rejection
// is a stage-level failure: it returns a PolicyBlockedError and no
// decisions, since the whole plan never reaches execution.
func (e *Engine) Evaluate(plan model.Plan) ([]model.PolicyDecision, error) {
	if err := e.toolGate(plan); err != nil {
		return nil, err
	}

	decisions := make([]model.PolicyDecision, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		decisions = append(decisions, e.decideAction(action))
	}
	return decisions, nil
}

// toolGate rejects the whole plan if it requests more actions than
// MaxToolCallsPerPlan or if any action names a tool outside AllowedTools.
// An empty AllowedTools is permissive.
func (e *Engine) toolGate(plan model.Plan) error {
	if e.cfg.MaxToolCallsPerPlan > 0 && len(plan.Actions) > e.cfg.MaxToolCallsPerPlan {
		return orcherrors.New(orcherrors.CodePolicyBlocked,
			fmt.Sprintf("plan requests %d actions, exceeding the cap of %d", len(plan.Actions), e.cfg.MaxToolCallsPerPlan),
			map[string]any{"actionCount": len(plan.Actions), "maxToolCallsPerPlan": e.cfg.MaxToolCallsPerPlan}, nil)
	}

	if len(e.cfg.AllowedTools) == 0 {
		e.logger.Warn("policy engine: allowedTools is empty, permitting all tools")
		return nil
	}
	allowed := make(map[string]bool, len(e.cfg.AllowedTools))
	for _, t := range e.cfg.AllowedTools {
		allowed[t] = true
	}
	for _, action := range plan.Actions {
		if !allowed[action.Tool] {
			return orcherrors.New(orcherrors.CodePolicyBlocked,
				fmt.Sprintf("tool %q is not in the allowed tool list", action.Tool),
				map[string]any{"tool": action.Tool}, nil)
		}
	}
	return nil
}

// decideAction evaluates a single action. For tool = "sql.query" it
// delegates to the SQL Safety Gate and substitutes the sanitized SQL into
// SanitizedArgs; every other tool passes its arguments through unchanged.
func (e *Engine) decideAction(action model.PlanAction) model.PolicyDecision {
	if action.Tool != "sql.query" {
		return model.PolicyDecision{
			Action:        action,
			Approved:      true,
			SanitizedArgs: action.Args,
		}
	}

	sqlText, _ := action.Args["sql"].(string)
	if strings.TrimSpace(sqlText) == "" {
		return model.PolicyDecision{
			Action: action,
			Errors: []string{"sql.query action is missing a non-empty \"sql\" argument"},
		}
	}

	result := sqlgate.Gate(sqlText, e.cfg.SQL, asSQLGateLogger(e.logger))
	if !result.Valid {
		return model.PolicyDecision{Action: action, Errors: result.Errors}
	}

	sanitized := make(map[string]any, len(action.Args))
	for k, v := range action.Args {
		sanitized[k] = v
	}
	sanitized["sql"] = result.SanitizedSQL
	sanitized["effectiveLimit"] = result.EffectiveLimit
	sanitized["referencedTables"] = result.ReferencedTables

	return model.PolicyDecision{
		Action:        action,
		Approved:      true,
		SanitizedArgs: sanitized,
	}
}

func asSQLGateLogger(l Logger) sqlgate.Logger { return sqlGateLoggerAdapter{l} }

type sqlGateLoggerAdapter struct{ l Logger }

func (a sqlGateLoggerAdapter) Warn(msg string, keyvals ...any) { a.l.Warn(msg, keyvals...) }
