// Package planner implements the Planner (C5): the pipeline stage that
// invokes the LLM adapter to turn a user message into a structured Plan,
// routing every adapter response through the Schema Validators before the
// rest of the pipeline ever sees it.
package planner

import (
	"context"

	"github.com/groundedqa/orchestrator/llm"
	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/orcherrors"
	"github.com/groundedqa/orchestrator/schema"
)

// DefaultTemperature biases the planner toward deterministic output, per
// the orchestration pipeline's low-temperature planning requirement.
const DefaultTemperature = 0.1

// DefaultMaxRetries is the number of additional attempts after a schema
// validation failure before the Planner gives up.
const DefaultMaxRetries = 2

// Config bounds a single Plan call.
type Config struct {
	AllowedTools  []string
	Temperature   float64
	MaxRetries    int
	SystemContext string
}

// Planner invokes an llm.Adapter and validates its output against the Plan
// schema, retrying on validation failure up to Config.MaxRetries times.
type Planner struct {
	adapter llm.Adapter
	cfg     Config
}

// New constructs a Planner. Zero-valued Temperature/MaxRetries fall back to
// DefaultTemperature/DefaultMaxRetries.
func New(adapter llm.Adapter, cfg Config) *Planner {
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Planner{adapter: adapter, cfg: cfg}
}

// Plan generates and validates a Plan for userMessage. On repeated schema
// validation failure it returns a PlannerError carrying the last set of
// validation issues.
func (p *Planner) Plan(ctx context.Context, userMessage string) (model.Plan, error) {
	var lastIssues []string

	attempts := p.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		raw, err := p.adapter.GeneratePlan(ctx, llm.GeneratePlanInput{
			UserMessage:   userMessage,
			SystemContext: p.cfg.SystemContext,
			AllowedTools:  p.cfg.AllowedTools,
			Temperature:   p.cfg.Temperature,
		})
		if err != nil {
			lastIssues = []string{err.Error()}
			continue
		}

		result := schema.ValidatePlan(raw)
		if result.OK {
			return result.Value, nil
		}
		lastIssues = result.Issues
	}

	return model.Plan{}, orcherrors.New(orcherrors.CodePlannerError,
		"planner failed to produce a valid plan after retries",
		map[string]any{"issues": lastIssues, "attempts": attempts}, nil)
}
