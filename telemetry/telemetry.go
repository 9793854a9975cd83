// Package telemetry defines the logging, metrics, and tracing capability
// interfaces used throughout the orchestration pipeline. Components depend
// on these interfaces, never on a concrete backend, so tests can inject
// no-op implementations while production wires goa.design/clue and
// OpenTelemetry.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured log messages keyed by level. keyvals follow
	// the alternating key/value convention shared across the pipeline.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges. tags are flattened
	// key/value pairs appended to the metric name's dimensions.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, d time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer starts spans around pipeline stages and connector calls.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	}

	// Span is the subset of an OpenTelemetry span the pipeline needs.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, keyvals ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}

	// Bundle groups the three telemetry capabilities so components can take
	// a single constructor argument instead of three.
	Bundle struct {
		Logger  Logger
		Metrics Metrics
		Tracer  Tracer
	}
)

// NewNoop returns a Bundle whose components discard everything. Useful for
// tests and for callers that have not wired a production backend yet.
func NewNoop() Bundle {
	return Bundle{Logger: NewNoopLogger(), Metrics: NewNoopMetrics(), Tracer: NewNoopTracer()}
}
