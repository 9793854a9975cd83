package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/groundedqa/orchestrator/telemetry"
)

// TestNoop_DoesNotPanic exercises every method of the no-op bundle; the
// only contract a no-op needs to honor is "never panics, never blocks".
func TestNoop_DoesNotPanic(t *testing.T) {
	ctx := context.Background()
	b := telemetry.NewNoop()

	b.Logger.Debug(ctx, "debug", "k", "v")
	b.Logger.Info(ctx, "info")
	b.Logger.Warn(ctx, "warn", "k", 1)
	b.Logger.Error(ctx, "error", "k", nil)

	b.Metrics.IncCounter("c", 1, "tag", "v")
	b.Metrics.RecordTimer("t", time.Millisecond)
	b.Metrics.RecordGauge("g", 0.5)

	_, span := b.Tracer.Start(ctx, "span")
	span.AddEvent("evt", "k", "v")
	span.SetStatus(0, "ok")
	span.RecordError(nil)
	span.End()
}
