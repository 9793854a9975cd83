// Package stream defines the Sink abstraction the Pipeline Coordinator
// delivers StreamEvents through. Implementations are responsible for
// marshaling events into their wire format (SSE, WebSocket) and handling
// transport-specific delivery and backpressure.
package stream

import (
	"context"

	"github.com/groundedqa/orchestrator/model"
)

// Sink delivers a run's StreamEvents to one client. Implementations must be
// safe to use from a single goroutine only: the Coordinator is
// single-goroutine-equivalent and never calls Send concurrently for the
// same run.
type Sink interface {
	// Send publishes event to the sink's underlying transport. An error
	// here is the "awaiting the consumer of the event stream" suspension
	// point backpressuring the orchestration task.
	Send(ctx context.Context, event model.StreamEvent) error

	// Close releases resources owned by the sink. Idempotent.
	Close(ctx context.Context) error
}
