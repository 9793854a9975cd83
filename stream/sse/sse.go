// Package sse implements the wire-format Sink for Server-Sent Events: two
// lines per event, `event: <tag>\n` then `data: <json>\n\n`, matching the
// orchestration pipeline's external stream contract.
package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/groundedqa/orchestrator/model"
)

// Sink writes StreamEvents to an underlying io.Writer as SSE frames,
// flushing after every event so a fronting HTTP handler can stream them to
// a client without buffering a whole response.
type Sink struct {
	mu  sync.Mutex
	raw io.Writer
	w   *bufio.Writer
}

// flusher is satisfied by http.ResponseWriter; Sink degrades gracefully
// (buffered writes only) when the underlying writer does not implement it.
type flusher interface {
	Flush()
}

// New wraps w in an SSE-framing Sink.
func New(w io.Writer) *Sink {
	return &Sink{raw: w, w: bufio.NewWriter(w)}
}

// Send writes one SSE frame for event. The context is honored only insofar
// as it is already canceled; the underlying write itself is synchronous.
func (s *Sink) Send(ctx context.Context, event model.StreamEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("sse: marshal payload for tag %q: %w", event.Tag, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\n", event.Tag); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	if f, ok := s.raw.(flusher); ok {
		f.Flush()
	}
	return nil
}

// Close flushes any buffered output. Idempotent: a second call is a no-op
// flush on an already-empty buffer.
func (s *Sink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}
