package sse_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/stream/sse"
)

func TestSink_WritesTwoLineFrames(t *testing.T) {
	var buf bytes.Buffer
	sink := sse.New(&buf)

	require.NoError(t, sink.Send(context.Background(), model.NewMetaEvent("th1", "m1")))
	require.NoError(t, sink.Send(context.Background(), model.NewDoneEvent()))
	require.NoError(t, sink.Close(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "event: meta\n")
	assert.Contains(t, out, `"threadId":"th1"`)
	assert.Contains(t, out, "event: done\n")
	assert.Contains(t, out, "data: {}\n\n")
}

func TestSink_RejectsOnCanceledContext(t *testing.T) {
	var buf bytes.Buffer
	sink := sse.New(&buf)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sink.Send(ctx, model.NewDoneEvent())
	require.Error(t, err)
}
