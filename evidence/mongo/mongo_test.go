package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/groundedqa/orchestrator/model"
)

type fakeCollection struct {
	lastDoc any
	err     error
}

func (f *fakeCollection) InsertOne(_ context.Context, document any, _ ...*options.InsertOneOptions) (*mongodriver.InsertOneResult, error) {
	f.lastDoc = document
	if f.err != nil {
		return nil, f.err
	}
	return &mongodriver.InsertOneResult{}, nil
}

func newStore() (*Store, *fakeCollection, *fakeCollection, *fakeCollection) {
	calls, results, messages := &fakeCollection{}, &fakeCollection{}, &fakeCollection{}
	return &Store{toolCalls: calls, toolResults: results, messages: messages, timeout: time.Second}, calls, results, messages
}

func TestNew_RequiresClientAndDatabase(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Client: &mongodriver.Client{}})
	assert.Error(t, err)
}

func TestInsertToolCall_WritesDocument(t *testing.T) {
	store, calls, _, _ := newStore()
	tc := model.ToolCall{ID: "tc-1", ThreadID: "t-1", ToolName: "sql.query", Status: model.ToolCallSuccess, StartedAt: time.Now()}

	require.NoError(t, store.InsertToolCall(context.Background(), tc))
	doc, ok := calls.lastDoc.(toolCallDocument)
	require.True(t, ok)
	assert.Equal(t, "tc-1", doc.ID)
	assert.Equal(t, "sql.query", doc.ToolName)
}

func TestInsertToolCall_RejectsWrongType(t *testing.T) {
	store, _, _, _ := newStore()
	assert.Error(t, store.InsertToolCall(context.Background(), "nope"))
}

func TestInsertToolResult_WritesDocument(t *testing.T) {
	store, _, results, _ := newStore()
	tr := model.ToolResult{ID: "tr-1", ToolCallID: "tc-1", Checksum: "abc123"}

	require.NoError(t, store.InsertToolResult(context.Background(), tr))
	doc, ok := results.lastDoc.(toolResultDocument)
	require.True(t, ok)
	assert.Equal(t, "abc123", doc.Checksum)
}

func TestInsertMessage_WritesDocument(t *testing.T) {
	store, _, _, messages := newStore()
	msg := model.EvidenceMessage{ID: "m-1", ThreadID: "t-1", Role: model.MessageRoleUser, Content: "hi", CreatedAt: time.Now()}

	require.NoError(t, store.InsertMessage(context.Background(), msg))
	doc, ok := messages.lastDoc.(messageDocument)
	require.True(t, ok)
	assert.Equal(t, "hi", doc.Content)
}

func TestInsertMessage_PropagatesDriverError(t *testing.T) {
	store, _, _, messages := newStore()
	messages.err = assert.AnError

	err := store.InsertMessage(context.Background(), model.EvidenceMessage{ID: "m-1"})
	assert.Error(t, err)
}
