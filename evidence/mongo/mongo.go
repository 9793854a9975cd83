// Package mongo implements the connectors.EvidenceStore contract over
// MongoDB, mirroring the teacher's low-level collection-wrapper pattern
// used for its own event-log stores: a narrow interface over the driver's
// collection type so the store itself stays mockable without a live
// cluster.
package mongo

import (
	"context"
	"fmt"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/groundedqa/orchestrator/model"
)

const (
	defaultTimeout       = 5 * time.Second
	toolCallsCollection  = "tool_calls"
	toolResultCollection = "tool_results"
	messagesCollection   = "messages"
)

// Options configures the Store.
type Options struct {
	Client   *mongodriver.Client
	Database string
	Timeout  time.Duration
}

// collection narrows *mongodriver.Collection to the single method the
// store needs, so tests can substitute a fake.
type collection interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongodriver.InsertOneResult, error)
}

// Store is the MongoDB-backed connectors.EvidenceStore.
type Store struct {
	toolCalls   collection
	toolResults collection
	messages    collection
	timeout     time.Duration
}

type toolCallDocument struct {
	ID           string         `bson:"_id"`
	MessageID    string         `bson:"message_id"`
	ThreadID     string         `bson:"thread_id"`
	WorkspaceID  string         `bson:"workspace_id"`
	ToolName     string         `bson:"tool_name"`
	ToolArgs     map[string]any `bson:"tool_args"`
	Status       string         `bson:"status"`
	StartedAt    time.Time      `bson:"started_at"`
	FinishedAt   time.Time      `bson:"finished_at,omitempty"`
	DurationMs   int64          `bson:"duration_ms,omitempty"`
	ErrorMessage string         `bson:"error_message,omitempty"`
}

type toolResultDocument struct {
	ID          string `bson:"_id"`
	ToolCallID  string `bson:"tool_call_id"`
	ThreadID    string `bson:"thread_id"`
	WorkspaceID string `bson:"workspace_id"`
	Data        any    `bson:"data"`
	RowCount    *int   `bson:"row_count,omitempty"`
	Checksum    string `bson:"checksum,omitempty"`
}

type messageDocument struct {
	ID        string    `bson:"_id"`
	ThreadID  string    `bson:"thread_id"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

// New returns a Store backed by opts.Client.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("evidence store: mongo client is required")
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("evidence store: database name is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	db := opts.Client.Database(opts.Database)
	return &Store{
		toolCalls:   db.Collection(toolCallsCollection),
		toolResults: db.Collection(toolResultCollection),
		messages:    db.Collection(messagesCollection),
		timeout:     timeout,
	}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// InsertToolCall records a dispatched ToolCall. record must be a
// model.ToolCall.
func (s *Store) InsertToolCall(ctx context.Context, record any) error {
	tc, ok := record.(model.ToolCall)
	if !ok {
		return fmt.Errorf("evidence store: expected model.ToolCall, got %T", record)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := toolCallDocument{
		ID: tc.ID, MessageID: tc.MessageID, ThreadID: tc.ThreadID, WorkspaceID: tc.WorkspaceID,
		ToolName: tc.ToolName, ToolArgs: tc.ToolArgs, Status: string(tc.Status),
		StartedAt: tc.StartedAt, FinishedAt: tc.FinishedAt, DurationMs: tc.DurationMs,
		ErrorMessage: tc.ErrorMessage,
	}
	if _, err := s.toolCalls.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("evidence store: insert tool call: %w", err)
	}
	return nil
}

// InsertToolResult records a completed ToolResult.
func (s *Store) InsertToolResult(ctx context.Context, record any) error {
	tr, ok := record.(model.ToolResult)
	if !ok {
		return fmt.Errorf("evidence store: expected model.ToolResult, got %T", record)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := toolResultDocument{
		ID: tr.ID, ToolCallID: tr.ToolCallID, ThreadID: tr.ThreadID, WorkspaceID: tr.WorkspaceID,
		Data: tr.Data, RowCount: tr.RowCount, Checksum: tr.Checksum,
	}
	if _, err := s.toolResults.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("evidence store: insert tool result: %w", err)
	}
	return nil
}

// InsertMessage records a thread message. record must be a
// model.EvidenceMessage.
func (s *Store) InsertMessage(ctx context.Context, record any) error {
	msg, ok := record.(model.EvidenceMessage)
	if !ok {
		return fmt.Errorf("evidence store: expected model.EvidenceMessage, got %T", record)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := messageDocument{ID: msg.ID, ThreadID: msg.ThreadID, Role: string(msg.Role), Content: msg.Content, CreatedAt: msg.CreatedAt}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("evidence store: insert message: %w", err)
	}
	return nil
}
