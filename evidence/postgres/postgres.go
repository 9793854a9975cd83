// Package postgres implements the connectors.EvidenceStore contract as
// append-only inserts into Postgres via jackc/pgx/v5. Writes are
// best-effort: callers are expected to log and discard insert errors
// rather than fail a request over them, per the audit trail's
// fire-and-forget nature.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/groundedqa/orchestrator/model"
)

// Store is the pgx-backed connectors.EvidenceStore.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a pool against dsn and ensures the evidence tables exist.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("evidence store: connect: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tool_calls (
	id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	thread_id TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	tool_args JSONB NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	duration_ms BIGINT,
	error_message TEXT
);
CREATE TABLE IF NOT EXISTS tool_results (
	id TEXT PRIMARY KEY,
	tool_call_id TEXT NOT NULL,
	thread_id TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	data JSONB,
	row_count INT,
	checksum TEXT
);
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`
	_, err := pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("evidence store: ensure schema: %w", err)
	}
	return nil
}

// InsertToolCall records a dispatched ToolCall. record must be a
// model.ToolCall; any other type is rejected.
func (s *Store) InsertToolCall(ctx context.Context, record any) error {
	tc, ok := record.(model.ToolCall)
	if !ok {
		return fmt.Errorf("evidence store: expected model.ToolCall, got %T", record)
	}
	args, err := json.Marshal(tc.ToolArgs)
	if err != nil {
		return fmt.Errorf("evidence store: marshal tool args: %w", err)
	}
	var finishedAt any
	if !tc.FinishedAt.IsZero() {
		finishedAt = tc.FinishedAt
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO tool_calls (id, message_id, thread_id, workspace_id, tool_name, tool_args, status, started_at, finished_at, duration_ms, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING`,
		tc.ID, tc.MessageID, tc.ThreadID, tc.WorkspaceID, tc.ToolName, args, string(tc.Status),
		tc.StartedAt, finishedAt, tc.DurationMs, tc.ErrorMessage)
	if err != nil {
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
	data, err := json.Marshal(tr.Data)
	if err != nil {
		return fmt.Errorf("evidence store: marshal tool result data: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO tool_results (id, tool_call_id, thread_id, workspace_id, data, row_count, checksum)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		tr.ID, tr.ToolCallID, tr.ThreadID, tr.WorkspaceID, data, tr.RowCount, tr.Checksum)
	if err != nil {
		return fmt.Errorf("evidence store: insert tool result: %w", err)
	}
	return nil
}

// InsertMessage records a thread message (user turn or generated answer).
// record must be a model.EvidenceMessage.
func (s *Store) InsertMessage(ctx context.Context, record any) error {
	msg, ok := record.(model.EvidenceMessage)
	if !ok {
		return fmt.Errorf("evidence store: expected model.EvidenceMessage, got %T", record)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, thread_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.ThreadID, string(msg.Role), msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("evidence store: insert message: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
