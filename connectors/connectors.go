// Package connectors defines the SqlConnector, RagConnector, and
// EvidenceStore contracts the Tool Runtime dispatches to and the Pipeline
// Coordinator writes audit records through. Concrete implementations live
// under connectors/sql, connectors/rag, and evidence/*.
package connectors

import "context"

// SqlQueryInput groups the arguments to SqlConnector.Query.
type SqlQueryInput struct {
	SQL         string
	SourceID    string
	WorkspaceID string
	MaxRows     int
}

// SqlQueryOutput is the structured result of a successful SQL query.
type SqlQueryOutput struct {
	Columns   []string
	Rows      []map[string]any
	RowCount  int
	Checksum  string
	Truncated bool
}

// SqlConnector executes gated, read-only SQL and reports its own health.
type SqlConnector interface {
	Query(ctx context.Context, in SqlQueryInput) (SqlQueryOutput, error)
	TestConnection(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// RagSearchInput groups the arguments to RagConnector.Search.
type RagSearchInput struct {
	Query       string
	WorkspaceID string
	SourceIDs   []string
	TopK        int
}

// RagChunk is a single retrieved passage with its relevance score.
type RagChunk struct {
	ChunkID    string
	DocumentID string
	Content    string
	Score      float64
	Metadata   map[string]any
}

// RagSearchOutput is the structured result of a successful RAG search.
type RagSearchOutput struct {
	Chunks []RagChunk
}

// RagConnector performs vector/semantic search over a workspace's indexed
// documents.
type RagConnector interface {
	Search(ctx context.Context, in RagSearchInput) (RagSearchOutput, error)
}

// EvidenceStore persists audit records on a best-effort, append-only basis.
// Persistence failure must never abort the response stream.
type EvidenceStore interface {
	InsertToolCall(ctx context.Context, record any) error
	InsertToolResult(ctx context.Context, record any) error
	InsertMessage(ctx context.Context, record any) error
}
