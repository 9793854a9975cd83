// Package rag implements the RagConnector contract against a Weaviate
// vector database via weaviate-go-client/v5's GraphQL builder.
package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/groundedqa/orchestrator/connectors"
)

// Config bounds the Weaviate deployment this connector talks to and the
// class indexed documents are stored under.
type Config struct {
	Host      string
	Scheme    string
	APIKey    string
	ClassName string
}

// Connector is the weaviate-backed connectors.RagConnector.
type Connector struct {
	client    *weaviate.Client
	className string
}

// New constructs a Connector against cfg. ClassName defaults to "Chunk".
func New(cfg Config) (*Connector, error) {
	if cfg.ClassName == "" {
		cfg.ClassName = "Chunk"
	}
	wcfg := weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme}
	if cfg.APIKey != "" {
		wcfg.Headers = map[string]string{"X-API-Key": cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("rag connector: new client: %w", err)
	}
	return &Connector{client: client, className: cfg.ClassName}, nil
}

type chunkQueryResult struct {
	Get map[string][]struct {
		ChunkID    string  `json:"chunkId"`
		DocumentID string  `json:"documentId"`
		Content    string  `json:"content"`
		SourceID   string  `json:"sourceId"`
		Additional struct {
			Certainty float64 `json:"certainty"`
		} `json:"_additional"`
	} `json:"Get"`
}

// Search issues a nearText semantic search against the configured class,
// optionally scoped to a workspace and a set of source documents.
func (c *Connector) Search(ctx context.Context, in connectors.RagSearchInput) (connectors.RagSearchOutput, error) {
	topK := in.TopK
	if topK <= 0 {
		topK = 5
	}

	nearText := c.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{in.Query})

	fields := []graphql.Field{
		{Name: "chunkId"}, {Name: "documentId"}, {Name: "content"}, {Name: "sourceId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	builder := c.client.GraphQL().Get().
		WithClassName(c.className).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(topK)

	if in.WorkspaceID != "" {
		builder = builder.WithWhere(filters.Where().
			WithPath([]string{"workspaceId"}).
			WithOperator(filters.Equal).
			WithValueText(in.WorkspaceID))
	}

	resp, err := builder.Do(ctx)
	if err != nil {
		return connectors.RagSearchOutput{}, fmt.Errorf("rag connector: graphql query: %w", err)
	}
	if len(resp.Errors) > 0 {
		return connectors.RagSearchOutput{}, fmt.Errorf("rag connector: weaviate returned errors: %v", resp.Errors)
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return connectors.RagSearchOutput{}, fmt.Errorf("rag connector: marshal response: %w", err)
	}
	var parsed chunkQueryResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return connectors.RagSearchOutput{}, fmt.Errorf("rag connector: unmarshal response: %w", err)
	}

	var chunks []connectors.RagChunk
	allowed := toSet(in.SourceIDs)
	for _, item := range parsed.Get[c.className] {
		if len(allowed) > 0 && !allowed[item.SourceID] {
			continue
		}
		chunks = append(chunks, connectors.RagChunk{
			ChunkID:    item.ChunkID,
			DocumentID: item.DocumentID,
			Content:    item.Content,
			Score:      item.Additional.Certainty,
			Metadata:   map[string]any{"sourceId": item.SourceID},
		})
	}

	return connectors.RagSearchOutput{Chunks: chunks}, nil
}

func toSet(vs []string) map[string]bool {
	if len(vs) == 0 {
		return nil
	}
	m := make(map[string]bool, len(vs))
	for _, v := range vs {
		m[v] = true
	}
	return m
}
