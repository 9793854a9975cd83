// Command demo wires the orchestration pipeline's concrete connectors
// together and runs one request end to end, printing the SSE frames it
// would otherwise stream to a client.
package main

import (
	"context"
	"fmt"
	"os"

	anthropicadapter "github.com/groundedqa/orchestrator/connectors/llm/anthropic"
	ragconn "github.com/groundedqa/orchestrator/connectors/rag"
	sqlconn "github.com/groundedqa/orchestrator/connectors/sql"

	"github.com/groundedqa/orchestrator/answer"
	"github.com/groundedqa/orchestrator/config"
	"github.com/groundedqa/orchestrator/connectors"
	"github.com/groundedqa/orchestrator/evidence/postgres"
	"github.com/groundedqa/orchestrator/model"
	"github.com/groundedqa/orchestrator/orchestrator"
	"github.com/groundedqa/orchestrator/planner"
	"github.com/groundedqa/orchestrator/policy"
	"github.com/groundedqa/orchestrator/stream/sse"
	"github.com/groundedqa/orchestrator/telemetry"
	"github.com/groundedqa/orchestrator/toolruntime"
)

func main() {
	ctx := context.Background()

	cfgPath := ""
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fail(err)
	}

	sqlClient, err := sqlconn.New(ctx, sqlconn.Config{DSN: cfg.SQL.DSN, MaxConns: int32(cfg.SQL.PoolMaxConns)}, nil)
	if err != nil {
		fail(err)
	}
	defer sqlClient.Disconnect(ctx)

	ragClient, err := ragconn.New(ragconn.Config{Host: cfg.RAG.WeaviateURL, Scheme: "https", APIKey: cfg.RAG.WeaviateAPIKey})
	if err != nil {
		fail(err)
	}

	adapter, err := anthropicadapter.New(cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		fail(err)
	}

	var evidenceStore connectors.EvidenceStore
	if cfg.EvidenceStore.DSN != "" {
		store, err := postgres.New(ctx, cfg.EvidenceStore.DSN)
		if err != nil {
			fail(err)
		}
		defer store.Close()
		evidenceStore = store
	}

	p := planner.New(adapter, planner.Config{
		AllowedTools: cfg.AllowedTools,
		Temperature:  cfg.PlannerTemperature,
		MaxRetries:   cfg.PlannerMaxRetries,
	})
	pol := policy.New(cfg.PolicyConfig(), nil)
	rt := toolruntime.New(sqlClient, ragClient)
	ag := answer.New(adapter)

	coord := orchestrator.New(p, pol, rt, ag, evidenceStore, telemetry.NewNoop(), orchestrator.Config{ToolTimeout: cfg.ToolTimeout()})

	sink := sse.New(os.Stdout)
	defer sink.Close(ctx)

	rc := model.RunContext{
		WorkspaceID: "demo-workspace",
		ThreadID:    "demo-thread",
		MessageID:   "demo-message-1",
		UserMessage: "How many active workspaces do we have?",
	}
	if err := coord.Run(ctx, rc, sink); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "demo:", err)
	os.Exit(1)
}
