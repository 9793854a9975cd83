// Package config loads the orchestration pipeline's YAML configuration and
// applies environment variable overrides, following the load-then-override
// pattern used throughout the teacher corpus: parse a declarative document,
// then let deployment-specific secrets and overrides come from the
// environment rather than the checked-in file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/groundedqa/orchestrator/policy"
	"github.com/groundedqa/orchestrator/sqlgate"
)

// DefaultForbiddenFunctions is the defence-in-depth SQL blocklist applied
// when a config document does not override it: functions that sleep,
// reach outside the database, or modify session state.
var DefaultForbiddenFunctions = []string{
	"pg_sleep", "sleep", "dblink", "pg_read_file", "pg_ls_dir",
	"copy", "lo_import", "lo_export", "set_config", "pg_terminate_backend",
}

// Config is the fully resolved, in-memory configuration for one
// orchestrator process.
type Config struct {
	MaxRows             int      `yaml:"maxRows"`
	AllowedTables       []string `yaml:"allowedTables"`
	AllowedTools        []string `yaml:"allowedTools"`
	ToolTimeoutMs       int      `yaml:"toolTimeoutMs"`
	PlannerTemperature  float64  `yaml:"plannerTemperature"`
	PlannerMaxRetries   int      `yaml:"plannerMaxRetries"`
	ForbiddenFunctions  []string `yaml:"forbiddenFunctions"`
	MaxToolCallsPerPlan int      `yaml:"maxToolCallsPerPlan"`

	SQL struct {
		DSN          string `yaml:"dsn"`
		PoolMaxConns int    `yaml:"poolMaxConns"`
	} `yaml:"sql"`

	RAG struct {
		WeaviateURL    string `yaml:"weaviateURL"`
		WeaviateAPIKey string `yaml:"weaviateAPIKey"`
	} `yaml:"rag"`

	EvidenceStore struct {
		DSN string `yaml:"dsn"`
	} `yaml:"evidenceStore"`

	LLM struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"apiKey"`
		Model    string `yaml:"model"`
	} `yaml:"llm"`
}

// defaults matches the orchestration pipeline's configuration defaults
// table: maxRows 200, an empty (permissive) table allowlist, a tool
// allowlist of sql.query and rag.search, 30s tool timeout,
// temperature 0.1, 2 retries, a non-empty forbidden-function list, and a
// cap of 10 tool calls per plan.
func defaults() Config {
	c := Config{
		MaxRows:             200,
		AllowedTools:        []string{"sql.query", "rag.search"},
		ToolTimeoutMs:       30000,
		PlannerTemperature:  0.1,
		PlannerMaxRetries:   2,
		ForbiddenFunctions:  append([]string(nil), DefaultForbiddenFunctions...),
		MaxToolCallsPerPlan: 10,
	}
	return c
}

// Load reads a YAML document from path, merges it over the built-in
// defaults, and applies GROUNDEDQA_-prefixed environment variable
// overrides for deployment secrets (DSNs, API keys) that must never live
// in a checked-in file.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GROUNDEDQA_SQL_DSN"); v != "" {
		cfg.SQL.DSN = v
	}
	if v := os.Getenv("GROUNDEDQA_EVIDENCE_STORE_DSN"); v != "" {
		cfg.EvidenceStore.DSN = v
	}
	if v := os.Getenv("GROUNDEDQA_RAG_WEAVIATE_URL"); v != "" {
		cfg.RAG.WeaviateURL = v
	}
	if v := os.Getenv("GROUNDEDQA_RAG_WEAVIATE_API_KEY"); v != "" {
		cfg.RAG.WeaviateAPIKey = v
	}
	if v := os.Getenv("GROUNDEDQA_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GROUNDEDQA_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("GROUNDEDQA_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("GROUNDEDQA_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRows = n
		}
	}
	if v := os.Getenv("GROUNDEDQA_ALLOWED_TABLES"); v != "" {
		cfg.AllowedTables = splitCSV(v)
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ToolTimeout returns ToolTimeoutMs as a time.Duration.
func (c Config) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutMs) * time.Millisecond
}

// SQLPolicyConfig projects the fields the SQL Safety Gate needs out of c.
func (c Config) SQLPolicyConfig() sqlgate.PolicyConfig {
	return sqlgate.PolicyConfig{
		MaxRows:            c.MaxRows,
		AllowedTables:      c.AllowedTables,
		ForbiddenFunctions: c.ForbiddenFunctions,
	}
}

// PolicyConfig projects the fields the Policy Engine needs out of c.
func (c Config) PolicyConfig() policy.Config {
	return policy.Config{
		MaxToolCallsPerPlan: c.MaxToolCallsPerPlan,
		AllowedTools:        c.AllowedTools,
		SQL:                 c.SQLPolicyConfig(),
	}
}
