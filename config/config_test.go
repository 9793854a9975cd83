package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundedqa/orchestrator/config"
)

func TestLoad_AppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.MaxRows)
	assert.Equal(t, 10, cfg.MaxToolCallsPerPlan)
	assert.Equal(t, 0.1, cfg.PlannerTemperature)
	assert.NotEmpty(t, cfg.ForbiddenFunctions)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxRows: 50\nallowedTables: [\"users\"]\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxRows)
	assert.Equal(t, []string{"users"}, cfg.AllowedTables)
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("GROUNDEDQA_SQL_DSN", "postgres://test")
	t.Setenv("GROUNDEDQA_LLM_API_KEY", "sk-test")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://test", cfg.SQL.DSN)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestSQLPolicyConfig_ProjectsRelevantFields(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	sqlCfg := cfg.SQLPolicyConfig()
	assert.Equal(t, cfg.MaxRows, sqlCfg.MaxRows)
	assert.Equal(t, cfg.ForbiddenFunctions, sqlCfg.ForbiddenFunctions)
}
