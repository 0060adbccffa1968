package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Postgres.Host)
	assert.Equal(t, "eve_companion", cfg.Database.Postgres.Database)
	assert.Equal(t, 10, cfg.ESI.RequestsPerSecond)
	assert.Equal(t, int64(10000002), cfg.Market.HistoryRegionID)
	assert.Equal(t, []int64{10000066}, cfg.Market.ContractRegionIDs)
	assert.Equal(t, []int64{10000002}, cfg.Market.OrderRegionIDs)
	assert.Equal(t, 90, cfg.Market.LongOrderDays)
	assert.Equal(t, DefaultTaskNames, cfg.Tasks.Enabled)
	assert.Empty(t, cfg.Tasks.Intervals)
}

func TestLoadConfigTaskOverrides(t *testing.T) {
	t.Setenv("ENABLED_TASKS", "skills, contracts")
	t.Setenv("TASK_SKILLS_INTERVAL", "6h")
	t.Setenv("TASK_CONTRACTS_INTERVAL", "not-a-duration")
	t.Setenv("TASK_CONTRACTS_ALLOW_OVERLAP", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"skills", "contracts"}, cfg.Tasks.Enabled)
	assert.Equal(t, 6*time.Hour, cfg.Tasks.Intervals["skills"])
	assert.True(t, cfg.Tasks.AllowOverlap["contracts"])
	assert.False(t, cfg.Tasks.AllowOverlap["skills"])
	// Unparseable overrides fall back to the task default.
	_, ok := cfg.Tasks.Intervals["contracts"]
	assert.False(t, ok)
}

func TestGetEnvAsInt64List(t *testing.T) {
	t.Setenv("CONTRACT_REGION_IDS", "10000002, 10000043")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []int64{10000002, 10000043}, cfg.Market.ContractRegionIDs)
}
