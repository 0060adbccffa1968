package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/eve-companion/internal/config"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionsCoverEveryConfiguredTaskName(t *testing.T) {
	defs := Definitions(&Deps{Config: &config.Config{}})

	names := make(map[string]bool, len(defs))
	for _, def := range defs {
		names[def.Name] = true
		_, hasDefault := defaultIntervals[def.Name]
		assert.True(t, hasDefault, "task %s has no default interval", def.Name)
	}

	for _, name := range config.DefaultTaskNames {
		assert.True(t, names[name], "configured task %s has no definition", name)
	}
	assert.Len(t, defs, len(config.DefaultTaskNames))
}

func TestMarketOrdersRunsAsScheduledTask(t *testing.T) {
	defs := Definitions(&Deps{Config: &config.Config{}})

	var found bool
	for _, def := range defs {
		if def.Name == "market_orders" {
			found = true
			require.NotNil(t, def.Run)
		}
	}
	assert.True(t, found, "market order collector missing from the task registry")
	assert.Equal(t, 10*time.Minute, defaultIntervals["market_orders"])
}

func TestRegisterAllHonorsEnabledListAndOverrides(t *testing.T) {
	noop := func(ctx context.Context) error { return nil }
	defs := []Definition{
		{Name: "skills", Run: noop},
		{Name: "contracts", Run: noop},
		{Name: "blueprints", Run: noop},
	}

	sched := scheduler.New(logging.NewLogger(logging.LevelError, logging.FormatText))
	cfg := &config.TasksConfig{
		Enabled:   []string{"skills", "contracts"},
		Intervals: map[string]time.Duration{"contracts": 90 * time.Second},
	}
	require.NoError(t, RegisterAll(sched, cfg, defs))

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	status := sched.Status()
	require.Len(t, status, 2, "only enabled tasks registered")
	assert.Equal(t, "skills", status[0].Name)
	assert.Equal(t, (12 * time.Hour).String(), status[0].Interval)
	assert.Equal(t, "contracts", status[1].Name)
	assert.Equal(t, (90 * time.Second).String(), status[1].Interval)
}

func TestRegisterAllRejectsUnknownTaskName(t *testing.T) {
	sched := scheduler.New(logging.NewLogger(logging.LevelError, logging.FormatText))
	cfg := &config.TasksConfig{Enabled: []string{"definitely-not-a-task"}}

	err := RegisterAll(sched, cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task name")
}
