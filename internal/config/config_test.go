package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAgentDefaults(t *testing.T) {
	for _, k := range []string{"SERVER_URL", "TIMELOG_INTERVAL_SEC", "SESSION_GOAL_SEC", "RESUME_RESETS_CLOCK", "TASK_ID"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := LoadAgent()

	assert.Equal(t, "http://127.0.0.1:5000", cfg.ServerURL)
	assert.Equal(t, 300*time.Second, cfg.TimelogInterval)
	assert.Equal(t, time.Hour, cfg.SessionGoal)
	assert.True(t, cfg.ResumeResetsClock)
	assert.Zero(t, cfg.TaskID)
}

func TestLoadAgentOverrides(t *testing.T) {
	t.Setenv("SERVER_URL", "http://backend:8080")
	t.Setenv("TIMELOG_INTERVAL_SEC", "30")
	t.Setenv("TASK_ID", "12")
	t.Setenv("SCREENSHOT_COMPRESS", "false")
	t.Setenv("SESSION_GOAL_SEC", "0")

	cfg := LoadAgent()

	assert.Equal(t, "http://backend:8080", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.TimelogInterval)
	assert.Equal(t, uint(12), cfg.TaskID)
	assert.False(t, cfg.Compress)
	assert.Equal(t, time.Hour, cfg.SessionGoal)
}

func TestLoadServerDurations(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_DURATION", "90s")
	t.Setenv("REFRESH_TOKEN_DURATION", "bogus")

	cfg := LoadServer()

	assert.Equal(t, 90*time.Second, cfg.AccessTokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenDuration)
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WT_CONFIG_PROBE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("WT_CONFIG_PROBE") })

	Load(path)

	assert.Equal(t, "from-file", os.Getenv("WT_CONFIG_PROBE"))
}
