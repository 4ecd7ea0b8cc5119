package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Foundation42/entrained.ai-engram/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ENGRAM_REDIS_HOST", "ENGRAM_VECTOR_DIM", "ENGRAM_RATE_LIMIT_PER_MINUTE", "ENGRAM_CONFIG_FILE",
	} {
		_ = os.Unsetenv(key)
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 768, cfg.Vector.Dimension)
	assert.Equal(t, 60, cfg.RateLimit.PerMinute)
	assert.Equal(t, 1000, cfg.RateLimit.PerHour)
	assert.True(t, cfg.Security.AuthEnabled)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("ENGRAM_REDIS_HOST", "redis.internal")
	t.Setenv("ENGRAM_VECTOR_DIM", "1536")
	t.Setenv("ENGRAM_AUTH_ENABLED", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 1536, cfg.Vector.Dimension)
	assert.False(t, cfg.Security.AuthEnabled)
}

func TestLoadAppliesYAMLOverrideForNonSecretFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engram.yaml")
	err := os.WriteFile(path, []byte(`
rate_limit:
  per_minute: 30
cleanup:
  daily_cron: "0 3 * * *"
`), 0o600)
	require.NoError(t, err)

	t.Setenv("ENGRAM_CONFIG_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.RateLimit.PerMinute)
	assert.Equal(t, "0 3 * * *", cfg.Cleanup.DailyCron)
	// Unset fields in the override leave defaults untouched.
	assert.Equal(t, 1000, cfg.RateLimit.PerHour)
}

func TestLoadReturnsErrorForMissingConfigFile(t *testing.T) {
	t.Setenv("ENGRAM_CONFIG_FILE", "/nonexistent/engram.yaml")
	_, err := config.Load()
	assert.Error(t, err)
}
