package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/allstar-forge/forge/pkg/config"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "APPROVAL_DATABASE_URL", "EXECUTION_DB_PATH",
		"PLAN_TIMEOUT", "APPLY_TIMEOUT", "MAX_ATTEMPTS", "APPROVAL_TTL",
		"REDIS_URL", "RATE_LIMIT_RPS",
	} {
		t.Setenv(key, "")
	}

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Empty(t, cfg.ApprovalDatabaseURL)
	assert.Equal(t, "data/executions.db", cfg.ExecutionDBPath)
	assert.Equal(t, 30*time.Second, cfg.PlanTimeout)
	assert.Equal(t, 60*time.Second, cfg.ApplyTimeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 72*time.Hour, cfg.ApprovalTTL)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("APPROVAL_DATABASE_URL", "postgres://forge@db:5432/forge")
	t.Setenv("PLAN_TIMEOUT", "45s")
	t.Setenv("MAX_ATTEMPTS", "5")
	t.Setenv("APPROVAL_TTL", "24h")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres://forge@db:5432/forge", cfg.ApprovalDatabaseURL)
	assert.Equal(t, 45*time.Second, cfg.PlanTimeout)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.ApprovalTTL)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

// TestLoad_RejectsGarbage verifies malformed numeric values fall back
// to defaults instead of crashing the boot.
func TestLoad_RejectsGarbage(t *testing.T) {
	t.Setenv("PLAN_TIMEOUT", "soon")
	t.Setenv("MAX_ATTEMPTS", "-2")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg := config.Load()

	assert.Equal(t, 30*time.Second, cfg.PlanTimeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
}
