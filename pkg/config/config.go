// Package config loads server configuration from environment
// variables, 12-factor style. Every knob has a default that boots a
// working single-node setup with no external services.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds server configuration.
type Config struct {
	Port     string
	LogLevel string

	// ApprovalDatabaseURL selects the postgres-backed approval store.
	// Empty means in-memory.
	ApprovalDatabaseURL string
	// ExecutionDBPath is the SQLite file for durable executions.
	// ":memory:" keeps them in-process.
	ExecutionDBPath string
	// AuditDBPath is the SQLite file for the audit trail. Empty
	// disables the durable audit store, leaving line logging only.
	AuditDBPath string

	// GatePolicyPath points at a CEL overlay policy file. Empty means
	// built-in gating only.
	GatePolicyPath string

	PlanTimeout  time.Duration
	ApplyTimeout time.Duration
	MaxAttempts  int
	RetryBase    time.Duration
	RetryCap     time.Duration
	RetryJitter  time.Duration

	ApprovalTTL   time.Duration
	SweepInterval time.Duration

	// RedisURL selects the shared rate limiter. Empty falls back to an
	// in-process limiter.
	RedisURL       string
	RateLimitRPS   float64
	RateLimitBurst int

	// OTLPEndpoint enables trace and metric export when set.
	OTLPEndpoint string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     envString("PORT", "8080"),
		LogLevel: envString("LOG_LEVEL", "INFO"),

		ApprovalDatabaseURL: os.Getenv("APPROVAL_DATABASE_URL"),
		ExecutionDBPath:     envString("EXECUTION_DB_PATH", "data/executions.db"),
		AuditDBPath:         os.Getenv("AUDIT_DB_PATH"),

		GatePolicyPath: os.Getenv("GATE_POLICY_PATH"),

		PlanTimeout:  envDuration("PLAN_TIMEOUT", 30*time.Second),
		ApplyTimeout: envDuration("APPLY_TIMEOUT", 60*time.Second),
		MaxAttempts:  envInt("MAX_ATTEMPTS", 3),
		RetryBase:    envDuration("RETRY_BASE", 500*time.Millisecond),
		RetryCap:     envDuration("RETRY_CAP", 10*time.Second),
		RetryJitter:  envDuration("RETRY_JITTER", 250*time.Millisecond),

		ApprovalTTL:   envDuration("APPROVAL_TTL", 72*time.Hour),
		SweepInterval: envDuration("SWEEP_INTERVAL", time.Minute),

		RedisURL:       os.Getenv("REDIS_URL"),
		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 20),

		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}
