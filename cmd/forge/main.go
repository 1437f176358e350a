// Command forge runs the provisioning governance server: plan
// evaluation, approval gating, and durable execution behind an HTTP
// API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/allstar-forge/forge/pkg/activity"
	"github.com/allstar-forge/forge/pkg/api"
	"github.com/allstar-forge/forge/pkg/approval"
	"github.com/allstar-forge/forge/pkg/archive"
	"github.com/allstar-forge/forge/pkg/audit"
	"github.com/allstar-forge/forge/pkg/config"
	"github.com/allstar-forge/forge/pkg/gate"
	"github.com/allstar-forge/forge/pkg/observability"
	"github.com/allstar-forge/forge/pkg/service"
	"github.com/allstar-forge/forge/pkg/workflow"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    "forge",
		ServiceVersion: "1.0.0",
		Environment:    envName(),
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        cfg.OTLPEndpoint != "",
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	approvals, cleanupApprovals, err := buildApprovalStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanupApprovals()

	executions, cleanupExecutions, err := buildExecutionStore(cfg)
	if err != nil {
		return err
	}
	defer cleanupExecutions()

	auditor, events, cleanupAudit, err := buildAuditor(cfg)
	if err != nil {
		return err
	}
	defer cleanupAudit()

	policy, err := buildGatePolicy(cfg)
	if err != nil {
		return err
	}

	runner := activity.NewStubRunner()
	executor := workflow.NewExecutor(
		executions,
		approvals,
		policy,
		activity.NewPlanAdapter(runner, cfg.PlanTimeout),
		activity.NewApplyAdapter(runner, cfg.ApplyTimeout),
	).WithRetryPolicy(workflow.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Base:        cfg.RetryBase,
		Cap:         cfg.RetryCap,
		MaxJitter:   cfg.RetryJitter,
	}).WithApprovalTTL(cfg.ApprovalTTL)

	archiveStore, err := archive.NewStoreFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("init archive store: %w", err)
	}
	archiver := archive.NewArchiver(archiveStore)

	limiter, err := buildLimiter(cfg)
	if err != nil {
		return err
	}

	svc := service.NewService(executor, approvals, auditor, archiver, limiter, obs)

	// Resume executions interrupted by the previous process.
	if err := svc.Recover(ctx); err != nil {
		slog.Warn("recovery incomplete", "error", err)
	}

	// Expired approvals are denied on a timer.
	go runSweeper(ctx, svc, cfg.SweepInterval)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(svc).WithAuditStore(events).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	svc.Wait()
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func envName() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}

func buildApprovalStore(ctx context.Context, cfg *config.Config) (approval.Store, func(), error) {
	if cfg.ApprovalDatabaseURL == "" {
		slog.Info("approval store: in-memory")
		return approval.NewMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.ApprovalDatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open approval database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping approval database: %w", err)
	}
	if _, err := db.ExecContext(ctx, approval.Schema); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate approval database: %w", err)
	}
	slog.Info("approval store: postgres")
	return approval.NewPostgresStore(db), func() { _ = db.Close() }, nil
}

func buildExecutionStore(cfg *config.Config) (workflow.ExecutionStore, func(), error) {
	path := cfg.ExecutionDBPath
	if !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create execution db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open execution database: %w", err)
	}
	store, err := workflow.NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init execution store: %w", err)
	}
	slog.Info("execution store: sqlite", "path", path)
	return store, func() { _ = db.Close() }, nil
}

func buildAuditor(cfg *config.Config) (audit.Logger, *audit.EventStore, func(), error) {
	lines := audit.NewLogger()
	if cfg.AuditDBPath == "" {
		return lines, nil, func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.AuditDBPath), 0o750); err != nil {
		return nil, nil, nil, fmt.Errorf("create audit db dir: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.AuditDBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open audit database: %w", err)
	}
	store, err := audit.NewEventStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("init audit store: %w", err)
	}
	slog.Info("audit store: sqlite", "path", cfg.AuditDBPath)
	return audit.NewStoreLogger(lines, store), store, func() { _ = db.Close() }, nil
}

func buildGatePolicy(cfg *config.Config) (*gate.Policy, error) {
	if cfg.GatePolicyPath == "" {
		return gate.NewPolicy(nil), nil
	}
	overlay, err := gate.LoadPolicyFile(cfg.GatePolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load gate policy: %w", err)
	}
	slog.Info("gate policy overlay loaded", "path", cfg.GatePolicyPath)
	return gate.NewPolicy(overlay), nil
}

func buildLimiter(cfg *config.Config) (service.Limiter, error) {
	if cfg.RedisURL == "" {
		return service.NewLocalLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), nil
	}
	limiter, err := service.NewRedisLimiter(cfg.RedisURL, cfg.RateLimitRPS, cfg.RateLimitBurst)
	if err != nil {
		return nil, fmt.Errorf("init redis limiter: %w", err)
	}
	slog.Info("rate limiter: redis")
	return limiter, nil
}

func runSweeper(ctx context.Context, svc *service.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.SweepApprovals(ctx); err != nil {
				slog.Warn("approval sweep failed", "error", err)
			}
		}
	}
}
