// Package service is the operation facade of the plan lifecycle. Every
// entry point applies the same envelope: rate limit, validation, audit
// record, trace span. Business behavior lives below, in the workflow
// executor.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/allstar-forge/forge/pkg/approval"
	"github.com/allstar-forge/forge/pkg/archive"
	"github.com/allstar-forge/forge/pkg/audit"
	"github.com/allstar-forge/forge/pkg/auth"
	"github.com/allstar-forge/forge/pkg/contracts"
	"github.com/allstar-forge/forge/pkg/evaluate"
	"github.com/allstar-forge/forge/pkg/observability"
	"github.com/allstar-forge/forge/pkg/workflow"
)

// ErrRateLimited reports a throttled submission.
var ErrRateLimited = errors.New("rate limited")

// SubmitResult is the outcome of a plan submission.
type SubmitResult struct {
	Execution        *contracts.WorkflowExecution `json:"execution"`
	ApprovalRequired bool                         `json:"approval_required"`
	Recommendations  []string                     `json:"recommendations"`
	NextSteps        []string                     `json:"next_steps"`
}

// Service exposes the plan lifecycle operations.
type Service struct {
	executor  *workflow.Executor
	approvals approval.Store
	auditor   audit.Logger
	archiver  *archive.Archiver
	limiter   Limiter
	obs       *observability.Provider
	logger    *slog.Logger

	sync bool
	wg   sync.WaitGroup
}

// NewService wires the facade. archiver and limiter may be nil, which
// disables archiving and throttling respectively.
func NewService(executor *workflow.Executor, approvals approval.Store, auditor audit.Logger, archiver *archive.Archiver, limiter Limiter, obs *observability.Provider) *Service {
	if auditor == nil {
		auditor = audit.NewLogger()
	}
	if obs == nil {
		obs, _ = observability.New(context.Background(), &observability.Config{Enabled: false})
	}
	return &Service{
		executor:  executor,
		approvals: approvals,
		auditor:   auditor,
		archiver:  archiver,
		limiter:   limiter,
		obs:       obs,
		logger:    slog.Default().With("component", "service"),
	}
}

// WithSynchronousExecution makes approved plans execute inline instead
// of in a background goroutine. Tests use this for determinism.
func (s *Service) WithSynchronousExecution() *Service {
	s.sync = true
	return s
}

// Wait blocks until all background executions have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// SubmitPlan validates and submits an infrastructure-change request.
// Ungated plans start executing immediately; gated plans are parked
// and the result says approval is required.
func (s *Service) SubmitPlan(ctx context.Context, req *contracts.PlanRequest) (*SubmitResult, error) {
	ctx, done := s.obs.TrackOperation(ctx, "plan.submit",
		attribute.String("project", req.Project),
		attribute.String("environment", req.Environment))
	var opErr error
	defer func() { done(opErr) }()

	actor := auth.ActorID(ctx)
	if allowed := s.allow(ctx, actor); !allowed {
		opErr = ErrRateLimited
		s.auditor.Record(ctx, "plan.submit", "plan", "", false,
			map[string]any{"error": "rate limited"})
		return nil, opErr
	}

	if err := req.Validate(); err != nil {
		opErr = err
		s.auditor.Record(ctx, "plan.submit", "plan", "", false,
			map[string]any{"error": err.Error()})
		return nil, err
	}
	if err := req.ValidateSchema(); err != nil {
		opErr = err
		s.auditor.Record(ctx, "plan.submit", "plan", "", false,
			map[string]any{"error": err.Error()})
		return nil, err
	}

	plan := &contracts.ProvisionPlan{
		ID:                     uuid.New().String(),
		Project:                req.Project,
		Resources:              req.Resources,
		DeclaredRisk:           req.RiskLevel,
		Environment:            req.Environment,
		Team:                   req.Team,
		BudgetLimit:            req.BudgetLimit,
		ComplianceRequirements: req.ComplianceRequirements,
		Metadata:               req.Metadata,
		CreatedBy:              actor,
		CreatedAt:              time.Now().UTC(),
	}

	execution, err := s.executor.Submit(ctx, plan)
	if err != nil {
		opErr = err
		s.auditor.Record(ctx, "plan.submit", "plan", plan.ID, false,
			map[string]any{"error": err.Error()})
		return nil, err
	}

	gated := execution.State == contracts.StateAwaitingApproval
	s.auditor.Record(ctx, "plan.submit", "plan", plan.ID, true, map[string]any{
		"project":           plan.Project,
		"environment":       plan.Environment,
		"risk_score":        execution.Risk.Score,
		"approval_required": gated,
	})

	if !gated {
		s.runExecution(ctx, plan.ID)
	}

	return &SubmitResult{
		Execution:        execution,
		ApprovalRequired: gated,
		Recommendations:  evaluate.Recommendations(plan, *execution.Risk, *execution.Cost),
		NextSteps:        evaluate.NextSteps(gated),
	}, nil
}

// ResolveApproval applies the calling principal's decision to a parked
// plan. Approval starts execution; denial is terminal.
func (s *Service) ResolveApproval(ctx context.Context, planID string, approved bool, comment string) (*contracts.WorkflowExecution, error) {
	ctx, done := s.obs.TrackOperation(ctx, "approval.resolve",
		attribute.String("plan_id", planID),
		attribute.Bool("approved", approved))
	var opErr error
	defer func() { done(opErr) }()

	approver := auth.ActorID(ctx)
	execution, err := s.executor.Resolve(ctx, planID, approver, approved, comment)
	if err != nil {
		opErr = err
		s.auditor.Record(ctx, "approval.resolve", "approval", planID, false,
			map[string]any{"error": err.Error()})
		return nil, err
	}

	s.auditor.Record(ctx, "approval.resolve", "approval", planID, true, map[string]any{
		"approved": approved,
		"comment":  comment,
	})

	if approved {
		s.runExecution(ctx, planID)
	} else {
		s.archiveIfTerminal(ctx, execution)
	}
	return execution, nil
}

// ListPending returns summaries of plans parked for approval.
func (s *Service) ListPending(ctx context.Context) ([]contracts.PendingSummary, error) {
	ctx, done := s.obs.TrackOperation(ctx, "approval.list")
	pending, err := s.approvals.ListPending(ctx)
	done(err)
	return pending, err
}

// GetPlanStatus returns the durable execution for a plan.
func (s *Service) GetPlanStatus(ctx context.Context, planID string) (*contracts.WorkflowExecution, error) {
	ctx, done := s.obs.TrackOperation(ctx, "plan.status",
		attribute.String("plan_id", planID))
	execution, err := s.executor.Status(ctx, planID)
	done(err)
	return execution, err
}

// SweepApprovals denies expired approvals. Run periodically.
func (s *Service) SweepApprovals(ctx context.Context) error {
	swept, err := s.executor.SweepApprovals(ctx)
	for _, execution := range swept {
		s.auditor.Record(ctx, "approval.expire", "approval", execution.PlanID, true,
			map[string]any{"approver": approval.ExpiryApprover})
		s.archiveIfTerminal(ctx, execution)
	}
	return err
}

// Recover resumes interrupted executions. Run once at startup.
func (s *Service) Recover(ctx context.Context) error {
	recovered, err := s.executor.Recover(ctx)
	for _, execution := range recovered {
		s.auditor.Record(ctx, "plan.recover", "plan", execution.PlanID, true,
			map[string]any{"state": string(execution.State)})
		s.archiveIfTerminal(ctx, execution)
	}
	return err
}

// runExecution drives a plan's pipeline, inline or in the background.
func (s *Service) runExecution(ctx context.Context, planID string) {
	run := func() {
		// Detach from the request context: the caller going away must
		// not cancel a running apply.
		execCtx := context.Background()
		if principal, err := auth.GetPrincipal(ctx); err == nil {
			execCtx = auth.WithPrincipal(execCtx, principal)
		}

		execution, err := s.executor.Execute(execCtx, planID)
		if err != nil {
			s.logger.Error("execution error", "plan_id", planID, "error", err)
			s.auditor.Record(execCtx, "plan.execute", "plan", planID, false,
				map[string]any{"error": err.Error()})
			return
		}
		s.auditor.Record(execCtx, "plan.execute", "plan", planID,
			execution.State == contracts.StateCompleted,
			map[string]any{"state": string(execution.State)})
		s.archiveIfTerminal(execCtx, execution)
	}

	if s.sync {
		run()
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		run()
	}()
}

// archiveIfTerminal exports a finished execution. Best-effort.
func (s *Service) archiveIfTerminal(ctx context.Context, execution *contracts.WorkflowExecution) {
	if s.archiver == nil || execution == nil || !execution.State.Terminal() {
		return
	}
	key, err := s.archiver.ArchiveExecution(ctx, execution)
	if err != nil {
		s.logger.Warn("archive failed", "plan_id", execution.PlanID, "error", err)
		return
	}
	s.logger.Info("execution archived", "plan_id", execution.PlanID, "key", key)
}

// allow applies the rate limiter, failing open on limiter errors so a
// limiter outage cannot block all submissions.
func (s *Service) allow(ctx context.Context, actorID string) bool {
	if s.limiter == nil {
		return true
	}
	allowed, err := s.limiter.Allow(ctx, actorID)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, failing open",
			"actor", actorID, "error", err)
		return true
	}
	if !allowed {
		s.logger.Info("submission rate limited", "actor", actorID)
	}
	return allowed
}
