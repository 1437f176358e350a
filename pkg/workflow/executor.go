package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/allstar-forge/forge/pkg/activity"
	"github.com/allstar-forge/forge/pkg/approval"
	"github.com/allstar-forge/forge/pkg/contracts"
	"github.com/allstar-forge/forge/pkg/evaluate"
	"github.com/allstar-forge/forge/pkg/gate"
)

// Executor owns the workflow lifecycle. All state transitions and
// activity attempts go through it, and each one is persisted before
// the executor acts on the next step.
type Executor struct {
	store       ExecutionStore
	approvals   approval.Store
	policy      *gate.Policy
	planAdapter *activity.Adapter
	apply       *activity.Adapter
	retry       RetryPolicy
	approvalTTL time.Duration
	clock       func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewExecutor wires the executor's collaborators with default retry,
// clock, and sleep behavior.
func NewExecutor(store ExecutionStore, approvals approval.Store, policy *gate.Policy, planAdapter, applyAdapter *activity.Adapter) *Executor {
	return &Executor{
		store:       store,
		approvals:   approvals,
		policy:      policy,
		planAdapter: planAdapter,
		apply:       applyAdapter,
		retry:       DefaultRetryPolicy(),
		approvalTTL: 72 * time.Hour,
		clock:       time.Now,
		sleep:       sleepContext,
		logger:      slog.Default().With("component", "workflow"),
		locks:       make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Executor) WithClock(clock func() time.Time) *Executor {
	e.clock = clock
	return e
}

// WithRetryPolicy overrides the activity retry policy.
func (e *Executor) WithRetryPolicy(policy RetryPolicy) *Executor {
	e.retry = policy
	return e
}

// WithApprovalTTL overrides how long a parked plan waits before the
// sweeper denies it.
func (e *Executor) WithApprovalTTL(ttl time.Duration) *Executor {
	e.approvalTTL = ttl
	return e
}

// Submit creates the durable execution for a plan, evaluates it, and
// applies the gate. Gated plans are parked and the returned execution
// is awaiting_approval; ungated plans are returned in the evaluated
// state, ready for Execute. Submit never runs activities itself.
func (e *Executor) Submit(ctx context.Context, plan *contracts.ProvisionPlan) (*contracts.WorkflowExecution, error) {
	unlock := e.lockPlan(plan.ID)
	defer unlock()

	execution := &contracts.WorkflowExecution{
		PlanID:    plan.ID,
		Plan:      *plan,
		State:     contracts.StateCreated,
		UpdatedAt: e.clock(),
	}
	if err := e.store.Create(ctx, execution); err != nil {
		return nil, fmt.Errorf("create execution %s: %w", plan.ID, err)
	}

	risk, cost, compliance := evaluate.Evaluate(plan)
	execution.Risk = &risk
	execution.Cost = &cost
	execution.Compliance = &compliance
	if err := e.transition(ctx, execution, contracts.StateEvaluated); err != nil {
		return nil, err
	}

	if !e.policy.RequiresApproval(ctx, plan, risk, cost) {
		e.logger.InfoContext(ctx, "plan approved by policy", "plan_id", plan.ID)
		return execution, nil
	}

	record, err := approval.NewRecord(snapshotFrom(execution), e.clock(), e.approvalTTL)
	if err != nil {
		return nil, err
	}
	if err := e.approvals.Park(ctx, record); err != nil {
		return nil, fmt.Errorf("park plan %s: %w", plan.ID, err)
	}
	if err := e.transition(ctx, execution, contracts.StateAwaitingApproval); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "plan parked for approval",
		"plan_id", plan.ID, "expires_at", record.ExpiresAt)
	return execution, nil
}

func snapshotFrom(execution *contracts.WorkflowExecution) contracts.ApprovalSnapshot {
	return contracts.ApprovalSnapshot{
		PlanID:       execution.PlanID,
		Project:      execution.Plan.Project,
		Environment:  execution.Plan.Environment,
		DeclaredRisk: execution.Plan.DeclaredRisk,
		Risk:         *execution.Risk,
		Cost:         *execution.Cost,
		Compliance:   *execution.Compliance,
	}
}

// Resolve applies a human decision to a parked plan. Approval moves
// the execution to approved, ready for Execute; denial is terminal.
// The second resolver of the same plan gets contracts.ErrNotFound.
func (e *Executor) Resolve(ctx context.Context, planID, approver string, approved bool, comment string) (*contracts.WorkflowExecution, error) {
	unlock := e.lockPlan(planID)
	defer unlock()

	decision := contracts.ApprovalDecision{
		Approver:   approver,
		Approved:   approved,
		Comment:    comment,
		ResolvedAt: e.clock(),
	}
	resolved, err := e.approvals.Resolve(ctx, planID, decision)
	if err != nil {
		return nil, fmt.Errorf("resolve plan %s: %w", planID, err)
	}
	return e.foldDecision(ctx, planID, resolved.Decision)
}

// SweepApprovals denies every parked plan whose approval window has
// expired and folds the denial into each execution.
func (e *Executor) SweepApprovals(ctx context.Context) ([]*contracts.WorkflowExecution, error) {
	swept, err := e.approvals.Sweep(ctx, e.clock())
	if err != nil {
		return nil, fmt.Errorf("sweep approvals: %w", err)
	}

	var executions []*contracts.WorkflowExecution
	for _, resolved := range swept {
		unlock := e.lockPlan(resolved.Record.PlanID)
		execution, err := e.foldDecision(ctx, resolved.Record.PlanID, resolved.Decision)
		unlock()
		if err != nil {
			return executions, err
		}
		e.logger.InfoContext(ctx, "approval expired, plan denied",
			"plan_id", resolved.Record.PlanID)
		executions = append(executions, execution)
	}
	return executions, nil
}

func (e *Executor) foldDecision(ctx context.Context, planID string, decision contracts.ApprovalDecision) (*contracts.WorkflowExecution, error) {
	execution, err := e.store.Get(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", planID, err)
	}

	execution.Decision = &decision
	next := contracts.StateApproved
	if !decision.Approved {
		next = contracts.StateRejected
	}
	if err := e.transition(ctx, execution, next); err != nil {
		return nil, err
	}
	return execution, nil
}

// Execute runs the activity pipeline for a plan that has cleared the
// gate. Legal from evaluated, approved, or executing (resumption); a
// resumed execution skips activities the durable history already shows
// as succeeded.
func (e *Executor) Execute(ctx context.Context, planID string) (*contracts.WorkflowExecution, error) {
	unlock := e.lockPlan(planID)
	defer unlock()

	execution, err := e.store.Get(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", planID, err)
	}

	if execution.State != contracts.StateExecuting {
		if err := e.transition(ctx, execution, contracts.StateExecuting); err != nil {
			return nil, err
		}
	}

	planResult, err := e.runActivity(ctx, execution, e.planAdapter, activity.PlanArgs(&execution.Plan))
	if err != nil {
		return e.settle(ctx, execution, err)
	}

	applyArgs := activity.ApplyArgs(&execution.Plan, planID+":apply")
	applyResult, err := e.runActivity(ctx, execution, e.apply, applyArgs)
	if err != nil {
		return e.settle(ctx, execution, err)
	}

	execution.Result = map[string]any{
		"plan":  planResult,
		"apply": applyResult,
	}
	if err := e.transition(ctx, execution, contracts.StateCompleted); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "plan completed", "plan_id", planID)
	return execution, nil
}

// Recover resumes executions interrupted by a crash. Plans stuck in
// executing resume their pipeline; plans approved but never started
// are started; plans persisted as evaluated re-apply the gate and are
// parked or executed, whichever the crash preempted. Returns the
// recovered executions in their final states.
func (e *Executor) Recover(ctx context.Context) ([]*contracts.WorkflowExecution, error) {
	stuck, err := e.store.List(ctx,
		contracts.StateExecuting, contracts.StateApproved, contracts.StateEvaluated)
	if err != nil {
		return nil, fmt.Errorf("list recoverable executions: %w", err)
	}

	var recovered []*contracts.WorkflowExecution
	for _, execution := range stuck {
		e.logger.InfoContext(ctx, "recovering execution",
			"plan_id", execution.PlanID, "state", execution.State)

		if execution.State == contracts.StateEvaluated {
			parked, err := e.regate(ctx, execution.PlanID)
			if err != nil {
				return recovered, err
			}
			if parked != nil {
				recovered = append(recovered, parked)
				continue
			}
		}

		final, err := e.Execute(ctx, execution.PlanID)
		if err != nil {
			return recovered, err
		}
		recovered = append(recovered, final)
	}
	return recovered, nil
}

// regate re-applies the gate to a plan stranded in evaluated. Gating is
// deterministic on the stored assessments, so the recovered decision
// matches what the crashed process would have taken. Returns the parked
// execution for a gated plan, or nil when the plan should execute.
func (e *Executor) regate(ctx context.Context, planID string) (*contracts.WorkflowExecution, error) {
	unlock := e.lockPlan(planID)
	defer unlock()

	execution, err := e.store.Get(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", planID, err)
	}
	if execution.State != contracts.StateEvaluated {
		return nil, nil
	}

	if !e.policy.RequiresApproval(ctx, &execution.Plan, *execution.Risk, *execution.Cost) {
		return nil, nil
	}

	record, err := approval.NewRecord(snapshotFrom(execution), e.clock(), e.approvalTTL)
	if err != nil {
		return nil, err
	}
	// The crash may have happened after Park; the existing record wins.
	if err := e.approvals.Park(ctx, record); err != nil && !errors.Is(err, contracts.ErrAlreadyPending) {
		return nil, fmt.Errorf("park plan %s: %w", planID, err)
	}
	if err := e.transition(ctx, execution, contracts.StateAwaitingApproval); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "recovered plan parked for approval", "plan_id", planID)
	return execution, nil
}

// Status returns the durable execution for a plan.
func (e *Executor) Status(ctx context.Context, planID string) (*contracts.WorkflowExecution, error) {
	return e.store.Get(ctx, planID)
}

// runActivity drives one activity to success or exhaustion. Each
// attempt is persisted before the next begins, and an activity the
// history already shows as succeeded is never re-invoked.
func (e *Executor) runActivity(ctx context.Context, execution *contracts.WorkflowExecution, adapter *activity.Adapter, args map[string]any) (map[string]any, error) {
	if done := execution.CompletedActivity(adapter.Name()); done != nil {
		e.logger.InfoContext(ctx, "activity already completed, skipping",
			"plan_id", execution.PlanID, "activity", adapter.Name())
		return done.Result, nil
	}

	argsHash, err := activity.HashArgs(args)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for execution.Attempts(adapter.Name()) < e.retry.MaxAttempts {
		attempt := execution.Attempts(adapter.Name()) + 1
		if delay := e.retry.Backoff(execution.PlanID, adapter.Name(), attempt); delay > 0 {
			if err := e.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		started := e.clock()
		result, invokeErr := adapter.Invoke(ctx, args)
		if invokeErr != nil && ctx.Err() != nil {
			// The caller went away, the activity did not fail. Leave the
			// attempt unrecorded so the retry budget survives restarts.
			return nil, fmt.Errorf("%s interrupted: %w", adapter.Name(), ctx.Err())
		}
		invocation := contracts.ActivityInvocation{
			Activity:  adapter.Name(),
			Attempt:   attempt,
			ArgsHash:  argsHash,
			Timeout:   adapter.Timeout(),
			StartedAt: started,
			Duration:  e.clock().Sub(started),
		}

		if invokeErr == nil {
			invocation.Outcome = contracts.OutcomeSucceeded
			invocation.Result = result
			execution.History = append(execution.History, invocation)
			if err := e.checkpoint(ctx, execution); err != nil {
				return nil, err
			}
			return result, nil
		}

		invocation.Outcome = contracts.OutcomeFailed
		if activity.Classify(invokeErr) == activity.KindTimeout {
			invocation.Outcome = contracts.OutcomeTimedOut
		}
		invocation.Error = invokeErr.Error()
		execution.History = append(execution.History, invocation)
		if err := e.checkpoint(ctx, execution); err != nil {
			return nil, err
		}

		lastErr = invokeErr
		var classified *activity.Error
		if errors.As(invokeErr, &classified) && !classified.Retryable() {
			e.logger.WarnContext(ctx, "activity failed permanently",
				"plan_id", execution.PlanID, "activity", adapter.Name(),
				"kind", classified.Kind, "error", invokeErr)
			return nil, invokeErr
		}
		e.logger.WarnContext(ctx, "activity attempt failed",
			"plan_id", execution.PlanID, "activity", adapter.Name(),
			"attempt", attempt, "error", invokeErr)
	}
	return nil, fmt.Errorf("%s exhausted %d attempts: %w", adapter.Name(), e.retry.MaxAttempts, lastErr)
}

// settle decides what an activity error means for the execution. A
// cancelled caller (shutdown) leaves the plan in executing so the next
// process resumes it; a genuine activity failure is terminal, with the
// history preserved for postmortem.
func (e *Executor) settle(ctx context.Context, execution *contracts.WorkflowExecution, cause error) (*contracts.WorkflowExecution, error) {
	if ctx.Err() != nil {
		e.logger.InfoContext(ctx, "execution interrupted, will resume on recovery",
			"plan_id", execution.PlanID)
		return execution, cause
	}

	if err := e.transition(ctx, execution, contracts.StateFailed); err != nil {
		return nil, errors.Join(cause, err)
	}
	e.logger.WarnContext(ctx, "plan failed",
		"plan_id", execution.PlanID, "error", cause)
	return execution, nil
}

func (e *Executor) transition(ctx context.Context, execution *contracts.WorkflowExecution, to contracts.ExecutionState) error {
	if !contracts.CanTransition(execution.State, to) {
		return fmt.Errorf("illegal transition %s -> %s for plan %s",
			execution.State, to, execution.PlanID)
	}
	execution.State = to
	return e.checkpoint(ctx, execution)
}

func (e *Executor) checkpoint(ctx context.Context, execution *contracts.WorkflowExecution) error {
	execution.UpdatedAt = e.clock()
	if err := e.store.Update(ctx, execution); err != nil {
		return fmt.Errorf("persist execution %s: %w", execution.PlanID, err)
	}
	return nil
}

// lockPlan serializes operations on one plan without blocking others.
func (e *Executor) lockPlan(planID string) func() {
	e.mu.Lock()
	lock, ok := e.locks[planID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[planID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
