package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// Activity names as recorded in execution history.
const (
	PlanActivity  = "terraform_plan"
	ApplyActivity = "terraform_apply"
)

// Default per-attempt deadlines.
const (
	DefaultPlanTimeout  = 30 * time.Second
	DefaultApplyTimeout = 60 * time.Second
)

// NewPlanAdapter builds the read-only planning adapter. Planning never
// mutates infrastructure, so replaying it after a crash is safe even
// without the history guard.
func NewPlanAdapter(runner Runner, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultPlanTimeout
	}
	return NewAdapter(PlanActivity, timeout, runner)
}

// NewApplyAdapter builds the mutating apply adapter. Apply arguments
// always carry an idempotency key so a retried or replayed apply can
// be deduplicated by the runner.
func NewApplyAdapter(runner Runner, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultApplyTimeout
	}
	return NewAdapter(ApplyActivity, timeout, runner)
}

// PlanArgs builds the argument set for the planning activity.
func PlanArgs(plan *contracts.ProvisionPlan) map[string]any {
	return map[string]any{
		"plan_id":     plan.ID,
		"project":     plan.Project,
		"environment": plan.Environment,
		"resources":   plan.Resources,
	}
}

// ApplyArgs builds the argument set for the apply activity. The
// idempotency key is stable per plan so every attempt of the same
// apply carries the same key.
func ApplyArgs(plan *contracts.ProvisionPlan, idempotencyKey string) map[string]any {
	args := PlanArgs(plan)
	args["idempotency_key"] = idempotencyKey
	return args
}

// StubRunner simulates a terraform backend for local runs and tests.
// Plan reports the number of pending changes; apply records the
// idempotency key and returns the same result for a repeated key.
type StubRunner struct {
	mu      sync.Mutex
	applied map[string]map[string]any
}

// NewStubRunner creates an empty stub backend.
func NewStubRunner() *StubRunner {
	return &StubRunner{applied: make(map[string]map[string]any)}
}

func (r *StubRunner) Run(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch operation {
	case PlanActivity:
		changes := 0
		if resources, ok := args["resources"].(map[string]any); ok {
			changes = len(resources)
		}
		return map[string]any{"changes": changes}, nil

	case ApplyActivity:
		key, _ := args["idempotency_key"].(string)
		if key == "" {
			return nil, Rejected(operation, fmt.Errorf("missing idempotency key"))
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if result, ok := r.applied[key]; ok {
			return result, nil
		}
		result := map[string]any{"applied": true}
		if resources, ok := args["resources"].(map[string]any); ok {
			result["resources"] = len(resources)
		}
		r.applied[key] = result
		return result, nil

	default:
		return nil, Rejected(operation, fmt.Errorf("unknown operation %q", operation))
	}
}

// ApplyCount reports how many distinct applies the stub has performed.
func (r *StubRunner) ApplyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applied)
}
