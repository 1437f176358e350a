// Package workflow runs plans through their durable execution
// lifecycle. The executor persists every state transition and activity
// attempt before acting on it, so a crashed node can be recovered by
// replaying the stored execution instead of re-running side effects.
package workflow

import (
	"context"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// ExecutionStore persists workflow executions. Implementations must
// make Update durable before returning; the executor treats a returned
// Update as a committed checkpoint.
type ExecutionStore interface {
	// Create inserts a new execution. Returns
	// contracts.ErrExecutionExists if the plan already has one.
	Create(ctx context.Context, execution *contracts.WorkflowExecution) error

	// Get returns the execution for planID, or contracts.ErrNotFound.
	Get(ctx context.Context, planID string) (*contracts.WorkflowExecution, error)

	// Update overwrites the stored execution.
	Update(ctx context.Context, execution *contracts.WorkflowExecution) error

	// List returns executions currently in any of the given states, or
	// all executions when states is empty.
	List(ctx context.Context, states ...contracts.ExecutionState) ([]*contracts.WorkflowExecution, error)
}
