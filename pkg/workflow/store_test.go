package workflow

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allstar-forge/forge/pkg/contracts"
)

func storedExecution(planID string, state contracts.ExecutionState) *contracts.WorkflowExecution {
	return &contracts.WorkflowExecution{
		PlanID: planID,
		Plan: contracts.ProvisionPlan{
			ID:          planID,
			Project:     "sandbox",
			Environment: "dev",
			Resources:   map[string]any{"bucket": "standard"},
		},
		State:     state,
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func runStoreSuite(t *testing.T, store ExecutionStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, storedExecution("plan-1", contracts.StateCreated)))

		execution, err := store.Get(ctx, "plan-1")
		require.NoError(t, err)
		assert.Equal(t, contracts.StateCreated, execution.State)
		assert.Equal(t, "sandbox", execution.Plan.Project)
	})

	t.Run("duplicate create", func(t *testing.T) {
		err := store.Create(ctx, storedExecution("plan-1", contracts.StateCreated))
		assert.ErrorIs(t, err, contracts.ErrExecutionExists)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, contracts.ErrNotFound)
	})

	t.Run("update persists history", func(t *testing.T) {
		execution, err := store.Get(ctx, "plan-1")
		require.NoError(t, err)

		execution.State = contracts.StateExecuting
		execution.History = append(execution.History, contracts.ActivityInvocation{
			Activity: "terraform_plan",
			Attempt:  1,
			Outcome:  contracts.OutcomeSucceeded,
			Result:   map[string]any{"changes": float64(2)},
		})
		require.NoError(t, store.Update(ctx, execution))

		reloaded, err := store.Get(ctx, "plan-1")
		require.NoError(t, err)
		assert.Equal(t, contracts.StateExecuting, reloaded.State)
		require.Len(t, reloaded.History, 1)
		assert.Equal(t, map[string]any{"changes": float64(2)}, reloaded.History[0].Result)
	})

	t.Run("update unknown", func(t *testing.T) {
		err := store.Update(ctx, storedExecution("missing", contracts.StateEvaluated))
		assert.ErrorIs(t, err, contracts.ErrNotFound)
	})

	t.Run("list filters by state", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, storedExecution("plan-2", contracts.StateCompleted)))

		executing, err := store.List(ctx, contracts.StateExecuting, contracts.StateApproved)
		require.NoError(t, err)
		require.Len(t, executing, 1)
		assert.Equal(t, "plan-1", executing[0].PlanID)

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestMemoryExecutionStore(t *testing.T) {
	runStoreSuite(t, NewMemoryExecutionStore())
}

func TestSQLiteExecutionStore(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	runStoreSuite(t, store)
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	store := NewMemoryExecutionStore()
	ctx := context.Background()

	original := storedExecution("plan-1", contracts.StateCreated)
	require.NoError(t, store.Create(ctx, original))

	// Mutating the caller's copy must not leak into the store.
	original.State = contracts.StateFailed
	original.Plan.Project = "tampered"

	stored, err := store.Get(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, contracts.StateCreated, stored.State)
	assert.Equal(t, "sandbox", stored.Plan.Project)
}
