package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// MemoryStore is an in-memory ExecutionStore for tests and single-node
// use. Executions are deep-copied on the way in and out so callers
// never share mutable history slices with the store.
type MemoryStore struct {
	mu         sync.Mutex
	executions map[string]*contracts.WorkflowExecution
}

// NewMemoryExecutionStore creates an empty in-memory execution store.
func NewMemoryExecutionStore() *MemoryStore {
	return &MemoryStore{executions: make(map[string]*contracts.WorkflowExecution)}
}

func (s *MemoryStore) Create(ctx context.Context, execution *contracts.WorkflowExecution) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[execution.PlanID]; ok {
		return contracts.ErrExecutionExists
	}
	copied, err := copyExecution(execution)
	if err != nil {
		return err
	}
	s.executions[execution.PlanID] = copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, planID string) (*contracts.WorkflowExecution, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.executions[planID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return copyExecution(stored)
}

func (s *MemoryStore) Update(ctx context.Context, execution *contracts.WorkflowExecution) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[execution.PlanID]; !ok {
		return contracts.ErrNotFound
	}
	copied, err := copyExecution(execution)
	if err != nil {
		return err
	}
	s.executions[execution.PlanID] = copied
	return nil
}

func (s *MemoryStore) List(ctx context.Context, states ...contracts.ExecutionState) ([]*contracts.WorkflowExecution, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*contracts.WorkflowExecution
	for _, stored := range s.executions {
		if !matchesState(stored.State, states) {
			continue
		}
		copied, err := copyExecution(stored)
		if err != nil {
			return nil, err
		}
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanID < out[j].PlanID })
	return out, nil
}

func matchesState(state contracts.ExecutionState, states []contracts.ExecutionState) bool {
	if len(states) == 0 {
		return true
	}
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func copyExecution(e *contracts.WorkflowExecution) (*contracts.WorkflowExecution, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("copy execution %s: %w", e.PlanID, err)
	}
	var copied contracts.WorkflowExecution
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("copy execution %s: %w", e.PlanID, err)
	}
	return &copied, nil
}
