package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// Archiver exports terminal executions as JSON documents.
type Archiver struct {
	store Store
}

// NewArchiver creates an archiver over a keyed store.
func NewArchiver(store Store) *Archiver {
	return &Archiver{store: store}
}

// Key returns the archive location of a plan's execution record.
func Key(planID string) string {
	return "executions/" + planID + ".json"
}

// ArchiveExecution writes a terminal execution to the store and
// returns its key. Non-terminal executions are refused, since their
// documents are still changing.
func (a *Archiver) ArchiveExecution(ctx context.Context, execution *contracts.WorkflowExecution) (string, error) {
	if !execution.State.Terminal() {
		return "", fmt.Errorf("execution %s is %s, not terminal", execution.PlanID, execution.State)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode execution %s: %w", execution.PlanID, err)
	}

	key := Key(execution.PlanID)
	if err := a.store.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("archive execution %s: %w", execution.PlanID, err)
	}
	return key, nil
}

// LoadExecution reads an archived execution back.
func (a *Archiver) LoadExecution(ctx context.Context, planID string) (*contracts.WorkflowExecution, error) {
	data, err := a.store.Get(ctx, Key(planID))
	if err != nil {
		return nil, err
	}
	var execution contracts.WorkflowExecution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, fmt.Errorf("decode archived execution %s: %w", planID, err)
	}
	return &execution, nil
}
