package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// SQLiteStore is a durable ExecutionStore on SQLite. The execution
// document is stored as a JSON blob with the state and timestamp
// lifted into columns for recovery queries.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database handle and runs migrations.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS executions (
		plan_id    TEXT PRIMARY KEY,
		state      TEXT NOT NULL,
		document   JSON NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS executions_state ON executions (state);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("migrate executions: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, execution *contracts.WorkflowExecution) error {
	document, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("encode execution %s: %w", execution.PlanID, err)
	}

	query := `INSERT INTO executions (plan_id, state, document, updated_at)
		VALUES (?, ?, ?, ?) ON CONFLICT (plan_id) DO NOTHING`
	result, err := s.db.ExecContext(ctx, query,
		execution.PlanID, string(execution.State), string(document),
		execution.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create execution %s: %w", execution.PlanID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create execution %s: %w", execution.PlanID, err)
	}
	if rows == 0 {
		return contracts.ErrExecutionExists
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, planID string) (*contracts.WorkflowExecution, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT document FROM executions WHERE plan_id = ?", planID)

	var document string
	if err := row.Scan(&document); err != nil {
		if err == sql.ErrNoRows {
			return nil, contracts.ErrNotFound
		}
		return nil, fmt.Errorf("get execution %s: %w", planID, err)
	}
	return decodeExecution(planID, document)
}

func (s *SQLiteStore) Update(ctx context.Context, execution *contracts.WorkflowExecution) error {
	document, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("encode execution %s: %w", execution.PlanID, err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE executions SET state = ?, document = ?, updated_at = ? WHERE plan_id = ?",
		string(execution.State), string(document),
		execution.UpdatedAt.UTC().Format(time.RFC3339Nano), execution.PlanID)
	if err != nil {
		return fmt.Errorf("update execution %s: %w", execution.PlanID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update execution %s: %w", execution.PlanID, err)
	}
	if rows == 0 {
		return contracts.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, states ...contracts.ExecutionState) ([]*contracts.WorkflowExecution, error) {
	query := "SELECT plan_id, document FROM executions"
	args := make([]any, 0, len(states))
	if len(states) > 0 {
		placeholders := make([]string, len(states))
		for i, state := range states {
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		query += " WHERE state IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY plan_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*contracts.WorkflowExecution
	for rows.Next() {
		var planID, document string
		if err := rows.Scan(&planID, &document); err != nil {
			return nil, fmt.Errorf("list executions: %w", err)
		}
		execution, err := decodeExecution(planID, document)
		if err != nil {
			return nil, err
		}
		out = append(out, execution)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return out, nil
}

func decodeExecution(planID, document string) (*contracts.WorkflowExecution, error) {
	var execution contracts.WorkflowExecution
	if err := json.Unmarshal([]byte(document), &execution); err != nil {
		return nil, fmt.Errorf("decode execution %s: %w", planID, err)
	}
	return &execution, nil
}
