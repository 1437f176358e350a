package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// PostgresStore implements Store on PostgreSQL. Park and Resolve lean
// on single-statement atomicity: ON CONFLICT DO NOTHING for the
// uniqueness race and DELETE ... RETURNING for the resolve race, so
// two nodes sharing the table get the same exactly-once guarantees as
// the in-memory store.
type PostgresStore struct {
	db *sql.DB
}

// Schema is the table this store expects.
const Schema = `
CREATE TABLE IF NOT EXISTS pending_approvals (
	plan_id      TEXT PRIMARY KEY,
	snapshot     JSONB NOT NULL,
	content_hash TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS pending_approvals_expires_at ON pending_approvals (expires_at);
`

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Park(ctx context.Context, record contracts.ApprovalRecord) error {
	snapshot, err := json.Marshal(record.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal approval snapshot: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_approvals (plan_id, snapshot, content_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (plan_id) DO NOTHING`,
		record.PlanID, snapshot, record.ContentHash, record.CreatedAt, record.ExpiresAt)
	if err != nil {
		return fmt.Errorf("park approval: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("park approval: %w", err)
	}
	if rows == 0 {
		return contracts.ErrAlreadyPending
	}
	return nil
}

func (s *PostgresStore) Resolve(ctx context.Context, planID string, decision contracts.ApprovalDecision) (*contracts.ResolvedApproval, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM pending_approvals WHERE plan_id = $1
		RETURNING plan_id, snapshot, content_hash, created_at, expires_at`,
		planID)

	record, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	return &contracts.ResolvedApproval{Record: record, Decision: decision}, nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]contracts.PendingSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT plan_id, snapshot, content_hash, created_at, expires_at
		FROM pending_approvals ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var summaries []contracts.PendingSummary
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list pending approvals: %w", err)
		}
		summaries = append(summaries, summarize(record))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	return summaries, nil
}

func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) ([]contracts.ResolvedApproval, error) {
	rows, err := s.db.QueryContext(ctx, `
		DELETE FROM pending_approvals WHERE expires_at <= $1
		RETURNING plan_id, snapshot, content_hash, created_at, expires_at`,
		now)
	if err != nil {
		return nil, fmt.Errorf("sweep approvals: %w", err)
	}
	defer rows.Close()

	var swept []contracts.ResolvedApproval
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sweep approvals: %w", err)
		}
		swept = append(swept, contracts.ResolvedApproval{
			Record:   record,
			Decision: expiryDecision(now),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sweep approvals: %w", err)
	}
	return swept, nil
}

func scanRecord(scan func(dest ...any) error) (contracts.ApprovalRecord, error) {
	var record contracts.ApprovalRecord
	var snapshot []byte
	if err := scan(&record.PlanID, &snapshot, &record.ContentHash, &record.CreatedAt, &record.ExpiresAt); err != nil {
		return contracts.ApprovalRecord{}, err
	}
	if err := json.Unmarshal(snapshot, &record.Snapshot); err != nil {
		return contracts.ApprovalRecord{}, fmt.Errorf("decode snapshot for %s: %w", record.PlanID, err)
	}
	return record, nil
}
