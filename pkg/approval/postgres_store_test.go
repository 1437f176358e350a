package approval

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allstar-forge/forge/pkg/contracts"
)

func recordColumns() []string {
	return []string{"plan_id", "snapshot", "content_hash", "created_at", "expires_at"}
}

func snapshotJSON(t *testing.T, planID string) []byte {
	t.Helper()
	data, err := json.Marshal(snapshotFor(planID))
	require.NoError(t, err)
	return data
}

func TestPostgresPark(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	record := parkedRecord(t, "plan-1", time.Now())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pending_approvals")).
		WithArgs(record.PlanID, sqlmock.AnyArg(), record.ContentHash, record.CreatedAt, record.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Park(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresParkConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	record := parkedRecord(t, "plan-1", time.Now())

	// ON CONFLICT DO NOTHING reports zero rows affected.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pending_approvals")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.Park(context.Background(), record)
	assert.ErrorIs(t, err, contracts.ErrAlreadyPending)
}

func TestPostgresResolve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Now()

	rows := sqlmock.NewRows(recordColumns()).
		AddRow("plan-1", snapshotJSON(t, "plan-1"), "sha256:abc", now, now.Add(time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM pending_approvals WHERE plan_id = $1")).
		WithArgs("plan-1").
		WillReturnRows(rows)

	decision := contracts.ApprovalDecision{Approver: "alex", Approved: true, ResolvedAt: now}
	resolved, err := store.Resolve(context.Background(), "plan-1", decision)
	require.NoError(t, err)
	assert.Equal(t, "plan-1", resolved.Record.PlanID)
	assert.Equal(t, "payments", resolved.Record.Snapshot.Project)
	assert.Equal(t, decision, resolved.Decision)
}

func TestPostgresResolveGone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM pending_approvals WHERE plan_id = $1")).
		WithArgs("plan-1").
		WillReturnRows(sqlmock.NewRows(recordColumns()))

	_, err = store.Resolve(context.Background(), "plan-1", contracts.ApprovalDecision{})
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestPostgresListPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Now()

	rows := sqlmock.NewRows(recordColumns()).
		AddRow("plan-1", snapshotJSON(t, "plan-1"), "sha256:abc", now, now.Add(time.Hour)).
		AddRow("plan-2", snapshotJSON(t, "plan-2"), "sha256:def", now.Add(time.Minute), now.Add(time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM pending_approvals ORDER BY created_at")).
		WillReturnRows(rows)

	pending, err := store.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "plan-1", pending[0].PlanID)
	assert.Equal(t, 45, pending[0].RiskScore)
}

func TestPostgresSweep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	now := time.Now()

	rows := sqlmock.NewRows(recordColumns()).
		AddRow("plan-old", snapshotJSON(t, "plan-old"), "sha256:abc", now.Add(-100*time.Hour), now.Add(-time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM pending_approvals WHERE expires_at <= $1")).
		WithArgs(now).
		WillReturnRows(rows)

	swept, err := store.Sweep(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, "plan-old", swept[0].Record.PlanID)
	assert.Equal(t, ExpiryApprover, swept[0].Decision.Approver)
}
