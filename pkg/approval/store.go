// Package approval parks gated plans until a human resolves them.
//
// The pending set holds at most one record per plan. Resolution is an
// atomic observe-and-remove: of any number of concurrent resolvers for
// the same plan, exactly one wins and the rest see ErrNotFound. A plan
// whose record has been removed can never be resolved again.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/allstar-forge/forge/pkg/canonicalize"
	"github.com/allstar-forge/forge/pkg/contracts"
)

// ExpiryApprover is recorded as the approver on records resolved by
// TTL expiry rather than by a human.
const ExpiryApprover = "system:expiry"

// Store is the pending-approval set.
type Store interface {
	// Park inserts a record for a plan with no pending record.
	// Returns contracts.ErrAlreadyPending if one exists.
	Park(ctx context.Context, record contracts.ApprovalRecord) error

	// Resolve atomically removes the pending record for planID and
	// pairs it with the decision. Returns contracts.ErrNotFound if no
	// record is pending, including when a concurrent resolver won.
	Resolve(ctx context.Context, planID string, decision contracts.ApprovalDecision) (*contracts.ResolvedApproval, error)

	// ListPending returns summaries of all parked plans.
	ListPending(ctx context.Context) ([]contracts.PendingSummary, error)

	// Sweep removes every record whose ExpiresAt is at or before now
	// and returns each paired with a synthetic deny decision.
	Sweep(ctx context.Context, now time.Time) ([]contracts.ResolvedApproval, error)
}

// NewRecord builds a parked record from a gating-time snapshot. The
// content hash covers the snapshot so the approver's view can be
// verified against what the gate saw.
func NewRecord(snapshot contracts.ApprovalSnapshot, now time.Time, ttl time.Duration) (contracts.ApprovalRecord, error) {
	hash, err := canonicalize.CanonicalHash(snapshot)
	if err != nil {
		return contracts.ApprovalRecord{}, fmt.Errorf("hash approval snapshot: %w", err)
	}
	return contracts.ApprovalRecord{
		PlanID:      snapshot.PlanID,
		Snapshot:    snapshot,
		ContentHash: hash,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

// expiryDecision is the synthetic decision attached to swept records.
func expiryDecision(now time.Time) contracts.ApprovalDecision {
	return contracts.ApprovalDecision{
		Approver:   ExpiryApprover,
		Approved:   false,
		Comment:    "approval window expired",
		ResolvedAt: now,
	}
}

func summarize(r contracts.ApprovalRecord) contracts.PendingSummary {
	return contracts.PendingSummary{
		PlanID:       r.PlanID,
		Project:      r.Snapshot.Project,
		DeclaredRisk: r.Snapshot.DeclaredRisk,
		RiskScore:    r.Snapshot.Risk.Score,
		MonthlyCost:  r.Snapshot.Cost.Monthly,
		CreatedAt:    r.CreatedAt,
		ExpiresAt:    r.ExpiresAt,
	}
}
