package approval

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// MemoryStore is an in-memory Store for tests and single-node use.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string]contracts.ApprovalRecord
}

// NewMemoryStore creates an empty in-memory approval store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pending: make(map[string]contracts.ApprovalRecord)}
}

func (s *MemoryStore) Park(ctx context.Context, record contracts.ApprovalRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[record.PlanID]; ok {
		return contracts.ErrAlreadyPending
	}
	s.pending[record.PlanID] = record
	return nil
}

func (s *MemoryStore) Resolve(ctx context.Context, planID string, decision contracts.ApprovalDecision) (*contracts.ResolvedApproval, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.pending[planID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	delete(s.pending, planID)
	return &contracts.ResolvedApproval{Record: record, Decision: decision}, nil
}

func (s *MemoryStore) ListPending(ctx context.Context) ([]contracts.PendingSummary, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]contracts.PendingSummary, 0, len(s.pending))
	for _, record := range s.pending {
		summaries = append(summaries, summarize(record))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) ([]contracts.ResolvedApproval, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var swept []contracts.ResolvedApproval
	for planID, record := range s.pending {
		if record.ExpiresAt.After(now) {
			continue
		}
		delete(s.pending, planID)
		swept = append(swept, contracts.ResolvedApproval{
			Record:   record,
			Decision: expiryDecision(now),
		})
	}
	return swept, nil
}
