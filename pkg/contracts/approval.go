package contracts

import "time"

// ApprovalSnapshot captures the evaluator outputs at gating time so an
// approver sees exactly what the gate saw, even if policy tables change
// while the plan is parked.
type ApprovalSnapshot struct {
	PlanID       string           `json:"plan_id"`
	Project      string           `json:"project"`
	Environment  string           `json:"environment"`
	DeclaredRisk RiskLevel        `json:"declared_risk"`
	Risk         RiskAssessment   `json:"risk"`
	Cost         CostEstimate     `json:"cost"`
	Compliance   ComplianceResult `json:"compliance"`
}

// ApprovalRecord is a plan parked for a human decision. At most one
// record exists per plan ID at any time; its presence implies the plan
// is in the awaiting_approval state.
type ApprovalRecord struct {
	PlanID      string           `json:"plan_id"`
	Snapshot    ApprovalSnapshot `json:"snapshot"`
	ContentHash string           `json:"content_hash"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

// ApprovalDecision is the immutable outcome of resolving an
// ApprovalRecord. Resolution removes the record from the pending set;
// the decision is folded into the plan's execution history.
type ApprovalDecision struct {
	Approver   string    `json:"approver"`
	Approved   bool      `json:"approved"`
	Comment    string    `json:"comment,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// ResolvedApproval pairs a removed pending record with the decision
// that resolved it.
type ResolvedApproval struct {
	Record   ApprovalRecord   `json:"record"`
	Decision ApprovalDecision `json:"decision"`
}

// PendingSummary is the list-view projection of a parked plan.
type PendingSummary struct {
	PlanID       string    `json:"plan_id"`
	Project      string    `json:"project"`
	DeclaredRisk RiskLevel `json:"declared_risk"`
	RiskScore    int       `json:"risk_score"`
	MonthlyCost  float64   `json:"monthly_cost"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}
