// Package contracts defines the shared data contracts of the provisioning
// governance core: plans, assessments, approvals, and workflow executions.
//
// Types here are plain data. Behavior lives in the packages that own the
// corresponding lifecycle stage (evaluate, gate, approval, workflow).
package contracts

import (
	"strings"
	"time"
)

// RiskLevel is the four-level risk scale used for both declared and
// computed risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether l is one of the four known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// PlanRequest is the submitter-provided description of an
// infrastructure change. It is validated before any state is created.
type PlanRequest struct {
	Project                string         `json:"project"`
	Resources              map[string]any `json:"resources"`
	RiskLevel              RiskLevel      `json:"risk_level"`
	Environment            string         `json:"environment"`
	Team                   string         `json:"team,omitempty"`
	BudgetLimit            *float64       `json:"budget_limit,omitempty"`
	ComplianceRequirements []string       `json:"compliance_requirements,omitempty"`
	// Metadata is an opaque extension map for forward-compatible
	// attributes. Evaluation logic never branches on it.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the structural invariants of a request.
// Schema-level validation (shape of Resources etc.) is separate, see
// ValidateSchema.
func (r *PlanRequest) Validate() error {
	if strings.TrimSpace(r.Project) == "" {
		return &ValidationError{Field: "project", Reason: "must not be empty"}
	}
	if len(r.Resources) == 0 {
		return &ValidationError{Field: "resources", Reason: "at least one resource is required"}
	}
	if !r.RiskLevel.Valid() {
		return &ValidationError{Field: "risk_level", Reason: "must be one of low, medium, high, critical"}
	}
	if strings.TrimSpace(r.Environment) == "" {
		return &ValidationError{Field: "environment", Reason: "must not be empty"}
	}
	if r.BudgetLimit != nil && *r.BudgetLimit < 0 {
		return &ValidationError{Field: "budget_limit", Reason: "must not be negative"}
	}
	for _, std := range r.ComplianceRequirements {
		if strings.TrimSpace(std) == "" {
			return &ValidationError{Field: "compliance_requirements", Reason: "standard names must not be empty"}
		}
	}
	return nil
}

// ProvisionPlan is a single infrastructure-change request moving through
// evaluation, gating, and execution. Immutable after creation except for
// its lifecycle status, which the workflow executor owns.
type ProvisionPlan struct {
	ID                     string         `json:"id"`
	Project                string         `json:"project"`
	Resources              map[string]any `json:"resources"`
	DeclaredRisk           RiskLevel      `json:"declared_risk"`
	Environment            string         `json:"environment"`
	Team                   string         `json:"team,omitempty"`
	BudgetLimit            *float64       `json:"budget_limit,omitempty"`
	ComplianceRequirements []string       `json:"compliance_requirements,omitempty"`
	Metadata               map[string]any `json:"metadata,omitempty"`
	CreatedBy              string         `json:"created_by"`
	CreatedAt              time.Time      `json:"created_at"`
}

// ResourceCount returns the cardinality of the requested resource set.
func (p *ProvisionPlan) ResourceCount() int {
	return len(p.Resources)
}
