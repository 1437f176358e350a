// Package gate decides whether a plan requires human approval before
// execution. The built-in policy is a logical OR across independent
// signals: any single strong signal justifies a human check, the
// signals never need to agree.
//
// Operators can tighten (never relax) the gate with CEL overlay rules,
// see OverlayPolicy.
package gate

import (
	"context"
	"log/slog"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// Gating thresholds. Named so tests can target exact boundary values.
const (
	// ReviewScoreThreshold is the computed risk score at which a human
	// review becomes mandatory.
	ReviewScoreThreshold = 30
	// MonthlyCostCeiling is the projected monthly cost above which a
	// human review becomes mandatory.
	MonthlyCostCeiling = 1000.0
	// ProductionEnvironment always requires approval.
	ProductionEnvironment = "prod"
)

// RequiresApproval applies the built-in gating policy. Pure.
func RequiresApproval(plan *contracts.ProvisionPlan, risk contracts.RiskAssessment, cost contracts.CostEstimate) bool {
	if plan.DeclaredRisk == contracts.RiskHigh || plan.DeclaredRisk == contracts.RiskCritical {
		return true
	}
	if risk.Score >= ReviewScoreThreshold {
		return true
	}
	if cost.Monthly > MonthlyCostCeiling {
		return true
	}
	if plan.Environment == ProductionEnvironment {
		return true
	}
	return false
}

// Policy combines the built-in gate with an optional overlay. The
// built-in OR can never be relaxed: overlays only add approval
// requirements.
type Policy struct {
	overlay *OverlayPolicy
	logger  *slog.Logger
}

// NewPolicy returns a Policy with an optional overlay (nil for none).
func NewPolicy(overlay *OverlayPolicy) *Policy {
	return &Policy{
		overlay: overlay,
		logger:  slog.Default().With("component", "gate"),
	}
}

// RequiresApproval evaluates the built-in policy, then the overlay.
// Overlay evaluation errors fail closed: the plan is gated.
func (p *Policy) RequiresApproval(ctx context.Context, plan *contracts.ProvisionPlan, risk contracts.RiskAssessment, cost contracts.CostEstimate) bool {
	if RequiresApproval(plan, risk, cost) {
		return true
	}
	if p.overlay == nil {
		return false
	}

	gated, rule, err := p.overlay.Evaluate(ctx, plan, risk, cost)
	if err != nil {
		p.logger.WarnContext(ctx, "overlay evaluation failed, gating plan",
			"plan_id", plan.ID, "error", err)
		return true
	}
	if gated {
		p.logger.InfoContext(ctx, "overlay rule gated plan",
			"plan_id", plan.ID, "rule", rule)
	}
	return gated
}
