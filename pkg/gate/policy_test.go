package gate

import (
	"context"
	"testing"

	"github.com/allstar-forge/forge/pkg/contracts"
)

func quietPlan() *contracts.ProvisionPlan {
	return &contracts.ProvisionPlan{
		ID:           "plan-1",
		Project:      "sandbox",
		Environment:  "dev",
		DeclaredRisk: contracts.RiskLow,
		Resources:    map[string]any{"bucket": "standard"},
	}
}

func TestDeclaredHighRiskAlwaysGates(t *testing.T) {
	// High or critical declared risk gates regardless of every other
	// signal being quiet.
	for _, level := range []contracts.RiskLevel{contracts.RiskHigh, contracts.RiskCritical} {
		plan := quietPlan()
		plan.DeclaredRisk = level
		if !RequiresApproval(plan, contracts.RiskAssessment{Score: 0}, contracts.CostEstimate{Monthly: 1}) {
			t.Fatalf("declared %s must require approval", level)
		}
	}
}

func TestScoreThresholdBoundary(t *testing.T) {
	plan := quietPlan()
	if RequiresApproval(plan, contracts.RiskAssessment{Score: ReviewScoreThreshold - 1}, contracts.CostEstimate{}) {
		t.Fatal("score below threshold must not gate")
	}
	if !RequiresApproval(plan, contracts.RiskAssessment{Score: ReviewScoreThreshold}, contracts.CostEstimate{}) {
		t.Fatal("score at threshold must gate")
	}
}

func TestCostCeilingBoundary(t *testing.T) {
	plan := quietPlan()
	if RequiresApproval(plan, contracts.RiskAssessment{}, contracts.CostEstimate{Monthly: MonthlyCostCeiling}) {
		t.Fatal("cost at the ceiling must not gate")
	}
	if !RequiresApproval(plan, contracts.RiskAssessment{}, contracts.CostEstimate{Monthly: MonthlyCostCeiling + 0.01}) {
		t.Fatal("cost above the ceiling must gate")
	}
}

func TestProductionAlwaysGates(t *testing.T) {
	plan := quietPlan()
	plan.Environment = ProductionEnvironment
	if !RequiresApproval(plan, contracts.RiskAssessment{}, contracts.CostEstimate{}) {
		t.Fatal("production environment must gate")
	}
}

func TestQuietPlanDoesNotGate(t *testing.T) {
	if RequiresApproval(quietPlan(), contracts.RiskAssessment{Score: 0}, contracts.CostEstimate{Monthly: 200}) {
		t.Fatal("quiet dev plan must not gate")
	}
}

func TestPolicyWithoutOverlayMatchesBuiltin(t *testing.T) {
	policy := NewPolicy(nil)
	if policy.RequiresApproval(context.Background(), quietPlan(), contracts.RiskAssessment{}, contracts.CostEstimate{}) {
		t.Fatal("quiet plan gated without overlay")
	}
}
