package evaluate

import (
	"testing"

	"github.com/allstar-forge/forge/pkg/contracts"
)

func TestRecommendationsForRiskyProdPlan(t *testing.T) {
	plan := &contracts.ProvisionPlan{
		Environment:            "prod",
		Resources:              planWithResources(8),
		ComplianceRequirements: []string{"soc2"},
	}
	risk, cost, _ := Evaluate(plan)

	recs := Recommendations(plan, risk, cost)

	// risk (score 40 > 20), cost (monthly > 500), prod, compliance: 8 entries.
	if len(recs) != 8 {
		t.Fatalf("expected 8 recommendations, got %d: %v", len(recs), recs)
	}
}

func TestRecommendationsQuietPlanHasNone(t *testing.T) {
	plan := &contracts.ProvisionPlan{Environment: "dev", Resources: planWithResources(2)}
	risk, cost, _ := Evaluate(plan)

	if recs := Recommendations(plan, risk, cost); len(recs) != 0 {
		t.Fatalf("expected no recommendations, got %v", recs)
	}
}

func TestNextSteps(t *testing.T) {
	if steps := NextSteps(true); steps[0] != "Awaiting human approval" {
		t.Fatalf("unexpected gated next steps: %v", steps)
	}
	if steps := NextSteps(false); steps[0] != "Proceed with automated provisioning" {
		t.Fatalf("unexpected ungated next steps: %v", steps)
	}
}
