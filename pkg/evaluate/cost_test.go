package evaluate

import (
	"testing"

	"github.com/allstar-forge/forge/pkg/contracts"
)

func TestEstimateCostProdWithCompliance(t *testing.T) {
	plan := &contracts.ProvisionPlan{
		Environment:            "prod",
		Resources:              planWithResources(4),
		ComplianceRequirements: []string{"soc2", "gdpr"},
	}

	cost := EstimateCost(plan)

	// 100 * 4 * 2.0 * 1.2 = 960.00
	if cost.Monthly != 960.00 {
		t.Fatalf("expected monthly 960.00, got %v", cost.Monthly)
	}
	if cost.Yearly != 11520.00 {
		t.Fatalf("expected yearly 11520.00, got %v", cost.Yearly)
	}
	if cost.Currency != "USD" {
		t.Fatalf("expected USD, got %s", cost.Currency)
	}
	if cost.Breakdown.EnvironmentMultiplier != 2.0 || cost.Breakdown.ComplianceMultiplier != 1.2 {
		t.Fatalf("unexpected breakdown: %+v", cost.Breakdown)
	}
}

func TestEstimateCostUnknownEnvironmentUsesDefaultMultiplier(t *testing.T) {
	plan := &contracts.ProvisionPlan{Environment: "qa", Resources: planWithResources(3)}

	cost := EstimateCost(plan)

	if cost.Monthly != 300.00 {
		t.Fatalf("expected monthly 300.00, got %v", cost.Monthly)
	}
	if cost.Breakdown.EnvironmentMultiplier != defaultEnvironmentMultiplier {
		t.Fatalf("expected default multiplier, got %v", cost.Breakdown.EnvironmentMultiplier)
	}
}

func TestEstimateCostRoundsAtOutputBoundaryOnly(t *testing.T) {
	// 100 * 1 * 1.5 * 1.3 = 195.00; 100 * 3 * 1.5 * 1.1 = 495.00;
	// pick inputs that produce a sub-cent intermediate:
	// 100 * 1 * 1.0 * 1.3 = 130.00 is exact. Use staging with 1 resource
	// and 1 standard: 100 * 1.5 * 1.1 = 165.00000000000003 pre-round.
	plan := &contracts.ProvisionPlan{
		Environment:            "staging",
		Resources:              planWithResources(1),
		ComplianceRequirements: []string{"soc2"},
	}

	cost := EstimateCost(plan)

	if cost.Monthly != 165.00 {
		t.Fatalf("expected monthly 165.00, got %v", cost.Monthly)
	}
	if cost.Yearly != 1980.00 {
		t.Fatalf("expected yearly 1980.00, got %v", cost.Yearly)
	}
}

func TestEvaluateRunsAllThree(t *testing.T) {
	plan := &contracts.ProvisionPlan{
		Environment:            "prod",
		Resources:              planWithResources(6),
		ComplianceRequirements: []string{"soc2", "nonsense"},
	}

	risk, cost, compliance := Evaluate(plan)

	if risk.Score == 0 {
		t.Fatal("expected nonzero risk score")
	}
	if cost.Monthly <= 0 {
		t.Fatal("expected positive monthly cost")
	}
	if compliance.OverallStatus != contracts.ComplianceNonCompliant {
		t.Fatalf("expected non_compliant overall, got %s", compliance.OverallStatus)
	}
}
