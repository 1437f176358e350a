package evaluate

import (
	"testing"

	"github.com/allstar-forge/forge/pkg/contracts"
)

func TestCheckComplianceKnownStandards(t *testing.T) {
	plan := &contracts.ProvisionPlan{
		ComplianceRequirements: []string{"SOC2", "gdpr", "Hipaa"},
	}

	result := CheckCompliance(plan)

	if result.OverallStatus != contracts.ComplianceCompliant {
		t.Fatalf("expected compliant overall, got %s", result.OverallStatus)
	}
	for _, name := range []string{"soc2", "gdpr", "hipaa"} {
		entry, ok := result.Standards[name]
		if !ok {
			t.Fatalf("missing standard %s", name)
		}
		if entry.Status != contracts.ComplianceCompliant {
			t.Fatalf("%s: expected compliant, got %s", name, entry.Status)
		}
		if len(entry.Checks) == 0 {
			t.Fatalf("%s: expected checklist entries", name)
		}
	}
}

func TestCheckComplianceUnknownStandardIsNeverCompliant(t *testing.T) {
	plan := &contracts.ProvisionPlan{
		ComplianceRequirements: []string{"soc2", "pci"},
	}

	result := CheckCompliance(plan)

	if result.Standards["pci"].Status != contracts.ComplianceUnknown {
		t.Fatalf("expected pci unknown, got %s", result.Standards["pci"].Status)
	}
	if result.OverallStatus != contracts.ComplianceNonCompliant {
		t.Fatalf("unknown standard must break the aggregate, got %s", result.OverallStatus)
	}
}

func TestCheckComplianceEmptyIsVacuouslyCompliant(t *testing.T) {
	result := CheckCompliance(&contracts.ProvisionPlan{})

	if result.OverallStatus != contracts.ComplianceCompliant {
		t.Fatalf("expected vacuous compliance, got %s", result.OverallStatus)
	}
	if len(result.Standards) != 0 {
		t.Fatalf("expected no standards, got %v", result.Standards)
	}
}
