package evaluate

import (
	"strings"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// standardChecklists maps recognized compliance standards to the static
// control checklist each one implies. A standard absent from this table
// is reported as unknown, never silently compliant.
var standardChecklists = map[string][]string{
	"soc2":  {"encryption_at_rest", "access_logging", "data_retention"},
	"gdpr":  {"data_protection", "consent_management", "right_to_erasure"},
	"hipaa": {"encryption_in_transit", "access_controls", "audit_logging"},
}

// CheckCompliance evaluates each requested standard against the static
// checklist table. The aggregate is compliant only when every evaluated
// entry is compliant; an empty requirement list is vacuously compliant.
func CheckCompliance(plan *contracts.ProvisionPlan) contracts.ComplianceResult {
	standards := make(map[string]contracts.StandardResult, len(plan.ComplianceRequirements))
	overall := contracts.ComplianceCompliant

	for _, requirement := range plan.ComplianceRequirements {
		name := strings.ToLower(strings.TrimSpace(requirement))
		if checks, ok := standardChecklists[name]; ok {
			standards[name] = contracts.StandardResult{
				Status: contracts.ComplianceCompliant,
				Checks: checks,
			}
			continue
		}
		standards[name] = contracts.StandardResult{Status: contracts.ComplianceUnknown}
		overall = contracts.ComplianceNonCompliant
	}

	return contracts.ComplianceResult{
		OverallStatus: overall,
		Standards:     standards,
	}
}
