package evaluate

import "github.com/allstar-forge/forge/pkg/contracts"

// Advice thresholds. Recommendations are informational; they never
// affect gating.
const (
	adviceScoreThreshold   = 20
	adviceMonthlyThreshold = 500.0
)

// Recommendations derives operational advice from the evaluator
// outputs. The order is stable: risk, cost, environment, compliance.
func Recommendations(plan *contracts.ProvisionPlan, risk contracts.RiskAssessment, cost contracts.CostEstimate) []string {
	var recs []string

	if risk.Score > adviceScoreThreshold {
		recs = append(recs,
			"Consider implementing additional monitoring and alerting",
			"Review security configurations before deployment")
	}
	if cost.Monthly > adviceMonthlyThreshold {
		recs = append(recs,
			"Consider using spot instances for non-critical workloads",
			"Implement auto-scaling to optimize costs")
	}
	if plan.Environment == envProd {
		recs = append(recs,
			"Ensure backup and disaster recovery procedures are in place",
			"Implement blue-green deployment strategy")
	}
	if len(plan.ComplianceRequirements) > 0 {
		recs = append(recs,
			"Schedule compliance review after deployment",
			"Ensure audit logging is enabled for all resources")
	}

	return recs
}

// NextSteps describes what happens after gating, for the submitter.
func NextSteps(approvalRequired bool) []string {
	if approvalRequired {
		return []string{
			"Awaiting human approval",
			"Notify stakeholders of pending approval",
			"Prepare detailed deployment plan",
		}
	}
	return []string{
		"Proceed with automated provisioning",
		"Monitor deployment progress",
		"Validate resource health after deployment",
	}
}
