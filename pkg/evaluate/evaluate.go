package evaluate

import (
	"sync"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// Evaluate computes the risk, cost, and compliance views of a plan.
// The three assessments are independent, so they run concurrently; the
// call returns once all three have completed.
func Evaluate(plan *contracts.ProvisionPlan) (contracts.RiskAssessment, contracts.CostEstimate, contracts.ComplianceResult) {
	var (
		risk       contracts.RiskAssessment
		cost       contracts.CostEstimate
		compliance contracts.ComplianceResult
		wg         sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		risk = AssessRisk(plan)
	}()
	go func() {
		defer wg.Done()
		cost = EstimateCost(plan)
	}()
	go func() {
		defer wg.Done()
		compliance = CheckCompliance(plan)
	}()
	wg.Wait()

	return risk, cost, compliance
}
