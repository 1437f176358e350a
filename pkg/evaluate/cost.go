package evaluate

import (
	"math"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// Cost model constants. Table-driven; any change bumps PolicyVersion.
const (
	baseUnitCost             = 100.0 // per resource per month, USD
	complianceStepMultiplier = 0.1   // added per requested standard
	monthsPerYear            = 12
	costCurrency             = "USD"
)

var environmentMultipliers = map[string]float64{
	"dev":     1.0,
	"staging": 1.5,
	"prod":    2.0,
}

const defaultEnvironmentMultiplier = 1.0

// EstimateCost projects the monthly and yearly cost of a plan.
// Intermediate math is full precision; rounding to currency precision
// happens only at the output boundary. Yearly is derived from the
// rounded monthly figure so that monthly*12 == yearly holds exactly.
func EstimateCost(plan *contracts.ProvisionPlan) contracts.CostEstimate {
	envMultiplier, ok := environmentMultipliers[plan.Environment]
	if !ok {
		envMultiplier = defaultEnvironmentMultiplier
	}
	complianceMultiplier := 1.0 + float64(len(plan.ComplianceRequirements))*complianceStepMultiplier

	monthly := roundCents(baseUnitCost * float64(plan.ResourceCount()) * envMultiplier * complianceMultiplier)
	yearly := roundCents(monthly * monthsPerYear)

	return contracts.CostEstimate{
		Monthly:  monthly,
		Yearly:   yearly,
		Currency: costCurrency,
		Breakdown: contracts.CostBreakdown{
			BaseUnitCost:          baseUnitCost,
			ResourceCount:         plan.ResourceCount(),
			EnvironmentMultiplier: envMultiplier,
			ComplianceMultiplier:  complianceMultiplier,
		},
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
