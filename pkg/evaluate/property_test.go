//go:build property
// +build property

// Property-based tests for the evaluator's pure functions.
package evaluate

import (
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/allstar-forge/forge/pkg/contracts"
)

func genPlan() gopter.Gen {
	environments := gen.OneConstOf("dev", "staging", "prod", "qa")
	return gopter.CombineGens(
		environments,
		gen.IntRange(0, 40),
		gen.IntRange(0, 6),
		gen.Float64Range(0, 10000),
		gen.Bool(),
	).Map(func(values []interface{}) *contracts.ProvisionPlan {
		env := values[0].(string)
		resources := values[1].(int)
		standards := values[2].(int)
		budget := values[3].(float64)
		hasBudget := values[4].(bool)

		known := []string{"soc2", "gdpr", "hipaa", "pci", "iso27001", "fedramp"}
		plan := &contracts.ProvisionPlan{
			Environment:            env,
			Resources:              planWithResources(resources),
			ComplianceRequirements: known[:standards],
		}
		if hasBudget {
			plan.BudgetLimit = &budget
		}
		return plan
	})
}

// Property: monthly*12 equals yearly exactly, modulo the documented
// 2-decimal output rounding.
func TestCostYearlyIsTwelveMonthly(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("yearly == round2(monthly * 12)", prop.ForAll(
		func(plan *contracts.ProvisionPlan) bool {
			cost := EstimateCost(plan)
			want := math.Round(cost.Monthly*12*100) / 100
			return cost.Yearly == want && cost.Monthly >= 0 && cost.Yearly >= 0
		},
		genPlan(),
	))

	properties.TestingRun(t)
}

// Property: evaluation is deterministic, same plan gives same outputs.
func TestEvaluateDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Evaluate(plan) == Evaluate(plan)", prop.ForAll(
		func(plan *contracts.ProvisionPlan) bool {
			r1, c1, m1 := Evaluate(plan)
			r2, c2, m2 := Evaluate(plan)
			return reflect.DeepEqual(r1, r2) && reflect.DeepEqual(c1, c2) && reflect.DeepEqual(m1, m2)
		},
		genPlan(),
	))

	properties.TestingRun(t)
}

// Property: the score is built from additive factors, so widening a
// plan (more resources) never lowers its score.
func TestRiskScoreMonotoneInResources(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("more resources never lowers the score", prop.ForAll(
		func(plan *contracts.ProvisionPlan) bool {
			before := AssessRisk(plan).Score

			wider := *plan
			wider.Resources = planWithResources(plan.ResourceCount() + 1)
			after := AssessRisk(&wider).Score

			return after >= before
		},
		genPlan(),
	))

	properties.TestingRun(t)
}
