// Package evaluate computes the risk, cost, and compliance views of a
// provisioning plan. Every function here is pure and deterministic:
// the same plan always yields the same outputs, so evaluation can be
// replayed after a crash without side effects.
//
// The weights and thresholds below are policy, not tuning knobs. They
// are fixed at build time; changing any of them is a version bump of
// PolicyVersion.
package evaluate

import (
	"github.com/allstar-forge/forge/pkg/contracts"
)

// PolicyVersion identifies the evaluation policy tables in this build.
// Gate overlay files declare the version they were written against and
// are rejected on mismatch (see pkg/gate).
const PolicyVersion = "1.0.0"

// Risk scoring weights. Additive; the score starts at zero.
const (
	weightProdEnvironment    = 30
	weightStagingEnvironment = 10
	weightHighComplexity     = 20
	weightMediumComplexity   = 10
	weightTightBudget        = 15
	weightManyStandards      = 20
)

// Factor trigger thresholds.
const (
	highComplexityResources   = 10
	mediumComplexityResources = 5
	tightBudgetCeiling        = 1000.0
	manyStandardsCount        = 3
)

// Score-to-level thresholds for the four-level scale.
const (
	criticalScoreThreshold = 50
	highScoreThreshold     = 30
	mediumScoreThreshold   = 15
)

// Environment names with dedicated risk weights.
const (
	envProd    = "prod"
	envStaging = "staging"
)

// AssessRisk computes the additive risk score of a plan and maps it to
// the four-level scale. The factor list preserves evaluation order.
func AssessRisk(plan *contracts.ProvisionPlan) contracts.RiskAssessment {
	score := 0
	var factors []string

	switch plan.Environment {
	case envProd:
		score += weightProdEnvironment
		factors = append(factors, "Production environment")
	case envStaging:
		score += weightStagingEnvironment
		factors = append(factors, "Staging environment")
	}

	switch count := plan.ResourceCount(); {
	case count > highComplexityResources:
		score += weightHighComplexity
		factors = append(factors, "High resource complexity")
	case count > mediumComplexityResources:
		score += weightMediumComplexity
		factors = append(factors, "Medium resource complexity")
	}

	if plan.BudgetLimit != nil && *plan.BudgetLimit < tightBudgetCeiling {
		score += weightTightBudget
		factors = append(factors, "Low budget constraint")
	}

	if len(plan.ComplianceRequirements) > manyStandardsCount {
		score += weightManyStandards
		factors = append(factors, "Multiple compliance requirements")
	}

	return contracts.RiskAssessment{
		Score:   score,
		Level:   levelForScore(score),
		Factors: factors,
	}
}

func levelForScore(score int) contracts.RiskLevel {
	switch {
	case score >= criticalScoreThreshold:
		return contracts.RiskCritical
	case score >= highScoreThreshold:
		return contracts.RiskHigh
	case score >= mediumScoreThreshold:
		return contracts.RiskMedium
	default:
		return contracts.RiskLow
	}
}
