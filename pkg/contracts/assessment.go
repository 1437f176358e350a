package contracts

// RiskAssessment is the derived risk view of a plan. Immutable once
// computed; recomputation produces a new value.
type RiskAssessment struct {
	Score   int       `json:"score"`
	Level   RiskLevel `json:"level"`
	Factors []string  `json:"factors"`
}

// CostBreakdown records the multipliers that produced a cost estimate.
type CostBreakdown struct {
	BaseUnitCost          float64 `json:"base_unit_cost"`
	ResourceCount         int     `json:"resource_count"`
	EnvironmentMultiplier float64 `json:"environment_multiplier"`
	ComplianceMultiplier  float64 `json:"compliance_multiplier"`
}

// CostEstimate is the derived cost view of a plan. Monthly and Yearly
// are rounded to currency precision (2 decimals) at the output boundary.
type CostEstimate struct {
	Monthly   float64       `json:"monthly"`
	Yearly    float64       `json:"yearly"`
	Currency  string        `json:"currency"`
	Breakdown CostBreakdown `json:"breakdown"`
}

// ComplianceStatus is the per-standard (and aggregate) compliance state.
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "compliant"
	ComplianceNonCompliant ComplianceStatus = "non_compliant"
	ComplianceUnknown      ComplianceStatus = "unknown"
)

// StandardResult is the evaluation of a single requested compliance
// standard. Unrecognized standards are reported as unknown, never
// silently compliant.
type StandardResult struct {
	Status ComplianceStatus `json:"status"`
	Checks []string         `json:"checks,omitempty"`
}

// ComplianceResult aggregates per-standard results. OverallStatus is
// compliant only if every evaluated standard is compliant; an empty
// requirement list is vacuously compliant.
type ComplianceResult struct {
	OverallStatus ComplianceStatus          `json:"overall_status"`
	Standards     map[string]StandardResult `json:"standards"`
}
