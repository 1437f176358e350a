package gate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allstar-forge/forge/pkg/contracts"
)

func TestOverlayRuleGatesMatchingPlan(t *testing.T) {
	overlay, err := NewOverlayPolicy([]Rule{
		{Name: "staging-sprawl", Expr: `plan.environment == "staging" && plan.resource_count > 3`},
	})
	require.NoError(t, err)

	plan := quietPlan()
	plan.Environment = "staging"
	plan.Resources = map[string]any{"a": 1, "b": 2, "c": 3, "d": 4}

	gated, rule, err := overlay.Evaluate(context.Background(), plan, contracts.RiskAssessment{}, contracts.CostEstimate{})
	require.NoError(t, err)
	assert.True(t, gated)
	assert.Equal(t, "staging-sprawl", rule)

	plan.Resources = map[string]any{"a": 1}
	gated, _, err = overlay.Evaluate(context.Background(), plan, contracts.RiskAssessment{}, contracts.CostEstimate{})
	require.NoError(t, err)
	assert.False(t, gated)
}

func TestOverlayCompileErrorRejectsRuleSet(t *testing.T) {
	_, err := NewOverlayPolicy([]Rule{
		{Name: "ok", Expr: `risk.score > 10`},
		{Name: "broken", Expr: `plan.environment ==`},
	})
	assert.Error(t, err)
}

func TestOverlayNonBooleanFailsClosed(t *testing.T) {
	overlay, err := NewOverlayPolicy([]Rule{{Name: "notbool", Expr: `risk.score + 1`}})
	require.NoError(t, err)

	policy := NewPolicy(overlay)
	// Evaluation failure must gate the plan.
	assert.True(t, policy.RequiresApproval(context.Background(), quietPlan(), contracts.RiskAssessment{}, contracts.CostEstimate{}))
}

func TestLoadPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gate.yaml")
	content := `version: "1.0.0"
rules:
  - name: expensive-team-change
    expr: 'cost.monthly > 750.0 && plan.team == "platform"'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	overlay, err := LoadPolicyFile(path)
	require.NoError(t, err)

	plan := quietPlan()
	plan.Team = "platform"
	gated, _, err := overlay.Evaluate(context.Background(), plan, contracts.RiskAssessment{}, contracts.CostEstimate{Monthly: 800})
	require.NoError(t, err)
	assert.True(t, gated)
}

func TestLoadPolicyFileRejectsIncompatibleVersion(t *testing.T) {
	dir := t.TempDir()

	for name, version := range map[string]string{"major": `"2.0.0"`, "missing": `""`, "garbage": `"latest"`} {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: "+version+"\nrules: []\n"), 0o600))
		_, err := LoadPolicyFile(path)
		assert.Error(t, err, "version %s must be rejected", version)
	}
}
