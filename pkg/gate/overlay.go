package gate

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/allstar-forge/forge/pkg/contracts"
)

// Rule is a single named CEL expression. An expression evaluating to
// true gates the plan.
type Rule struct {
	Name string `yaml:"name" json:"name"`
	Expr string `yaml:"expr" json:"expr"`
}

// OverlayPolicy evaluates operator-supplied CEL rules against the
// plan and the evaluator outputs. Rules are compiled once at load time.
type OverlayPolicy struct {
	names    []string
	programs []cel.Program
}

// NewOverlayPolicy compiles the rules into a reusable policy.
// A compile error in any rule rejects the whole set; a policy that
// half-loads would gate inconsistently.
func NewOverlayPolicy(rules []Rule) (*OverlayPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("plan", cel.DynType),
		cel.Variable("risk", cel.DynType),
		cel.Variable("cost", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	p := &OverlayPolicy{
		names:    make([]string, 0, len(rules)),
		programs: make([]cel.Program, 0, len(rules)),
	}
	for _, rule := range rules {
		ast, iss := env.Compile(rule.Expr)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("compile rule %q: %w", rule.Name, iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program rule %q: %w", rule.Name, err)
		}
		p.names = append(p.names, rule.Name)
		p.programs = append(p.programs, prg)
	}
	return p, nil
}

// Evaluate runs every rule and reports whether any rule gated the plan,
// along with the name of the first matching rule. A rule that errors or
// yields a non-boolean is an evaluation failure; the caller fails
// closed on it.
func (p *OverlayPolicy) Evaluate(ctx context.Context, plan *contracts.ProvisionPlan, risk contracts.RiskAssessment, cost contracts.CostEstimate) (bool, string, error) {
	input := map[string]any{
		"plan": map[string]any{
			"project":                 plan.Project,
			"environment":             plan.Environment,
			"team":                    plan.Team,
			"declared_risk":           string(plan.DeclaredRisk),
			"resource_count":          plan.ResourceCount(),
			"compliance_requirements": plan.ComplianceRequirements,
		},
		"risk": map[string]any{
			"score": risk.Score,
			"level": string(risk.Level),
		},
		"cost": map[string]any{
			"monthly":  cost.Monthly,
			"yearly":   cost.Yearly,
			"currency": cost.Currency,
		},
	}

	for i, prg := range p.programs {
		select {
		case <-ctx.Done():
			return false, "", ctx.Err()
		default:
		}

		out, _, err := prg.Eval(input)
		if err != nil {
			return false, "", fmt.Errorf("evaluate rule %q: %w", p.names[i], err)
		}
		gated, ok := out.Value().(bool)
		if !ok {
			return false, "", fmt.Errorf("rule %q yielded %T, want bool", p.names[i], out.Value())
		}
		if gated {
			return true, p.names[i], nil
		}
	}
	return false, "", nil
}
