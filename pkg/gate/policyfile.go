package gate

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/allstar-forge/forge/pkg/evaluate"
)

// PolicyFile is the on-disk overlay policy document.
type PolicyFile struct {
	// Version is the evaluator policy version the rules were written
	// against. Files written against a different major version are
	// rejected, because their thresholds may reference retired tables.
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// LoadPolicyFile reads, version-checks, and compiles an overlay policy.
func LoadPolicyFile(path string) (*OverlayPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load gate policy %q: %w", path, err)
	}

	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse gate policy %q: %w", path, err)
	}
	if err := checkPolicyVersion(file.Version); err != nil {
		return nil, fmt.Errorf("gate policy %q: %w", path, err)
	}

	return NewOverlayPolicy(file.Rules)
}

// checkPolicyVersion requires the file's declared version to be
// compatible (same major) with the built-in evaluation policy.
func checkPolicyVersion(declared string) error {
	if declared == "" {
		return fmt.Errorf("missing policy version (current is %s)", evaluate.PolicyVersion)
	}
	v, err := semver.NewVersion(declared)
	if err != nil {
		return fmt.Errorf("invalid policy version %q: %w", declared, err)
	}
	constraint, err := semver.NewConstraint("^" + evaluate.PolicyVersion)
	if err != nil {
		return fmt.Errorf("invalid policy constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("policy version %s is incompatible with %s", declared, evaluate.PolicyVersion)
	}
	return nil
}
