package validation

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

// ValidatePolicy checks thresholds, compiles the review rules and fills in defaults.
// It returns the policy ready to be handed to the engine.
func ValidatePolicy(policy core.Policy) (core.Policy, error) {
	if policy.FaceMatchThreshold == nil {
		policy.FaceMatchThreshold = core.Threshold(core.DefaultFaceMatchThreshold)
	}
	if policy.ConfidenceThreshold == nil {
		policy.ConfidenceThreshold = core.Threshold(core.DefaultConfidenceThreshold)
	}
	if v := *policy.FaceMatchThreshold; v < 0 || v > 1 {
		return core.Policy{}, fmt.Errorf("face_match_threshold must be within [0,1], got %v", v)
	}
	if v := *policy.ConfidenceThreshold; v < 0 || v > 1 {
		return core.Policy{}, fmt.Errorf("confidence_threshold must be within [0,1], got %v", v)
	}

	seenNames := make(map[string]struct{})
	validRules := make([]core.ReviewRule, 0, len(policy.Rules))

	for i, rule := range policy.Rules {
		if rule.Name == "" {
			return core.Policy{}, fmt.Errorf("rule #%d missing name", i)
		}
		if _, exists := seenNames[rule.Name]; exists {
			return core.Policy{}, fmt.Errorf("rule name '%s' is not unique", rule.Name)
		}
		seenNames[rule.Name] = struct{}{}

		if rule.Expr == "" {
			return core.Policy{}, fmt.Errorf("rule '%s' missing expr", rule.Name)
		}

		// compile and validate expression against the proof shape
		out, err := expr.Compile(rule.Expr, expr.Env(map[string]any{
			"proof": core.ProofPayload{},
		}), expr.AsBool())
		if err != nil {
			return core.Policy{}, fmt.Errorf("compiling expr for rule '%s': %w", rule.Name, err)
		}
		rule.CompiledExpr = out

		validRules = append(validRules, rule)
	}
	policy.Rules = validRules

	return policy, nil
}
