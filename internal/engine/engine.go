package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog/log"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

// Reason codes reported by the built-in checks.
const (
	ReasonLivenessFailed       = "liveness_failed"
	ReasonInjectionDetected    = "injection_detected"
	ReasonDocumentExpired      = "document_expired"
	ReasonPresentationAttack   = "presentation_attack_rejected"
	ReasonPresentationReview   = "presentation_attack_review"
	ReasonFaceMatchLow         = "face_match_below_threshold"
	ReasonConfidenceLow        = "confidence_below_threshold"
	ReasonBarcodeCheckFailed   = "barcode_check_failed"
	ReasonOCRInconsistent      = "ocr_inconsistent"
	ReasonCustomRuleEvalFailed = "custom_rule_error"
)

// check is a single built-in condition. failed reports whether the proof triggers it.
type check struct {
	code    string
	message string
	failed  func(p core.ProofPayload, policy core.Policy) bool
}

// critical checks reject on the first failure, in this order.
var criticalChecks = []check{
	{
		code:    ReasonLivenessFailed,
		message: "Liveness check failed",
		failed:  func(p core.ProofPayload, _ core.Policy) bool { return !p.IsLive },
	},
	{
		code:    ReasonInjectionDetected,
		message: "Camera injection detected",
		failed:  func(p core.ProofPayload, _ core.Policy) bool { return p.InjectionDetected },
	},
	{
		code:    ReasonDocumentExpired,
		message: "Identity document is expired",
		failed: func(p core.ProofPayload, _ core.Policy) bool {
			return p.DocumentExpired != nil && *p.DocumentExpired
		},
	},
	{
		code:    ReasonPresentationAttack,
		message: "Presentation attack detected",
		failed: func(p core.ProofPayload, _ core.Policy) bool {
			return p.PresentationAttack == core.AttackReject
		},
	},
}

// quality checks are all evaluated and reported together.
var qualityChecks = []check{
	{
		code:    ReasonPresentationReview,
		message: "Presentation attack check requires review",
		failed: func(p core.ProofPayload, _ core.Policy) bool {
			return p.PresentationAttack == core.AttackManualReview
		},
	},
	{
		code:    ReasonFaceMatchLow,
		message: "Face match score below threshold",
		failed: func(p core.ProofPayload, policy core.Policy) bool {
			// written negated so a NaN score never passes
			return !(p.FaceMatchScore >= policy.FaceMatch())
		},
	},
	{
		code:    ReasonConfidenceLow,
		message: "Confidence score below threshold",
		failed: func(p core.ProofPayload, policy core.Policy) bool {
			return !(p.ConfidenceScore >= policy.Confidence())
		},
	},
	{
		code:    ReasonBarcodeCheckFailed,
		message: "Document barcode check failed",
		failed: func(p core.ProofPayload, _ core.Policy) bool {
			return p.BarcodeCheckPassed != nil && !*p.BarcodeCheckPassed
		},
	},
	{
		code:    ReasonOCRInconsistent,
		message: "Document text is inconsistent",
		failed: func(p core.ProofPayload, _ core.Policy) bool {
			return p.OCRConsistent != nil && !*p.OCRConsistent
		},
	},
}

// Engine holds a validated policy and decides on proofs. It has no mutable state.
type Engine struct {
	policy core.Policy
}

// New creates a new Engine with the given policy. Unset thresholds use the defaults.
func New(policy core.Policy) *Engine {
	return &Engine{policy: policy}
}

func (e *Engine) Policy() core.Policy {
	return e.policy
}

// Validate maps a proof to a decision.
func (e *Engine) Validate(proof core.ProofPayload) core.ProofDecision {
	for _, c := range criticalChecks {
		if c.failed(proof, e.policy) {
			return core.ProofDecision{
				Outcome: core.OutcomeReject,
				Reasons: []core.Reason{{Code: c.code, Message: c.message}},
			}
		}
	}

	var reasons []core.Reason
	for _, c := range qualityChecks {
		if c.failed(proof, e.policy) {
			reasons = append(reasons, core.Reason{Code: c.code, Message: c.message})
		}
	}
	reasons = append(reasons, e.evaluateRules(proof)...)

	if len(reasons) > 0 {
		return core.ProofDecision{Outcome: core.OutcomeManualReview, Reasons: reasons}
	}
	return core.ProofDecision{Outcome: core.OutcomeAccept}
}

func (e *Engine) evaluateRules(proof core.ProofPayload) []core.Reason {
	var reasons []core.Reason
	for _, rule := range e.policy.Rules {
		if rule.CompiledExpr == nil {
			continue
		}
		out, err := expr.Run(rule.CompiledExpr, map[string]any{
			"proof": proof,
		})
		if err != nil {
			// a broken rule must not wave the proof through
			log.Warn().Err(err).Msgf("error evaluating review rule '%s'", rule.Name)
			reasons = append(reasons, core.Reason{
				Code:    ReasonCustomRuleEvalFailed,
				Message: fmt.Sprintf("Review rule '%s' could not be evaluated", rule.Name),
			})
			continue
		}
		if b, ok := out.(bool); ok && b {
			msg := rule.Reason
			if msg == "" {
				msg = fmt.Sprintf("Review rule '%s' triggered", rule.Name)
			}
			reasons = append(reasons, core.Reason{Code: rule.Name, Message: msg})
		}
	}
	return reasons
}
