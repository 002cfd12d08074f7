package core

import "github.com/expr-lang/expr/vm"

const (
	DefaultFaceMatchThreshold  = 0.80
	DefaultConfidenceThreshold = 0.85
)

// Policy configures the proof decision.
type Policy struct {
	// FaceMatchThreshold is the minimum face match score. Scores below it require manual review.
	// Unset means DefaultFaceMatchThreshold, an explicit 0 disables the check.
	FaceMatchThreshold *float64 `yaml:"face_match_threshold" json:"face_match_threshold"`

	// ConfidenceThreshold is the minimum overall confidence score.
	// Unset means DefaultConfidenceThreshold, an explicit 0 disables the check.
	ConfidenceThreshold *float64 `yaml:"confidence_threshold" json:"confidence_threshold"`

	// Rules are additional manual review rules evaluated after the built-in checks.
	Rules []ReviewRule `yaml:"rules" json:"rules"`
}

// DefaultPolicy returns the policy with the default thresholds and no extra rules.
func DefaultPolicy() Policy {
	return Policy{
		FaceMatchThreshold:  Threshold(DefaultFaceMatchThreshold),
		ConfidenceThreshold: Threshold(DefaultConfidenceThreshold),
	}
}

// Threshold returns a pointer to v, for filling in Policy literals.
func Threshold(v float64) *float64 {
	return &v
}

// FaceMatch returns the effective face match threshold.
func (p Policy) FaceMatch() float64 {
	if p.FaceMatchThreshold == nil {
		return DefaultFaceMatchThreshold
	}
	return *p.FaceMatchThreshold
}

// Confidence returns the effective confidence threshold.
func (p Policy) Confidence() float64 {
	if p.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}
	return *p.ConfidenceThreshold
}

// ReviewRule flags a proof for manual review if Expr evaluates to true.
// The expression sees the proof as `proof`, e.g. `proof.ConfidenceScore < 0.9 && proof.DocumentExpired == nil`.
type ReviewRule struct {
	// Name is a human-readable identifier for logs/debugging. It is also the reason code.
	Name string `yaml:"name" json:"name"`

	Expr string `yaml:"expr" json:"expr"`

	// Reason is the message reported when the rule triggers.
	Reason string `yaml:"reason" json:"reason"`

	// CompiledExpr holds the pre-compiled form of Expr for efficient evaluation.
	CompiledExpr *vm.Program `yaml:"-" json:"-"`
}
