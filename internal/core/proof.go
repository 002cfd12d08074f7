package core

// AttackResult is the provider's presentation attack detection verdict.
type AttackResult string

const (
	AttackPass         AttackResult = "pass"
	AttackReject       AttackResult = "reject"
	AttackManualReview AttackResult = "manual_review"
)

// ProofPayload holds the verification signals the provider observed during capture.
// It is used for a single decision and never persisted.
type ProofPayload struct {
	IsLive            bool
	InjectionDetected bool
	// DocumentExpired is nil when no document was captured.
	DocumentExpired *bool

	PresentationAttack AttackResult

	// FaceMatchScore and ConfidenceScore are in [0,1].
	FaceMatchScore  float64
	ConfidenceScore float64

	BarcodeCheckPassed *bool
	OCRConsistent      *bool
}

// Outcome of a proof decision.
type Outcome string

const (
	OutcomeAccept       Outcome = "accept"
	OutcomeReject       Outcome = "reject"
	OutcomeManualReview Outcome = "manual_review"
)

// Reason is a single triggered check. Code is machine-readable, Message is shown to users.
type Reason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ProofDecision is the result of validating a ProofPayload.
type ProofDecision struct {
	Outcome Outcome  `json:"outcome"`
	Reasons []Reason `json:"reasons,omitempty"`
}

func (d ProofDecision) Messages() []string {
	out := make([]string, 0, len(d.Reasons))
	for _, r := range d.Reasons {
		out = append(out, r.Message)
	}
	return out
}

func (d ProofDecision) Codes() []string {
	out := make([]string, 0, len(d.Reasons))
	for _, r := range d.Reasons {
		out = append(out, r.Code)
	}
	return out
}

// Bool returns a pointer to b, handy for the optional proof fields.
func Bool(b bool) *bool {
	return &b
}
