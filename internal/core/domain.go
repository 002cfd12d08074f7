package core

import (
	"fmt"
	"strings"
	"time"
)

// Purpose describes why a verification operation was opened.
type Purpose string

const (
	// PurposeEnrollment registers the subject's biometrics with the provider for the first time.
	PurposeEnrollment Purpose = "enrollment"
	// PurposeAuthentication verifies the subject against a previous enrollment.
	PurposeAuthentication Purpose = "authentication"
)

func (p Purpose) IsValid() bool {
	switch p {
	case PurposeEnrollment, PurposeAuthentication:
		return true
	default:
		return false
	}
}

// ParsePurpose parses a purpose string. An empty value defaults to authentication.
func ParsePurpose(s string) (Purpose, error) {
	if s == "" {
		return PurposeAuthentication, nil
	}
	p := Purpose(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown purpose '%s'", s)
	}
	return p, nil
}

// Identity is a user record from the identity directory.
type Identity struct {
	// Ref is the stable identity reference used by clients to start a verification.
	Ref string `json:"ref" yaml:"ref"`

	Email       string `json:"email" yaml:"email"`
	Role        string `json:"role" yaml:"role"`
	AccessLevel int    `json:"access_level" yaml:"access_level"`

	// Active identities may start verifications. Deactivated ones are refused.
	Active bool `json:"active" yaml:"active"`

	// Enrolled is set once an enrollment operation was accepted.
	// Authentication operations require it.
	Enrolled bool `json:"enrolled" yaml:"enrolled"`
}

// VerificationOperation is an in-flight verification tracked by the operation registry.
type VerificationOperation struct {
	// ID is the opaque operation id assigned by the provider.
	ID string `json:"operation_id"`

	// SubjectRef is the identity that initiated the operation.
	SubjectRef string `json:"subject_ref"`

	Purpose Purpose `json:"purpose"`

	// HandoffURL is where the client performs the out-of-band capture.
	HandoffURL string `json:"handoff_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the operation is past its expiry at the given time.
func (o VerificationOperation) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// ProviderOperation is what the provider returns when an operation is created.
type ProviderOperation struct {
	ID         string
	HandoffURL string
	// ExpiresAt is the provider-side expiry. Zero if the provider did not report one.
	ExpiresAt time.Time
}
