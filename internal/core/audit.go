package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "biometric.initiate", "session.refresh")
	Action string `json:"action"`

	// IdentityRef identifies who the request was for
	IdentityRef string `json:"identity_ref,omitempty"`

	OperationID string  `json:"operation_id,omitempty"`
	Purpose     Purpose `json:"purpose,omitempty"`

	// Outcome is the reported status (e.g. "completed", "manual_review")
	Outcome     string   `json:"outcome,omitempty"`
	ReasonCodes []string `json:"reason_codes,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// TokenFingerprint is a hash of the issued access token, never the token itself
	TokenFingerprint string `json:"token_fingerprint,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}

// AuditReader is implemented by auditors that keep entries around.
type AuditReader interface {
	GetRecent(limit int) ([]AuditEntry, error)
	Find(filter func(entry AuditEntry) bool, limit int) ([]AuditEntry, error)
}
