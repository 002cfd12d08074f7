package service

import (
	"time"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

// PollStatus is the status reported to a polling client.
type PollStatus string

const (
	PollPending      PollStatus = "pending"
	PollCompleted    PollStatus = "completed"
	PollFailed       PollStatus = "failed"
	PollExpired      PollStatus = "expired"
	PollManualReview PollStatus = "manual_review"

	// PollConsumed is returned for operations that already reached a terminal state.
	// The client has to initiate a new operation.
	PollConsumed PollStatus = "consumed"

	// PollNotFound is returned for operation ids that were never issued or are long gone.
	PollNotFound PollStatus = "not_found"
)

// IsTerminal reports whether polling again can change the status.
func (s PollStatus) IsTerminal() bool {
	return s != PollPending
}

type InitiateRequest struct {
	IdentityRef string
	Purpose     core.Purpose
}

type InitiateResponse struct {
	OperationID string
	HandoffURL  string
	ExpiresAt   time.Time
	Purpose     core.Purpose
}

// IdentitySummary is the minimal identity returned next to issued tokens.
type IdentitySummary struct {
	Ref         string `json:"ref"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	AccessLevel int    `json:"access_level"`
}

type PollResult struct {
	OperationID string
	Purpose     core.Purpose
	Status      PollStatus

	// Tokens is only set for PollCompleted.
	Tokens   *core.SessionTokens
	Identity *IdentitySummary

	// Reasons are human-readable, ReasonCodes machine-readable.
	Reasons     []string
	ReasonCodes []string
}

type MeResponse struct {
	Claims   *core.Claims
	Identity *core.Identity
}

func summarize(identity *core.Identity) *IdentitySummary {
	return &IdentitySummary{
		Ref:         identity.Ref,
		Email:       identity.Email,
		Role:        identity.Role,
		AccessLevel: identity.AccessLevel,
	}
}
