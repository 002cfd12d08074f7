package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rosilesmarcos01/bbms-sub000/internal/api/presenter"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/service"
)

type InitiatePayload struct {
	IdentityRef string `json:"identityRef" validate:"required,max=128"`
	Purpose     string `json:"purpose" validate:"omitempty,oneof=enrollment authentication"`
}

type InitiateResponse struct {
	OperationID        string       `json:"operationId"`
	ProviderHandoffURL string       `json:"providerHandoffUrl"`
	ExpiresAt          time.Time    `json:"expiresAt"`
	Purpose            core.Purpose `json:"purpose"`
}

// PollResponse is the body of every successful poll. Token fields are only set once
// the operation completed.
type PollResponse struct {
	OperationID  string                   `json:"operationId"`
	Status       service.PollStatus       `json:"status"`
	Purpose      core.Purpose             `json:"purpose,omitempty"`
	AccessToken  string                   `json:"accessToken,omitempty"`
	RefreshToken string                   `json:"refreshToken,omitempty"`
	ExpiresIn    int64                    `json:"expiresIn,omitempty"`
	TokenType    string                   `json:"tokenType,omitempty"`
	Reasons      []string                 `json:"reasons,omitempty"`
	ReasonCodes  []string                 `json:"reasonCodes,omitempty"`
	Identity     *service.IdentitySummary `json:"identity,omitempty"`
}

// handleInitiate starts a verification operation and returns where the client captures.
func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload InitiatePayload
	if err := s.decodeAndValidate(r, &payload); err != nil {
		logger.Warn().Err(err).Msg("rejected initiate payload")
		presenter.Error(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.sessions.Initiate(ctx, service.InitiateRequest{
		IdentityRef: payload.IdentityRef,
		Purpose:     core.Purpose(payload.Purpose),
	})
	if err != nil {
		presenter.Err(w, r, err, "cannot initiate verification")
		return
	}

	presenter.JSON(w, r, InitiateResponse{
		OperationID:        resp.OperationID,
		ProviderHandoffURL: resp.HandoffURL,
		ExpiresAt:          resp.ExpiresAt,
		Purpose:            resp.Purpose,
	}, http.StatusOK)
}

// handlePoll reports the status of an operation. Terminal states are reported with 200
// so clients only have to branch on the status field.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	operationID := r.PathValue("operationId")
	if operationID == "" || len(operationID) > 256 {
		presenter.Error(w, r, "invalid operation id", http.StatusBadRequest)
		return
	}

	result, err := s.sessions.Poll(r.Context(), operationID)
	if err != nil {
		presenter.Err(w, r, err, "cannot poll verification")
		return
	}

	resp := PollResponse{
		OperationID: result.OperationID,
		Status:      result.Status,
		Purpose:     result.Purpose,
		Reasons:     result.Reasons,
		ReasonCodes: result.ReasonCodes,
		Identity:    result.Identity,
	}
	if result.Tokens != nil {
		resp.AccessToken = result.Tokens.AccessToken
		resp.RefreshToken = result.Tokens.RefreshToken
		resp.ExpiresIn = result.Tokens.ExpiresIn
		resp.TokenType = result.Tokens.TokenType
		w.Header().Set("Cache-Control", "no-store")
	}
	presenter.JSON(w, r, resp, http.StatusOK)
}
