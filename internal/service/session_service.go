package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rosilesmarcos01/bbms-sub000/internal/audit"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
	"github.com/rosilesmarcos01/bbms-sub000/internal/correlation"
	"github.com/rosilesmarcos01/bbms-sub000/internal/engine"
	"github.com/rosilesmarcos01/bbms-sub000/internal/issuers"
	"github.com/rosilesmarcos01/bbms-sub000/internal/metrics"
)

const DefaultOperationTTL = 5 * time.Minute

const (
	reasonProviderFailure = "provider_verification_failed"
	reasonIdentityChanged = "identity_unavailable"
)

// SessionService drives verification operations from initiation to session issuance.
type SessionService struct {
	gateway       core.ProviderGateway
	registry      core.OperationRegistry
	identities    core.IdentityStore
	policyManager *engine.PolicyManager
	tokenIssuer   *issuers.TokenIssuer
	auditor       core.Auditor
	metrics       *metrics.Metrics

	operationTTL time.Duration
	now          func() time.Time
}

func NewSessionService(
	gateway core.ProviderGateway,
	registry core.OperationRegistry,
	identities core.IdentityStore,
	policyManager *engine.PolicyManager,
	tokenIssuer *issuers.TokenIssuer,
	auditor core.Auditor,
	m *metrics.Metrics,
	operationTTL time.Duration,
) *SessionService {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	if operationTTL <= 0 {
		operationTTL = DefaultOperationTTL
	}
	return &SessionService{
		gateway:       gateway,
		registry:      registry,
		identities:    identities,
		policyManager: policyManager,
		tokenIssuer:   tokenIssuer,
		auditor:       auditor,
		metrics:       m,
		operationTTL:  operationTTL,
		now:           time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SessionService) OperationTTL() time.Duration {
	return s.operationTTL
}

// Initiate opens a verification operation with the provider for the identity.
func (s *SessionService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	logger := log.Ctx(ctx)
	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", req.IdentityRef)
	})

	if req.Purpose == "" {
		req.Purpose = core.PurposeAuthentication
	}

	auditEntry := s.newAuditEntry(ctx, "biometric.initiate")
	auditEntry.IdentityRef = req.IdentityRef
	auditEntry.Purpose = req.Purpose
	defer s.writeAudit(ctx, &auditEntry)

	if !req.Purpose.IsValid() {
		auditEntry.Error = "invalid purpose"
		return nil, httpError(http.StatusBadRequest, fmt.Errorf("unknown purpose '%s'", req.Purpose))
	}

	identity, err := s.identities.Get(ctx, req.IdentityRef)
	if err != nil {
		auditEntry.Error = err.Error()
		return nil, fromCore(err)
	}
	if !identity.Active {
		auditEntry.Error = core.ErrIdentityInactive.Error()
		return nil, fromCore(core.ErrIdentityInactive)
	}
	if req.Purpose == core.PurposeAuthentication && !identity.Enrolled {
		auditEntry.Error = core.ErrNotEnrolled.Error()
		return nil, fromCore(core.ErrNotEnrolled)
	}

	var providerOp *core.ProviderOperation
	err = s.observe("create_operation", func() error {
		var callErr error
		providerOp, callErr = s.gateway.CreateOperation(ctx, identity.Ref, req.Purpose, s.operationTTL)
		return callErr
	})
	if err != nil {
		logger.Warn().Err(err).Msg("provider refused to create operation")
		auditEntry.Error = err.Error()
		return nil, fromCore(err)
	}

	now := s.now()
	op := core.VerificationOperation{
		ID:         providerOp.ID,
		SubjectRef: identity.Ref,
		Purpose:    req.Purpose,
		HandoffURL: providerOp.HandoffURL,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.operationTTL),
	}
	// never outlive the provider side operation
	if !providerOp.ExpiresAt.IsZero() && providerOp.ExpiresAt.After(now) && providerOp.ExpiresAt.Before(op.ExpiresAt) {
		op.ExpiresAt = providerOp.ExpiresAt
	}

	if err := s.registry.Put(ctx, op); err != nil {
		logger.Error().Err(err).Str("operation_id", op.ID).Msg("failed to store operation")
		auditEntry.Error = "registry error"
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("storing operation: %w", err))
	}

	logger.Info().
		Str("operation_id", op.ID).
		Str("purpose", string(op.Purpose)).
		Time("expires_at", op.ExpiresAt).
		Msg("verification operation initiated")

	s.metrics.Initiated(string(op.Purpose))
	auditEntry.OperationID = op.ID
	auditEntry.Outcome = "initiated"
	auditEntry.Success = true

	return &InitiateResponse{
		OperationID: op.ID,
		HandoffURL:  op.HandoffURL,
		ExpiresAt:   op.ExpiresAt,
		Purpose:     op.Purpose,
	}, nil
}

// Poll reports the state of an operation. The first poll that observes a successful
// completion processes the proof inline and, if it is accepted, issues the session.
// Every later poll for the same operation reports PollConsumed.
//
// Transient provider failures are returned as errors so the client retries on its
// next interval. Nothing is retried here.
func (s *SessionService) Poll(ctx context.Context, operationID string) (*PollResult, error) {
	logger := log.Ctx(ctx)
	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("operation_id", operationID)
	})

	op, err := s.registry.Get(ctx, operationID)
	if err != nil {
		if result, ok := absentResult(operationID, err); ok {
			s.metrics.Polled(string(result.Status))
			return result, nil
		}
		logger.Error().Err(err).Msg("failed to read operation")
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("reading operation: %w", err))
	}
	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", op.SubjectRef)
	})

	var status core.OperationStatus
	err = s.observe("fetch_status", func() error {
		var callErr error
		status, callErr = s.gateway.FetchStatus(ctx, op.ID, op.Purpose)
		return callErr
	})
	if err != nil {
		logger.Warn().Err(err).Msg("fetching provider status failed")
		return nil, fromCore(err)
	}

	logger.Debug().
		Str("status", string(status.Kind)).
		Str("raw", status.Raw).
		Msg("provider status")

	var result *PollResult
	switch {
	case status.IsSuccess():
		result, err = s.complete(ctx, op)
	case status.IsFailure():
		result, err = s.resolve(ctx, op, PollFailed, func(r *PollResult) {
			r.Reasons = []string{"Verification failed at the identity provider"}
			r.ReasonCodes = []string{reasonProviderFailure}
		})
	case status.Kind == core.StatusExpired:
		result, err = s.resolve(ctx, op, PollExpired, nil)
	default:
		// pending, and unknown provider states which never complete an operation
		if status.Kind == core.StatusUnknown {
			logger.Warn().Str("raw", status.Raw).Msg("unknown provider status, reporting pending")
		}
		result = &PollResult{OperationID: op.ID, Purpose: op.Purpose, Status: PollPending}
	}
	if err != nil {
		return nil, err
	}

	s.metrics.Polled(string(result.Status))
	return result, nil
}

// resolve takes the operation out of the registry and reports a terminal status without tokens.
func (s *SessionService) resolve(
	ctx context.Context,
	op *core.VerificationOperation,
	status PollStatus,
	decorate func(r *PollResult),
) (*PollResult, error) {
	if _, err := s.registry.Take(ctx, op.ID); err != nil {
		return s.lostTake(ctx, op.ID, err)
	}

	result := &PollResult{OperationID: op.ID, Purpose: op.Purpose, Status: status}
	if decorate != nil {
		decorate(result)
	}
	s.auditTerminal(ctx, op, result, "")
	return result, nil
}

// complete processes a successful provider completion. Only the caller that wins the
// Take may fetch the proof and issue tokens.
func (s *SessionService) complete(ctx context.Context, op *core.VerificationOperation) (*PollResult, error) {
	logger := log.Ctx(ctx)

	taken, err := s.registry.Take(ctx, op.ID)
	if err != nil {
		return s.lostTake(ctx, op.ID, err)
	}

	var proof *core.ProofPayload
	err = s.observe("fetch_proof", func() error {
		var callErr error
		proof, callErr = s.gateway.FetchProof(ctx, taken.ID, taken.Purpose)
		return callErr
	})
	if err != nil {
		if errors.Is(err, core.ErrProviderUnavailable) {
			// nothing was decided yet, give the operation back so the client can poll again
			if putErr := s.registry.Put(ctx, *taken); putErr != nil {
				logger.Error().Err(putErr).Msg("failed to restore operation after proof fetch failure")
			}
			logger.Warn().Err(err).Msg("fetching proof failed, operation restored")
			return nil, fromCore(err)
		}

		logger.Warn().Err(err).Msg("proof unavailable for completed operation")
		result := &PollResult{
			OperationID: taken.ID,
			Purpose:     taken.Purpose,
			Status:      PollFailed,
			Reasons:     []string{"Verification proof is unavailable"},
			ReasonCodes: []string{string(core.CodeProofUnavailable)},
		}
		s.auditTerminal(ctx, taken, result, err.Error())
		return result, nil
	}

	decision := s.policyManager.GetEngine().Validate(*proof)
	s.metrics.Decided(string(decision.Outcome))

	logger.Info().
		Str("outcome", string(decision.Outcome)).
		Strs("reasons", decision.Codes()).
		Msg("proof decision")

	result := &PollResult{
		OperationID: taken.ID,
		Purpose:     taken.Purpose,
		Reasons:     decision.Messages(),
		ReasonCodes: decision.Codes(),
	}

	switch decision.Outcome {
	case core.OutcomeReject:
		result.Status = PollFailed
		s.auditTerminal(ctx, taken, result, "")
		return result, nil
	case core.OutcomeManualReview:
		result.Status = PollManualReview
		s.auditTerminal(ctx, taken, result, "")
		return result, nil
	case core.OutcomeAccept:
	default:
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("unexpected decision outcome '%s'", decision.Outcome))
	}

	identity, err := s.identities.Get(ctx, taken.SubjectRef)
	if err == nil && !identity.Active {
		err = core.ErrIdentityInactive
	}
	if err != nil {
		logger.Warn().Err(err).Msg("identity unavailable after accepted proof")
		result.Status = PollFailed
		result.Reasons = []string{"Identity is no longer available"}
		result.ReasonCodes = []string{reasonIdentityChanged}
		s.auditTerminal(ctx, taken, result, err.Error())
		return result, nil
	}

	if taken.Purpose == core.PurposeEnrollment && !identity.Enrolled {
		if err := s.identities.MarkEnrolled(ctx, identity.Ref); err != nil {
			logger.Error().Err(err).Msg("failed to mark identity as enrolled")
		} else {
			identity.Enrolled = true
			logger.Info().Msg("identity enrolled")
		}
	}

	tokens, err := s.tokenIssuer.Issue(identity)
	if err != nil {
		logger.Error().Err(err).Msg("failed to issue session tokens")
		s.auditTerminal(ctx, taken, &PollResult{Status: PollFailed}, "token issuance failed")
		return nil, httpError(http.StatusInternalServerError, fmt.Errorf("issuing tokens: %w", err))
	}

	result.Status = PollCompleted
	result.Tokens = tokens
	result.Identity = summarize(identity)

	entry := s.terminalEntry(ctx, taken, result, "")
	entry.TokenFingerprint = audit.Fingerprint(tokens.AccessToken)
	s.writeAudit(ctx, &entry)

	logger.Info().Msg("session issued")
	return result, nil
}

// lostTake reports the outcome for a poller that lost the race for the operation.
func (s *SessionService) lostTake(ctx context.Context, operationID string, err error) (*PollResult, error) {
	if result, ok := absentResult(operationID, err); ok {
		log.Ctx(ctx).Info().Str("status", string(result.Status)).Msg("operation was resolved concurrently")
		return result, nil
	}
	log.Ctx(ctx).Error().Err(err).Msg("failed to take operation")
	return nil, httpError(http.StatusInternalServerError, fmt.Errorf("taking operation: %w", err))
}

// absentResult maps registry lookup failures to a poll status.
func absentResult(operationID string, err error) (*PollResult, bool) {
	result := &PollResult{OperationID: operationID}
	switch {
	case errors.Is(err, core.ErrOperationConsumed):
		result.Status = PollConsumed
		result.Reasons = []string{"Operation was already used, start a new verification"}
		result.ReasonCodes = []string{string(core.CodeOperationConsumed)}
	case errors.Is(err, core.ErrOperationExpired):
		result.Status = PollExpired
		result.ReasonCodes = []string{string(core.CodeOperationExpired)}
	case errors.Is(err, core.ErrOperationNotFound):
		result.Status = PollNotFound
		result.ReasonCodes = []string{string(core.CodeOperationNotFound)}
	default:
		return nil, false
	}
	return result, true
}

// Refresh exchanges a refresh token for a new session. The identity is loaded again so
// deactivated identities cannot extend their session.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*core.SessionTokens, error) {
	logger := log.Ctx(ctx)

	auditEntry := s.newAuditEntry(ctx, "session.refresh")
	defer s.writeAudit(ctx, &auditEntry)

	claims, err := s.tokenIssuer.VerifyRefresh(refreshToken)
	if err != nil {
		auditEntry.Error = err.Error()
		return nil, fromCore(err)
	}
	auditEntry.IdentityRef = claims.SubjectID
	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("sub", claims.SubjectID)
	})

	identity, err := s.identities.Get(ctx, claims.SubjectID)
	if err != nil {
		auditEntry.Error = err.Error()
		if errors.Is(err, core.ErrIdentityNotFound) {
			return nil, fromCore(core.ErrTokenInvalid.Withf("token subject no longer exists"))
		}
		return nil, fromCore(err)
	}
	if !identity.Active {
		auditEntry.Error = core.ErrIdentityInactive.Error()
		return nil, fromCore(core.ErrIdentityInactive)
	}

	tokens, err := s.tokenIssuer.Refresh(refreshToken, identity)
	if err != nil {
		auditEntry.Error = err.Error()
		return nil, fromCore(err)
	}

	auditEntry.Success = true
	auditEntry.Outcome = "refreshed"
	auditEntry.TokenFingerprint = audit.Fingerprint(tokens.AccessToken)
	logger.Info().Msg("session refreshed")
	return tokens, nil
}

// Me returns the verified claims together with the current identity record.
func (s *SessionService) Me(ctx context.Context, claims *core.Claims) (*MeResponse, error) {
	identity, err := s.identities.Get(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, core.ErrIdentityNotFound) {
			return nil, fromCore(core.ErrTokenInvalid.Withf("token subject no longer exists"))
		}
		return nil, fromCore(err)
	}
	return &MeResponse{Claims: claims, Identity: identity}, nil
}

// Sweep evicts expired operations. It is run periodically by the task manager.
func (s *SessionService) Sweep(ctx context.Context) (int, error) {
	evicted, err := s.registry.Sweep(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.Swept(evicted)
	return evicted, nil
}

// observe times a provider call and records it with its result code.
func (s *SessionService) observe(call string, fn func() error) error {
	start := time.Now()
	err := fn()

	result := "ok"
	if err != nil {
		var ce *core.Error
		if errors.As(err, &ce) {
			result = string(ce.Code)
		} else {
			result = "error"
		}
	}
	s.metrics.ProviderCall(call, result, time.Since(start))
	return err
}

func (s *SessionService) newAuditEntry(ctx context.Context, action string) core.AuditEntry {
	return core.AuditEntry{
		ID:     correlation.FromContext(ctx),
		Time:   s.now(),
		Action: action,
	}
}

func (s *SessionService) terminalEntry(ctx context.Context, op *core.VerificationOperation, result *PollResult, errMsg string) core.AuditEntry {
	entry := s.newAuditEntry(ctx, "biometric.poll")
	entry.IdentityRef = op.SubjectRef
	entry.OperationID = op.ID
	entry.Purpose = op.Purpose
	entry.Outcome = string(result.Status)
	entry.ReasonCodes = result.ReasonCodes
	entry.Success = result.Status == PollCompleted
	entry.Error = errMsg
	return entry
}

func (s *SessionService) auditTerminal(ctx context.Context, op *core.VerificationOperation, result *PollResult, errMsg string) {
	entry := s.terminalEntry(ctx, op, result, errMsg)
	s.writeAudit(ctx, &entry)
}

func (s *SessionService) writeAudit(ctx context.Context, entry *core.AuditEntry) {
	if err := s.auditor.Log(*entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("action", entry.Action).Msg("failed to write audit log entry")
	}
}
