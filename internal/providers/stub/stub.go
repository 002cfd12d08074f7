package stub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"github.com/rosilesmarcos01/bbms-sub000/internal/config"
	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

const Type = "stub"

var _ core.ProviderGateway = (*Provider)(nil)

// Provider is an in-process identity provider for local development and tests.
// Operations stay pending until they are scripted with Complete, Fail or Expire.
// With auto_complete_after set, operations complete on their own with BestProof.
type Provider struct {
	name string

	mu           sync.Mutex
	now          func() time.Time
	autoComplete time.Duration
	operations   map[string]*operation

	// failNext makes the next provider calls fail with the given error.
	failNext []error
}

type operation struct {
	subjectRef string
	purpose    core.Purpose
	createdAt  time.Time
	status     core.OperationStatus
	proof      *core.ProofPayload
}

type Config struct {
	// AutoCompleteAfter completes every operation successfully after the given delay.
	AutoCompleteAfter time.Duration `mapstructure:"auto_complete_after"`
}

// BestProof returns a proof that passes every check.
func BestProof() core.ProofPayload {
	return core.ProofPayload{
		IsLive:             true,
		PresentationAttack: core.AttackPass,
		FaceMatchScore:     0.99,
		ConfidenceScore:    0.99,
	}
}

// NewFromConfig creates a new Provider with the given name.
func NewFromConfig(cfg config.ProviderConfig) (*Provider, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &conf,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for stub provider '%s': %w", cfg.Name, err)
	}
	if err := decoder.Decode(cfg.Config); err != nil {
		return nil, fmt.Errorf("failed to decode stub provider '%s' config: %w", cfg.Name, err)
	}

	p := New(cfg.Name)
	p.autoComplete = conf.AutoCompleteAfter
	return p, nil
}

func New(name string) *Provider {
	if name == "" {
		name = Type
	}
	return &Provider{
		name:       name,
		now:        time.Now,
		operations: make(map[string]*operation),
	}
}

func (s *Provider) Name() string {
	return s.name
}

// SetClock overrides the time source. Used by tests.
func (s *Provider) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Provider) CreateOperation(
	ctx context.Context,
	subjectRef string,
	purpose core.Purpose,
	timeout time.Duration,
) (*core.ProviderOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := s.now()
	s.operations[id] = &operation{
		subjectRef: subjectRef,
		purpose:    purpose,
		createdAt:  now,
		status:     core.Pending("created"),
	}

	log.Ctx(ctx).Info().
		Str("provider", s.name).
		Str("operation_id", id).
		Str("subject", subjectRef).
		Msg("StubProvider CreateOperation called")

	return &core.ProviderOperation{
		ID:         id,
		HandoffURL: "stub://capture/" + id,
		ExpiresAt:  now.Add(timeout),
	}, nil
}

func (s *Provider) FetchStatus(_ context.Context, operationID string, _ core.Purpose) (core.OperationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return core.OperationStatus{}, err
	}
	op, ok := s.operations[operationID]
	if !ok {
		// same as the real provider: unknown ids look pending
		return core.Pending("unknown operation"), nil
	}
	if s.autoComplete > 0 && op.status.Kind == core.StatusPending && s.now().Sub(op.createdAt) >= s.autoComplete {
		proof := BestProof()
		op.proof = &proof
		op.status = core.Completed(core.ResultSuccess, s.now(), "auto completed")
	}
	return op.status, nil
}

func (s *Provider) FetchProof(_ context.Context, operationID string, _ core.Purpose) (*core.ProofPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.popFailure(); err != nil {
		return nil, err
	}
	op, ok := s.operations[operationID]
	if !ok || op.proof == nil {
		return nil, core.ErrProofUnavailable.Withf("stub has no proof for operation '%s'", operationID)
	}
	proof := *op.proof
	return &proof, nil
}

// Complete marks the operation as successfully completed with the given proof.
// A nil proof simulates a provider that reports success but has no proof.
func (s *Provider) Complete(operationID string, proof *core.ProofPayload) error {
	return s.update(operationID, func(op *operation, now time.Time) {
		op.status = core.Completed(core.ResultSuccess, now, "completed")
		op.proof = proof
	})
}

// CompleteWithoutMarker reports completion without a completion timestamp.
func (s *Provider) CompleteWithoutMarker(operationID string, proof *core.ProofPayload) error {
	return s.update(operationID, func(op *operation, _ time.Time) {
		op.status = core.Completed(core.ResultSuccess, time.Time{}, "completed")
		op.proof = proof
	})
}

// Fail marks the operation as completed with a failure result.
func (s *Provider) Fail(operationID string) error {
	return s.update(operationID, func(op *operation, now time.Time) {
		op.status = core.Completed(core.ResultFailure, now, "failed")
	})
}

// Expire marks the operation as expired on the provider side.
func (s *Provider) Expire(operationID string) error {
	return s.update(operationID, func(op *operation, _ time.Time) {
		op.status = core.Expired("expired")
	})
}

// FailNext queues errors returned by the next provider calls, in order.
func (s *Provider) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, errs...)
}

func (s *Provider) update(operationID string, fn func(op *operation, now time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operations[operationID]
	if !ok {
		return fmt.Errorf("unknown stub operation '%s'", operationID)
	}
	fn(op, s.now())
	return nil
}

// popFailure must be called with s.mu held.
func (s *Provider) popFailure() error {
	if len(s.failNext) == 0 {
		return nil
	}
	err := s.failNext[0]
	s.failNext = s.failNext[1:]
	return err
}
