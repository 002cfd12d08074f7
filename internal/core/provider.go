package core

import (
	"context"
	"time"
)

// ProviderGateway is the boundary to the external biometric identity provider.
// Implementations translate every failure into the core error taxonomy;
// raw transport errors never leave the gateway.
type ProviderGateway interface {
	// Name returns the identifier of this gateway (as used in config).
	Name() string

	// CreateOperation opens a new verification operation for the subject.
	// Fails with ErrProviderUnavailable or ErrProviderRejected.
	CreateOperation(ctx context.Context, subjectRef string, purpose Purpose, timeout time.Duration) (*ProviderOperation, error)

	// FetchStatus returns the normalized status of an operation.
	FetchStatus(ctx context.Context, operationID string, purpose Purpose) (OperationStatus, error)

	// FetchProof returns the proof of a successfully completed operation.
	// Fails with ErrProofUnavailable if the provider has none.
	FetchProof(ctx context.Context, operationID string, purpose Purpose) (*ProofPayload, error)
}
