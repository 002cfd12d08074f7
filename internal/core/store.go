package core

import (
	"context"
	"time"
)

// OperationRegistry tracks in-flight verification operations.
// It must be safe for concurrent use.
type OperationRegistry interface {
	// Put stores the operation until its ExpiresAt. An existing entry
	// (or consumed marker) for the same id is replaced.
	Put(ctx context.Context, op VerificationOperation) error

	// Get returns the live operation. It fails with ErrOperationNotFound,
	// ErrOperationExpired or ErrOperationConsumed, never with a stale entry.
	Get(ctx context.Context, operationID string) (*VerificationOperation, error)

	// Take atomically removes the live operation and leaves a consumed marker
	// behind, so exactly one caller can ever take a given operation.
	// Fails like Get.
	Take(ctx context.Context, operationID string) (*VerificationOperation, error)

	// Delete removes the operation without leaving a consumed marker.
	Delete(ctx context.Context, operationID string) error

	// Sweep evicts every entry (and marker) that expired before now and
	// returns the number of evicted entries.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
