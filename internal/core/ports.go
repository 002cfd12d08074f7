package core

import "context"

// IdentityStore is the identity directory.
type IdentityStore interface {
	// Get returns the identity or ErrIdentityNotFound.
	Get(ctx context.Context, ref string) (*Identity, error)

	// MarkEnrolled records a successful enrollment.
	MarkEnrolled(ctx context.Context, ref string) error
}
