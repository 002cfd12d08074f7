package correlation

import (
	"context"

	"github.com/rs/xid"
)

const Header = "X-Correlation-ID"

type ctxKey struct{}

// FromContext retrieves the correlation ID from the context.
func FromContext(ctx context.Context) string {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok {
		return ""
	}
	return id
}

// WithID stores the correlation ID in the context.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// New returns a fresh correlation ID.
func New() string {
	return xid.New().String()
}
