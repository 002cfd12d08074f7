package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

func TestStaticIdentityStore(t *testing.T) {
	ctx := context.Background()
	s := NewStaticIdentityStore([]core.Identity{
		{Ref: "user-1", Email: "a@example.com", Role: "operator", Active: true},
	})

	id, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, id.Enrolled)

	require.NoError(t, s.MarkEnrolled(ctx, "user-1"))
	id, err = s.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, id.Enrolled)

	_, err = s.Get(ctx, "user-2")
	require.ErrorIs(t, err, core.ErrIdentityNotFound)
	require.ErrorIs(t, s.MarkEnrolled(ctx, "user-2"), core.ErrIdentityNotFound)
}
