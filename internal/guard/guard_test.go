package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/token"
)

type countingLookup struct {
	calls int
	owner int64
	err   error
}

func (l *countingLookup) lookup(_ context.Context, _ int64) (int64, error) {
	l.calls++
	return l.owner, l.err
}

var (
	member = &token.Claims{UserID: 7, Role: domain.RoleUser}
	admin  = &token.Claims{UserID: 1, Role: domain.RoleAdmin}
)

func TestIsAuthenticated(t *testing.T) {
	ctx := context.Background()

	require.ErrorIs(t, IsAuthenticated(ctx, Request{}), domain.ErrUnauthenticated)
	require.NoError(t, IsAuthenticated(ctx, Request{Viewer: member}))
}

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()

	require.ErrorIs(t, IsAdmin(ctx, Request{}), domain.ErrUnauthenticated)
	require.ErrorIs(t, IsAdmin(ctx, Request{Viewer: member}), domain.ErrForbidden)
	require.NoError(t, IsAdmin(ctx, Request{Viewer: admin}))
}

func TestIsOwner(t *testing.T) {
	ctx := context.Background()

	t.Run("owner allowed", func(t *testing.T) {
		l := &countingLookup{owner: member.UserID}
		require.NoError(t, IsOwner(l.lookup)(ctx, Request{Viewer: member, ResourceID: 3}))
		assert.Equal(t, 1, l.calls)
	})

	t.Run("other user forbidden", func(t *testing.T) {
		l := &countingLookup{owner: 99}
		err := IsOwner(l.lookup)(ctx, Request{Viewer: member, ResourceID: 3})
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("missing resource is not found, not forbidden", func(t *testing.T) {
		l := &countingLookup{err: domain.E(domain.KindNotFound, "workorder not found", nil)}
		err := IsOwner(l.lookup)(ctx, Request{Viewer: member, ResourceID: 3})
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.NotErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestChain_ShortCircuitsBeforeOwnershipLookup(t *testing.T) {
	l := &countingLookup{owner: member.UserID}
	chain := Chain(IsAuthenticated, IsOwner(l.lookup))

	err := chain(context.Background(), Request{ResourceID: 3})
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, 0, l.calls)

	require.NoError(t, chain(context.Background(), Request{Viewer: member, ResourceID: 3}))
	assert.Equal(t, 1, l.calls)
}

func TestChain_EvaluatesInOrder(t *testing.T) {
	var order []string
	record := func(name string, err error) Guard {
		return func(context.Context, Request) error {
			order = append(order, name)
			return err
		}
	}

	err := Chain(
		record("first", nil),
		record("second", domain.ErrForbidden),
		record("third", nil),
	)(context.Background(), Request{})

	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestChain_Empty(t *testing.T) {
	require.NoError(t, Chain()(context.Background(), Request{}))
}
