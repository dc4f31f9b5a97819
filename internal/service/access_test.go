package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessGate(t *testing.T) {
	f := newFixture(t)
	const user = int64(50)

	ok, err := f.svc.HasAccess(f.ctx, user)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, staff := range []int64{adminID, modA} {
		ok, err := f.svc.HasAccess(f.ctx, staff)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	_, err = f.svc.RequestAccess(f.ctx, user, "alice")
	require.NoError(t, err)
	req := f.notifier.last(adminID)
	assert.True(t, hasButton(req.Keyboard, Action(ActionApproveAccess, "50")))
	assert.True(t, hasButton(req.Keyboard, Action(ActionRejectAccess, "50")))

	f.clock.Advance(10 * time.Minute)
	left, err := f.svc.RequestAccess(f.ctx, user, "alice")
	assert.ErrorIs(t, err, ErrCooldown)
	assert.Equal(t, 5*time.Minute, left)

	assert.ErrorIs(t, f.svc.ResolveAccess(f.ctx, modA, user, true), ErrUnauthorized)

	require.NoError(t, f.svc.ResolveAccess(f.ctx, adminID, user, false))
	assert.ErrorIs(t, f.svc.ResolveAccess(f.ctx, adminID, user, true), ErrInvalidState)

	f.clock.Advance(5 * time.Minute)
	_, err = f.svc.RequestAccess(f.ctx, user, "alice")
	require.NoError(t, err)

	require.NoError(t, f.svc.ResolveAccess(f.ctx, adminID, user, true))
	ok, err = f.svc.HasAccess(f.ctx, user)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, f.notifier.last(user).Text, "Доступ открыт")

	u, err := f.repo.GetUser(f.ctx, user)
	require.NoError(t, err)
	assert.NotNil(t, u)
}
