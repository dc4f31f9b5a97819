package service

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawal_Complete(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestWithdrawal(f.ctx, ownerID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	require.NoError(t, f.repo.AddBalance(f.ctx, ownerID, decimal.RequireFromString("6.5"), t0))

	w, err := f.svc.RequestWithdrawal(f.ctx, ownerID)
	require.NoError(t, err)
	assert.True(t, w.Amount.Equal(decimal.RequireFromString("6.5")))
	assert.True(t, f.balance(t, ownerID).IsZero())

	id := strconv.FormatUint(uint64(w.ID), 10)
	assert.True(t, hasButton(f.notifier.last(adminID).Keyboard, Action(ActionSendCheck, id)))

	_, err = f.svc.RequestWithdrawal(f.ctx, ownerID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = f.svc.CompleteWithdrawal(f.ctx, modA, w.ID, "https://t.me/send?start=check")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.CompleteWithdrawal(f.ctx, adminID, w.ID, "https://t.me/send?start=check")
	require.NoError(t, err)
	msg := f.notifier.last(ownerID)
	require.Len(t, msg.Keyboard, 1)
	assert.Equal(t, "https://t.me/send?start=check", msg.Keyboard[0][0].URL)

	_, err = f.svc.RejectWithdrawal(f.ctx, adminID, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, f.balance(t, ownerID).IsZero())
}

func TestWithdrawal_CompleteRejectsBadLink(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.AddBalance(f.ctx, ownerID, decimal.NewFromInt(3), t0))
	w, err := f.svc.RequestWithdrawal(f.ctx, ownerID)
	require.NoError(t, err)

	for _, link := range []string{"", "   ", "not a link", "t.me/send?start=check", "ftp://host/check", "https://"} {
		_, err = f.svc.CompleteWithdrawal(f.ctx, adminID, w.ID, link)
		assert.ErrorIs(t, err, ErrInvalidLink, link)
	}

	pending, err := f.svc.GetPendingWithdrawals(f.ctx, adminID)
	require.NoError(t, err)
	require.Len(t, pending, 1, "request must survive a bad link")

	_, err = f.svc.CompleteWithdrawal(f.ctx, adminID, w.ID, " http://t.me/check ")
	require.NoError(t, err)
	assert.Equal(t, "http://t.me/check", f.notifier.last(ownerID).Keyboard[0][0].URL)
}

func TestWithdrawal_RejectRefunds(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.AddBalance(f.ctx, ownerID, decimal.NewFromInt(4), t0))

	w, err := f.svc.RequestWithdrawal(f.ctx, ownerID)
	require.NoError(t, err)

	pending, err := f.svc.GetPendingWithdrawals(f.ctx, adminID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.svc.RejectWithdrawal(f.ctx, adminID, w.ID)
	require.NoError(t, err)
	assert.True(t, f.balance(t, ownerID).Equal(decimal.NewFromInt(4)))

	pending, err = f.svc.GetPendingWithdrawals(f.ctx, adminID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
