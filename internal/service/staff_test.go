package service

import (
	"testing"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerators(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddModerator(f.ctx, modA, "300")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.AddModerator(f.ctx, adminID, "abc")
	assert.Error(t, err)

	id, err := f.svc.AddModerator(f.ctx, adminID, " 300 ")
	require.NoError(t, err)
	assert.Equal(t, int64(300), id)
	assert.NotEmpty(t, f.notifier.to(300))

	list, err := f.svc.ListModerators(f.ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, []int64{modA, modB, 300}, list)

	_, err = f.svc.RemoveModerator(f.ctx, adminID, "300")
	require.NoError(t, err)
	_, err = f.svc.RemoveModerator(f.ctx, adminID, "300")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := f.svc.CanModerate(f.ctx, 300)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoredAdmins(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.AddPersonal(f.ctx, 2, models.PersonalAdmin))

	ok, err := f.svc.IsAdmin(f.ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := f.svc.AdminIDs(f.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestSettingsValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdatePrice(f.ctx, adminID, "0")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.UpdatePrice(f.ctx, adminID, "-1")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.UpdateHoldTime(f.ctx, adminID, "x")
	assert.ErrorIs(t, err, ErrInvalidHoldTime)
	_, err = f.svc.UpdateHoldTime(f.ctx, ownerID, "7")
	assert.ErrorIs(t, err, ErrUnauthorized)

	settings, err := f.svc.GetSettings(f.ctx)
	require.NoError(t, err)
	assert.True(t, settings.Price.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 5, settings.HoldTime)
}

func TestProfile_ClampsNegativeBalance(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.AddBalance(f.ctx, ownerID, decimal.NewFromInt(-3), t0))
	f.submit(t, ownerID, "89991234561\n89991234562")

	p, err := f.svc.Profile(f.ctx, ownerID)
	require.NoError(t, err)
	assert.True(t, p.User.Balance.IsZero())
	assert.True(t, f.balance(t, ownerID).IsZero())
	assert.Equal(t, 2, p.ActiveNumbers)
	assert.False(t, p.IsAdmin)
	assert.Nil(t, p.PendingWithdrawal)
}

func TestAdminStatsAndViews(t *testing.T) {
	f := newFixture(t)
	f.submit(t, ownerID, "89991234561")
	f.activate(t, "+79991234561", modA)
	f.submit(t, ownerID, "89991234562")

	_, err := f.svc.AdminStats(f.ctx, ownerID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.ReportFailure(f.ctx, "+79991234561", modA)
	require.NoError(t, err)

	stats, err := f.svc.AdminStats(f.ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Numbers)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.ClosedToday)
	assert.Equal(t, 2, stats.Moderators)

	mine, err := f.svc.ModeratorNumbers(f.ctx, modA)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	n, canFail, err := f.svc.NumberDetail(f.ctx, "+79991234561", modA)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, n.Status)
	assert.False(t, canFail)

	all, err := f.svc.AllNumbers(f.ctx, adminID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBroadcast(t *testing.T) {
	f := newFixture(t)
	for _, id := range []int64{10, 11, 12} {
		require.NoError(t, f.repo.EnsureUser(f.ctx, id, t0))
	}
	f.notifier.fail[12] = true

	res, err := f.svc.Broadcast(f.ctx, adminID, "привет")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "привет", f.notifier.last(11).Text)
}

func TestBroadcast_EscapesMarkdown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.EnsureUser(f.ctx, 11, t0))

	res, err := f.svc.Broadcast(f.ctx, adminID, "скидка_50% на *всё*")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, "скидка\\_50% на \\*всё\\*", f.notifier.last(11).Text)
}
