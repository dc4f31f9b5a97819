package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Fi44er/number_rent_bot/config"
	"github.com/Fi44er/number_rent_bot/internal/metrics"
	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/internal/repository"
	"github.com/Fi44er/number_rent_bot/internal/testdb"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	adminID = int64(1)
	ownerID = int64(10)
	modA    = int64(100)
	modB    = int64(200)
)

var t0 = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

type sentMessage struct {
	ChatID   int64
	Text     string
	Keyboard Keyboard
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[int64]bool
}

func (f *fakeNotifier) Notify(chatID int64, text string, kb Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return errors.New("chat not found")
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Keyboard: kb})
	return nil
}

func (f *fakeNotifier) to(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeNotifier) last(chatID int64) sentMessage {
	msgs := f.to(chatID)
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	repo     *repository.Repository
	svc      *Service
	clock    *clockwork.FakeClock
	notifier *fakeNotifier
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	conn := testdb.New(t)
	repo := repository.NewRepository(conn, testdb.Logger())
	cfg := &config.Config{
		AdminsID:        "1",
		Timezone:        "UTC",
		DefaultPrice:    "2.0",
		DefaultHoldTime: 5,
	}
	clock := clockwork.NewFakeClockAt(t0)
	m := metrics.New()

	svc, err := NewService(repo, clock, m, cfg, testdb.Logger())
	require.NoError(t, err)
	n := &fakeNotifier{fail: map[int64]bool{}}
	svc.SetNotifier(n)
	require.NoError(t, svc.Init(ctx))

	require.NoError(t, repo.AddPersonal(ctx, modA, models.PersonalModerator))
	require.NoError(t, repo.AddPersonal(ctx, modB, models.PersonalModerator))

	return &fixture{ctx: ctx, db: conn, repo: repo, svc: svc, clock: clock, notifier: n, metrics: m}
}

func (f *fixture) submit(t *testing.T, owner int64, raw string) *SubmitResult {
	t.Helper()
	res, err := f.svc.Submit(f.ctx, owner, raw)
	require.NoError(t, err)
	return res
}

func (f *fixture) number(t *testing.T, number string) *models.Number {
	t.Helper()
	n, err := f.repo.GetNumber(f.ctx, number)
	require.NoError(t, err)
	return n
}

func (f *fixture) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	u, err := f.repo.GetUser(f.ctx, userID)
	require.NoError(t, err)
	if u == nil {
		return decimal.Zero
	}
	return u.Balance
}

// activate drives a submitted number through claim, code exchange and confirmation.
func (f *fixture) activate(t *testing.T, number string, moderatorID int64) {
	t.Helper()
	claim, err := f.svc.Claim(f.ctx, moderatorID)
	require.NoError(t, err)
	require.Equal(t, number, claim.Number.Number)

	_, err = f.svc.RequestCode(f.ctx, number, moderatorID)
	require.NoError(t, err)
	_, err = f.svc.SubmitCode(f.ctx, number, claim.Number.OwnerID, "1234")
	require.NoError(t, err)
	require.NoError(t, f.svc.ConfirmCodeForwarding(f.ctx, number, claim.Number.OwnerID))
	_, err = f.svc.ConfirmActivation(f.ctx, number, moderatorID)
	require.NoError(t, err)
}

func hasButton(kb Keyboard, data string) bool {
	for _, row := range kb {
		for _, b := range row {
			if b.Data == data {
				return true
			}
		}
	}
	return false
}

func containsText(msgs []sentMessage, part string) bool {
	for _, m := range msgs {
		if strings.Contains(m.Text, part) {
			return true
		}
	}
	return false
}
