package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Fi44er/number_rent_bot/config"
	"github.com/Fi44er/number_rent_bot/internal/metrics"
	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/internal/repository"
	"github.com/Fi44er/number_rent_bot/internal/service"
	"github.com/Fi44er/number_rent_bot/internal/session"
	"github.com/Fi44er/number_rent_bot/internal/testdb"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID     = int64(1)
	ownerID     = int64(10)
	moderatorID = int64(100)
	phone       = "+79991234567"
)

type apiCall struct {
	Method string
	ChatID int64
	Text   string
	Markup string
}

// fakeTelegram answers Bot API requests and records what the bot sent.
type fakeTelegram struct {
	mu     sync.Mutex
	calls  []apiCall
	server *httptest.Server
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTelegram) handle(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")

	if method == "getMe" {
		fmt.Fprint(w, `{"ok":true,"result":{"id":999,"is_bot":true,"first_name":"bot","username":"test_bot"}}`)
		return
	}

	chatID, _ := strconv.ParseInt(r.PostForm.Get("chat_id"), 10, 64)
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{
		Method: method,
		ChatID: chatID,
		Text:   r.PostForm.Get("text"),
		Markup: r.PostForm.Get("reply_markup"),
	})
	id := len(f.calls)
	f.mu.Unlock()

	fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":%d,"type":"private"}}}`, id, chatID)
}

func (f *fakeTelegram) messages(chatID int64) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == "sendMessage" && c.ChatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTelegram) last(chatID int64) apiCall {
	msgs := f.messages(chatID)
	if len(msgs) == 0 {
		return apiCall{}
	}
	return msgs[len(msgs)-1]
}

type testBot struct {
	ctx  context.Context
	bot  *Bot
	svc  *service.Service
	repo *repository.Repository
	tg   *fakeTelegram
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	ctx := context.Background()

	conn := testdb.New(t)
	repo := repository.NewRepository(conn, testdb.Logger())
	cfg := &config.Config{
		AdminsID:        "1",
		Timezone:        "UTC",
		DefaultPrice:    "2.0",
		DefaultHoldTime: 5,
		ServiceName:     "Number Rent",
		WorkTime:        "10:00 - 22:00",
	}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))

	svc, err := service.NewService(repo, clock, metrics.New(), cfg, testdb.Logger())
	require.NoError(t, err)
	require.NoError(t, svc.Init(ctx))

	tg := newFakeTelegram(t)
	api, err := tgbotapi.NewBotAPIWithClient("test-token", tg.server.URL+"/bot%s/%s", tg.server.Client())
	require.NoError(t, err)

	b := NewBot(api, svc, session.NewMemoryStore(), testdb.Logger(), cfg)
	svc.SetNotifier(b)

	require.NoError(t, repo.AddPersonal(ctx, moderatorID, models.PersonalModerator))
	return &testBot{ctx: ctx, bot: b, svc: svc, repo: repo, tg: tg}
}

func (tb *testBot) approve(t *testing.T, userID int64) {
	t.Helper()
	_, err := tb.svc.RequestAccess(tb.ctx, userID, "user")
	require.NoError(t, err)
	require.NoError(t, tb.svc.ResolveAccess(tb.ctx, adminID, userID, true))
}

func (tb *testBot) text(userID int64, text string) {
	tb.bot.handleUpdate(tb.ctx, tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: userID, UserName: "user" + strconv.FormatInt(userID, 10)},
			Chat:      &tgbotapi.Chat{ID: userID},
			Text:      text,
		},
	})
}

func (tb *testBot) press(userID int64, data string) {
	tb.bot.handleUpdate(tb.ctx, tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb",
			From: &tgbotapi.User{ID: userID},
			Message: &tgbotapi.Message{
				MessageID: 1,
				Chat:      &tgbotapi.Chat{ID: userID},
			},
			Data: data,
		},
	})
}

func TestAccessGate(t *testing.T) {
	tb := newTestBot(t)

	tb.text(ownerID, "привет")
	assert.Contains(t, tb.tg.last(ownerID).Text, "нет доступа")

	tb.text(ownerID, "/start")
	assert.Contains(t, tb.tg.last(ownerID).Text, "Заявка на доступ отправлена")
	assert.Contains(t, tb.tg.last(adminID).Markup, service.Action(service.ActionApproveAccess, "10"))

	tb.text(ownerID, "/start")
	assert.Contains(t, tb.tg.last(ownerID).Text, "через 15 мин.")

	tb.press(adminID, service.Action(service.ActionApproveAccess, "10"))
	assert.Contains(t, tb.tg.last(adminID).Text, "одобрена")
	assert.Contains(t, tb.tg.last(ownerID).Text, "Доступ открыт")

	tb.text(ownerID, "/start")
	menu := tb.tg.last(ownerID)
	assert.Contains(t, menu.Text, "Number Rent")
	assert.Contains(t, menu.Markup, btnSubmit)
	assert.NotContains(t, menu.Markup, btnClaim)
	assert.NotContains(t, menu.Markup, btnAdminPanel)
}

func TestStaffMenus(t *testing.T) {
	tb := newTestBot(t)

	tb.text(moderatorID, "/start")
	assert.Contains(t, tb.tg.last(moderatorID).Markup, btnClaim)
	assert.NotContains(t, tb.tg.last(moderatorID).Markup, btnAdminPanel)

	tb.text(adminID, "/start")
	assert.Contains(t, tb.tg.last(adminID).Markup, btnClaim)
	assert.Contains(t, tb.tg.last(adminID).Markup, btnAdminPanel)
}

func TestNumberHandshake(t *testing.T) {
	tb := newTestBot(t)
	tb.approve(t, ownerID)

	tb.text(ownerID, btnSubmit)
	tb.text(ownerID, "89991234567\nabc")
	submitted := tb.tg.last(ownerID).Text
	assert.Contains(t, submitted, "Добавлено номеров: 1")
	assert.Contains(t, submitted, phone)
	assert.Contains(t, submitted, "Неверный формат")

	tb.text(moderatorID, btnClaim)
	assert.Contains(t, tb.tg.last(moderatorID).Markup, service.Action(service.ActionRequestCode, phone))

	tb.press(moderatorID, service.Action(service.ActionRequestCode, phone))
	assert.Contains(t, tb.tg.last(ownerID).Markup, service.Action(service.ActionEnterCode, phone))

	tb.press(ownerID, service.Action(service.ActionEnterCode, phone))
	tb.text(ownerID, "12345")
	assert.Contains(t, tb.tg.last(ownerID).Markup, service.Action(service.ActionConfirmCode, phone))

	tb.press(ownerID, service.Action(service.ActionConfirmCode, phone))
	forwarded := tb.tg.last(moderatorID)
	assert.Contains(t, forwarded.Text, "12345")
	assert.Contains(t, forwarded.Markup, service.Action(service.ActionNumberActive, phone))

	tb.press(moderatorID, service.Action(service.ActionNumberActive, phone))
	assert.Contains(t, tb.tg.last(moderatorID).Markup, service.Action(service.ActionNumberFailed, phone))

	n, err := tb.repo.GetNumber(tb.ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, models.TakeActivated, n.TakeState)
	assert.Equal(t, models.StatusActive, n.Status)
	assert.Nil(t, n.ModeratorID)

	tb.press(moderatorID, service.Action(service.ActionNumberFailed, phone))
	assert.Contains(t, tb.tg.last(moderatorID).Text, "холд не отстоян")
	assert.Contains(t, tb.tg.last(ownerID).Text, "слетел")
}

func TestCodeWithMarkdownIsEscaped(t *testing.T) {
	tb := newTestBot(t)
	tb.approve(t, ownerID)

	tb.text(ownerID, btnSubmit)
	tb.text(ownerID, "89991234567")
	tb.text(moderatorID, btnClaim)
	tb.press(moderatorID, service.Action(service.ActionRequestCode, phone))

	tb.press(ownerID, service.Action(service.ActionEnterCode, phone))
	tb.text(ownerID, "12`34_")
	assert.Contains(t, tb.tg.last(ownerID).Text, "12\\`34\\_")

	tb.press(ownerID, service.Action(service.ActionConfirmCode, phone))
	forwarded := tb.tg.last(moderatorID)
	assert.Contains(t, forwarded.Text, "12\\`34\\_")
	assert.Contains(t, forwarded.Markup, service.Action(service.ActionNumberActive, phone))
}

func TestClaimWhenEmpty(t *testing.T) {
	tb := newTestBot(t)

	tb.text(moderatorID, btnClaim)
	assert.Contains(t, tb.tg.last(moderatorID).Text, "Нет доступных номеров")
}

func TestOwnerCannotClaim(t *testing.T) {
	tb := newTestBot(t)
	tb.approve(t, ownerID)

	tb.text(ownerID, btnClaim)
	assert.Contains(t, tb.tg.last(ownerID).Text, "Неизвестная команда")

	tb.press(ownerID, service.Action(service.ActionRequestCode, phone))
	assert.Contains(t, tb.tg.last(ownerID).Text, "Нет прав")
}

func TestCancelInput(t *testing.T) {
	tb := newTestBot(t)
	tb.approve(t, ownerID)

	tb.text(ownerID, btnSubmit)
	tb.text(ownerID, "abc")
	assert.Contains(t, tb.tg.last(ownerID).Text, "Не найдено ни одного номера")

	state, err := tb.bot.sessions.Get(tb.ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, session.StepAwaitingNumbers, state.Step)

	tb.text(ownerID, btnCancelInput)
	assert.Contains(t, tb.tg.last(ownerID).Text, "Действие отменено")

	state, err = tb.bot.sessions.Get(tb.ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, session.StepNone, state.Step)
}

func TestPromptRefusedDuringCodeEntry(t *testing.T) {
	tb := newTestBot(t)
	tb.approve(t, ownerID)

	tb.press(ownerID, service.Action(service.ActionEnterCode, phone))
	tb.press(ownerID, service.Action(service.ActionSubmitNumbers, ""))
	assert.Contains(t, tb.tg.last(ownerID).Text, "Сначала завершите")

	state, err := tb.bot.sessions.Get(tb.ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, session.StepAwaitingCode, state.Step)
	assert.Equal(t, phone, state.Payload)
}

func TestWithdrawalFlow(t *testing.T) {
	tb := newTestBot(t)
	tb.approve(t, ownerID)

	tb.text(ownerID, btnWithdraw)
	assert.Contains(t, tb.tg.last(ownerID).Text, "недостаточно средств")

	require.NoError(t, tb.repo.AddBalance(tb.ctx, ownerID, decimal.NewFromInt(6), time.Now()))

	tb.text(ownerID, btnWithdraw)
	assert.Contains(t, tb.tg.last(ownerID).Markup, withdrawConfirm)

	tb.press(ownerID, withdrawConfirm)
	assert.Contains(t, tb.tg.last(ownerID).Text, "6.00")
	assert.Contains(t, tb.tg.last(adminID).Markup, service.Action(service.ActionSendCheck, "1"))

	tb.press(adminID, service.Action(adminPrefix, adminWithdrawals))
	assert.Contains(t, tb.tg.last(adminID).Text, "Запросы на вывод")

	tb.press(adminID, service.Action(service.ActionSendCheck, "1"))
	tb.text(adminID, "https://example.com/check")
	assert.Contains(t, tb.tg.last(adminID).Text, "обработан")
	assert.Contains(t, tb.tg.last(ownerID).Markup, "https://example.com/check")

	pending, err := tb.repo.GetPendingWithdrawals(tb.ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWithdrawalBadLinkKeepsRequest(t *testing.T) {
	tb := newTestBot(t)
	tb.approve(t, ownerID)
	require.NoError(t, tb.repo.AddBalance(tb.ctx, ownerID, decimal.NewFromInt(6), time.Now()))

	tb.text(ownerID, btnWithdraw)
	tb.press(ownerID, withdrawConfirm)

	tb.press(adminID, service.Action(service.ActionSendCheck, "1"))
	tb.text(adminID, "чек потом")
	assert.Contains(t, tb.tg.last(adminID).Text, "Ссылка на чек должна начинаться")

	state, err := tb.bot.sessions.Get(tb.ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, session.StepAwaitingCheckLink, state.Step)

	pending, err := tb.repo.GetPendingWithdrawals(tb.ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	tb.text(adminID, "https://example.com/check")
	assert.Contains(t, tb.tg.last(adminID).Text, "обработан")
	assert.Contains(t, tb.tg.last(ownerID).Markup, "https://example.com/check")
}

func TestWithdrawalPages(t *testing.T) {
	tb := newTestBot(t)
	for i := 0; i < withdrawalsPerPage+2; i++ {
		require.NoError(t, tb.repo.CreateWithdrawal(tb.ctx, &models.Withdrawal{
			UserID: int64(1000 + i),
			Amount: decimal.NewFromInt(1),
			Status: models.WithdrawalPending,
		}))
	}

	tb.press(adminID, service.Action(adminPrefix, adminWithdrawals))
	first := tb.tg.last(adminID)
	assert.Contains(t, first.Text, "(1-5 из 7)")
	assert.Contains(t, first.Markup, service.Action(adminWithdrawPage, "1"))

	tb.press(adminID, service.Action(adminWithdrawPage, "1"))
	second := tb.tg.last(adminID)
	assert.Contains(t, second.Text, "(6-7 из 7)")
	assert.Contains(t, second.Markup, service.Action(adminWithdrawPage, "0"))
}

func TestAdminPanel(t *testing.T) {
	tb := newTestBot(t)
	tb.approve(t, ownerID)

	tb.text(adminID, btnAdminPanel)
	assert.Contains(t, tb.tg.last(adminID).Markup, service.Action(adminPrefix, adminStats))

	tb.press(adminID, service.Action(adminPrefix, adminAddModerator))
	tb.text(adminID, "300")
	assert.Contains(t, tb.tg.last(adminID).Text, "Модератор `300` добавлен")
	assert.Contains(t, tb.tg.last(300).Text, "права модератора")

	tb.press(adminID, service.Action(adminPrefix, adminHoldTime))
	tb.text(adminID, "-1")
	assert.Contains(t, tb.tg.last(adminID).Text, "Время холда должно быть положительным")
	tb.text(adminID, "15")
	assert.Contains(t, tb.tg.last(adminID).Text, "Новый холд: 15 мин.")

	settings, err := tb.svc.GetSettings(tb.ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, settings.HoldTime)

	tb.press(adminID, service.Action(adminPrefix, adminStats))
	assert.Contains(t, tb.tg.last(adminID).Text, "Модераторов: 2")

	tb.press(ownerID, service.Action(adminPrefix, adminStats))
	assert.Contains(t, tb.tg.last(ownerID).Text, "только администратору")
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "❌ Нет доступных номеров.", errorText(fmt.Errorf("claim: %w", service.ErrNoneAvailable)))
	assert.Equal(t, genericErrorText, errorText(fmt.Errorf("connection refused")))
	assert.True(t, strings.HasPrefix(errorText(session.ErrTransition), "⚠️"))
}

func TestInlineKeyboard(t *testing.T) {
	markup := inlineKeyboard(service.Keyboard{
		{{Text: "a", Data: "x:1"}, {Text: "b", URL: "https://example.com"}},
	})
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "x:1", *markup.InlineKeyboard[0][0].CallbackData)
	require.NotNil(t, markup.InlineKeyboard[0][1].URL)
	assert.Equal(t, "https://example.com", *markup.InlineKeyboard[0][1].URL)
}
