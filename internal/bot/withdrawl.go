package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/internal/service"
	"github.com/Fi44er/number_rent_bot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const withdrawalsPerPage = 5

// --- Логика вывода для пользователя ---

func (b *Bot) handleWithdrawRequest(ctx context.Context, m *member) {
	profile, err := b.service.Profile(ctx, m.ID)
	if err != nil {
		b.logger.Errorf("Failed to load balance of %d: %v", m.ID, err)
		b.sendMessage(m.ChatID, errorText(err), GetMainMenu(m))
		return
	}
	if !profile.User.Balance.IsPositive() {
		b.sendMessage(m.ChatID, "❌ На вашем балансе недостаточно средств для вывода.", GetMainMenu(m))
		return
	}

	msg := fmt.Sprintf("💰 Ваш текущий баланс: `%s` $\n\nВывести весь баланс?", profile.User.Balance.StringFixed(2))
	confirmKeyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", withdrawConfirm),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", withdrawCancel),
		),
	)
	b.sendMessage(m.ChatID, msg, confirmKeyboard)
}

func (b *Bot) handleUserWithdrawCallback(ctx context.Context, m *member, data string) {
	switch data {
	case withdrawConfirm:
		withdrawal, err := b.service.RequestWithdrawal(ctx, m.ID)
		if err != nil {
			b.logger.Warnf("Withdrawal request by %d failed: %v", m.ID, err)
			b.sendMessage(m.ChatID, errorText(err), GetMainMenu(m))
			return
		}
		b.sendMessage(m.ChatID, fmt.Sprintf(
			"✅ Запрос на вывод `%s` $ успешно создан и отправлен на обработку.",
			withdrawal.Amount.StringFixed(2),
		), GetMainMenu(m))
	case withdrawCancel:
		b.sendMessage(m.ChatID, "❌ Операция отменена.", GetMainMenu(m))
	}
}

// --- Логика вывода для админа ---

func (b *Bot) handleWithdrawalRequests(ctx context.Context, m *member, page int) {
	withdrawals, err := b.service.GetPendingWithdrawals(ctx, m.ID)
	if err != nil {
		b.logger.Errorf("Failed to get pending withdrawals: %v", err)
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}
	if len(withdrawals) == 0 {
		b.sendMessage(m.ChatID, "ℹ️ Нет ожидающих запросов на вывод.", nil)
		return
	}
	b.sendWithdrawalsPage(m.ChatID, withdrawals, page)
}

func (b *Bot) sendWithdrawalsPage(chatID int64, withdrawals []models.Withdrawal, page int) {
	start := page * withdrawalsPerPage
	if start >= len(withdrawals) || start < 0 {
		start = 0
		page = 0
	}
	end := start + withdrawalsPerPage
	if end > len(withdrawals) {
		end = len(withdrawals)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💸 *Запросы на вывод* (%d-%d из %d)\n\n", start+1, end, len(withdrawals)))
	keyboardRows := make([][]tgbotapi.InlineKeyboardButton, 0)
	for i := start; i < end; i++ {
		w := withdrawals[i]
		id := strconv.FormatUint(uint64(w.ID), 10)
		sb.WriteString(fmt.Sprintf(
			"#%d | пользователь `%d` | `%s` $ | %s\n",
			w.ID, w.UserID, w.Amount.StringFixed(2), w.CreatedAt.Format("02.01 15:04"),
		))
		keyboardRows = append(keyboardRows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🧾 Чек #%d", w.ID), service.Action(service.ActionSendCheck, id)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❌ Отклонить #%d", w.ID), service.Action(service.ActionRejectWithdraw, id)),
		))
	}
	if len(withdrawals) > withdrawalsPerPage {
		paginationRow := make([]tgbotapi.InlineKeyboardButton, 0)
		if page > 0 {
			paginationRow = append(paginationRow, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", service.Action(adminWithdrawPage, strconv.Itoa(page-1))))
		}
		if end < len(withdrawals) {
			paginationRow = append(paginationRow, tgbotapi.NewInlineKeyboardButtonData("Вперед ➡️", service.Action(adminWithdrawPage, strconv.Itoa(page+1))))
		}
		if len(paginationRow) > 0 {
			keyboardRows = append(keyboardRows, paginationRow)
		}
	}
	b.sendMessage(chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(keyboardRows...))
}

func parseWithdrawalID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("неверный номер заявки %q: %w", raw, err)
	}
	return uint(id), nil
}

func (b *Bot) promptCheckLink(ctx context.Context, m *member, rawID string) {
	if _, err := parseWithdrawalID(rawID); err != nil {
		b.logger.Errorf("Invalid withdrawal ID in callback: %v", err)
		return
	}
	b.prompt(ctx, m.ChatID, m.ID, session.StepAwaitingCheckLink, rawID,
		fmt.Sprintf("🧾 Отправьте ссылку на чек для вывода #%s:", rawID))
}

func (b *Bot) handleCheckLinkInput(ctx context.Context, m *member, rawID, link string) {
	id, err := parseWithdrawalID(rawID)
	if err != nil {
		b.logger.Errorf("Invalid withdrawal ID in session of %d: %v", m.ID, err)
		b.clearState(ctx, m.ID)
		return
	}

	withdrawal, err := b.service.CompleteWithdrawal(ctx, m.ID, id, link)
	if isInputError(err) {
		b.sendMessage(m.ChatID, errorText(err), cancelKeyboard())
		return
	}
	b.clearState(ctx, m.ID)
	if err != nil {
		b.logger.Errorf("Failed to process withdrawal %d: %v", id, err)
		b.sendMessage(m.ChatID, errorText(err), GetMainMenu(m))
		return
	}
	b.sendMessage(m.ChatID, fmt.Sprintf(
		"✅ Вывод #%d на `%s` $ обработан, чек отправлен пользователю `%d`.",
		withdrawal.ID, withdrawal.Amount.StringFixed(2), withdrawal.UserID,
	), GetMainMenu(m))
}

func (b *Bot) handleRejectWithdrawal(ctx context.Context, m *member, rawID string) {
	id, err := parseWithdrawalID(rawID)
	if err != nil {
		b.logger.Errorf("Invalid withdrawal ID in callback: %v", err)
		return
	}
	withdrawal, err := b.service.RejectWithdrawal(ctx, m.ID, id)
	if err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}
	b.sendMessage(m.ChatID, fmt.Sprintf(
		"↩️ Вывод #%d отклонен, `%s` $ возвращены пользователю `%d`.",
		withdrawal.ID, withdrawal.Amount.StringFixed(2), withdrawal.UserID,
	), nil)
}
