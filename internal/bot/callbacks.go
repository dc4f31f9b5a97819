package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fi44er/number_rent_bot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleCallbackQuery dispatches "prefix:arg" button data. The callback is
// answered before dispatch; results arrive as separate messages.
func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.From.ID
	if callback.Message != nil && callback.Message.Chat != nil {
		chatID = callback.Message.Chat.ID
	}

	m, err := b.resolveMember(ctx, callback.From.ID, chatID, callback.From.UserName)
	if err != nil {
		b.logger.Errorf("Failed to resolve user %d: %v", callback.From.ID, err)
		b.answerCallback(callback.ID, "Произошла ошибка. Попробуйте позже.")
		return
	}
	allowed, err := b.service.HasAccess(ctx, m.ID)
	if err != nil {
		b.logger.Errorf("Failed to check access for %d: %v", m.ID, err)
	}
	if err != nil || !allowed {
		b.answerCallback(callback.ID, "🔒 Нет доступа.")
		return
	}

	prefix, arg, _ := strings.Cut(callback.Data, ":")
	b.logger.Infof("Callback from user %d: %s", m.ID, callback.Data)
	b.answerCallback(callback.ID, "")

	switch prefix {
	case service.ActionSubmitNumbers:
		b.promptNumbers(ctx, m)
	case service.ActionEnterCode:
		b.promptCode(ctx, m, arg)
	case service.ActionConfirmCode:
		if b.reply(m, b.service.ConfirmCodeForwarding(ctx, arg, m.ID), "📨 Код отправлен модератору. Ожидайте подтверждения.") {
			b.dropKeyboard(callback.Message)
		}
	case service.ActionChangeCode:
		if err := b.service.ChangeCode(ctx, arg, m.ID); err != nil {
			b.sendMessage(m.ChatID, errorText(err), nil)
			return
		}
		b.dropKeyboard(callback.Message)
		b.promptCode(ctx, m, arg)
	case service.ActionCancelNumber:
		b.reply(m, b.service.CancelNumber(ctx, arg, m.ID), fmt.Sprintf("🗑 Номер `%s` отменен.", arg))
	case service.ActionRequestCode:
		if _, err := b.service.RequestCode(ctx, arg, m.ID); err != nil {
			b.sendMessage(m.ChatID, errorText(err), nil)
			return
		}
		b.sendMessage(m.ChatID, fmt.Sprintf("📨 Запрос кода для `%s` отправлен владельцу.", arg), nil)
	case service.ActionRejectClaim:
		if b.reply(m, b.service.RejectClaim(ctx, arg, m.ID), fmt.Sprintf("🚫 Номер `%s` отклонен и удален.", arg)) {
			b.dropKeyboard(callback.Message)
		}
	case service.ActionNumberActive:
		b.handleActivation(ctx, m, callback.Message, arg)
	case service.ActionNumberInvalid:
		if b.reply(m, b.service.ReportInvalidCode(ctx, arg, m.ID), fmt.Sprintf("❌ Номер `%s` удален: неверный код.", arg)) {
			b.dropKeyboard(callback.Message)
		}
	case service.ActionNumberFailed:
		b.handleFailureReport(ctx, m, arg)
	case service.ActionNumberDetail:
		b.handleNumberDetail(ctx, m, arg)
	case service.ActionApproveAccess, service.ActionRejectAccess:
		b.handleAccessDecision(ctx, m, callback.Message, arg, prefix == service.ActionApproveAccess)
	case service.ActionSendCheck:
		b.promptCheckLink(ctx, m, arg)
	case service.ActionRejectWithdraw:
		b.handleRejectWithdrawal(ctx, m, arg)
	case withdrawConfirm, withdrawCancel:
		b.dropKeyboard(callback.Message)
		b.handleUserWithdrawCallback(ctx, m, prefix)
	case adminPrefix:
		b.handleAdminAction(ctx, m, arg)
	case adminWithdrawPage:
		page, err := strconv.Atoi(arg)
		if err != nil {
			b.logger.Errorf("Invalid page number in callback: %v", err)
			return
		}
		b.handleWithdrawalRequests(ctx, m, page)
	default:
		b.logger.Warnf("Unknown callback %q from %d", callback.Data, m.ID)
	}
}

// reply sends ok on success or the error text otherwise and reports success.
func (b *Bot) reply(m *member, err error, ok string) bool {
	if err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return false
	}
	b.sendMessage(m.ChatID, ok, nil)
	return true
}

func (b *Bot) handleActivation(ctx context.Context, m *member, message *tgbotapi.Message, number string) {
	n, err := b.service.ConfirmActivation(ctx, number, m.ID)
	if err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}
	b.dropKeyboard(message)

	settings, err := b.service.GetSettings(ctx)
	if err != nil {
		b.logger.Errorf("Failed to load settings: %v", err)
		return
	}
	b.sendMessage(m.ChatID, fmt.Sprintf(
		"✅ Номер `%s` активен. Оплата владельцу через %d мин.\nЕсли номер слетит, нажмите кнопку ниже.",
		n.Number, settings.HoldTime,
	), inlineKeyboard(service.Keyboard{{
		{Text: "📉 Слетел", Data: service.Action(service.ActionNumberFailed, n.Number)},
	}}))
}

func (b *Bot) handleAccessDecision(ctx context.Context, m *member, message *tgbotapi.Message, rawID string, approve bool) {
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		b.logger.Errorf("Invalid user ID in access callback: %v", err)
		return
	}
	if err := b.service.ResolveAccess(ctx, m.ID, userID, approve); err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}
	b.dropKeyboard(message)

	verdict := "❌ Заявка `%d` отклонена."
	if approve {
		verdict = "✅ Заявка `%d` одобрена."
	}
	b.sendMessage(m.ChatID, fmt.Sprintf(verdict, userID), nil)
}
