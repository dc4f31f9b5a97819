package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Fi44er/number_rent_bot/internal/session"
)

// maxListedNumbers keeps the all-numbers view inside one Telegram message.
const maxListedNumbers = 60

func (b *Bot) handleAdminPanel(ctx context.Context, m *member) {
	if !m.IsAdmin {
		b.sendMessage(m.ChatID, "Неизвестная команда. Используйте меню.", GetMainMenu(m))
		return
	}
	b.sendMessage(m.ChatID, "⚙️ *Админ-панель*", adminPanelKeyboard())
}

func (b *Bot) handleAdminAction(ctx context.Context, m *member, action string) {
	if !m.IsAdmin {
		b.sendMessage(m.ChatID, "⛔️ Это действие доступно только администратору.", nil)
		return
	}

	switch action {
	case adminStats:
		b.handleAdminStats(ctx, m)
	case adminWithdrawals:
		b.handleWithdrawalRequests(ctx, m, 0)
	case adminAllNumbers:
		b.handleAllNumbers(ctx, m)
	case adminModerators:
		b.handleListModerators(ctx, m)
	case adminAddModerator:
		b.prompt(ctx, m.ChatID, m.ID, session.StepAwaitingModeratorAdd, "", "➕ Отправьте Telegram ID нового модератора:")
	case adminRemoveModerator:
		b.prompt(ctx, m.ChatID, m.ID, session.StepAwaitingModeratorRemove, "", "➖ Отправьте Telegram ID модератора для удаления:")
	case adminBroadcast:
		b.prompt(ctx, m.ChatID, m.ID, session.StepAwaitingBroadcast, "", "📢 Отправьте текст рассылки:")
	case adminPrice:
		b.prompt(ctx, m.ChatID, m.ID, session.StepAwaitingPrice, "", "💲 Отправьте новую цену за номер:")
	case adminHoldTime:
		b.prompt(ctx, m.ChatID, m.ID, session.StepAwaitingHoldTime, "", "⏱ Отправьте новое время холда в минутах:")
	default:
		b.logger.Warnf("Unknown admin action %q from %d", action, m.ID)
	}
}

func (b *Bot) handleAdminInput(ctx context.Context, m *member, step session.Step, text string) {
	var reply string
	var err error

	switch step {
	case session.StepAwaitingModeratorAdd:
		var id int64
		if id, err = b.service.AddModerator(ctx, m.ID, text); err == nil {
			reply = fmt.Sprintf("✅ Модератор `%d` добавлен.", id)
		}
	case session.StepAwaitingModeratorRemove:
		var id int64
		if id, err = b.service.RemoveModerator(ctx, m.ID, text); err == nil {
			reply = fmt.Sprintf("✅ Модератор `%d` удален.", id)
		}
	case session.StepAwaitingBroadcast:
		b.sendMessage(m.ChatID, "⏳ Рассылка запущена...", nil)
		result, berr := b.service.Broadcast(ctx, m.ID, text)
		if err = berr; err == nil {
			reply = fmt.Sprintf("📢 Рассылка завершена.\nДоставлено: %d\nОшибок: %d", result.Sent, result.Failed)
		}
	case session.StepAwaitingPrice:
		price, perr := b.service.UpdatePrice(ctx, m.ID, text)
		if err = perr; err == nil {
			reply = fmt.Sprintf("✅ Новая цена: %s $", price.String())
		}
	case session.StepAwaitingHoldTime:
		minutes, herr := b.service.UpdateHoldTime(ctx, m.ID, text)
		if err = herr; err == nil {
			reply = fmt.Sprintf("✅ Новый холд: %d мин.", minutes)
		}
	}

	if err != nil {
		b.logger.Warnf("Admin input %s from %d failed: %v", step, m.ID, err)
		if isInputError(err) {
			b.sendMessage(m.ChatID, errorText(err), cancelKeyboard())
			return
		}
		b.clearState(ctx, m.ID)
		b.sendMessage(m.ChatID, adminErrorText(err), GetMainMenu(m))
		return
	}

	b.clearState(ctx, m.ID)
	b.sendMessage(m.ChatID, reply, GetMainMenu(m))
}

// adminErrorText falls back to the raw error text for refused admin input.
func adminErrorText(err error) string {
	text := errorText(err)
	if text == genericErrorText {
		return "❌ " + err.Error()
	}
	return text
}

func (b *Bot) handleAdminStats(ctx context.Context, m *member) {
	stats, err := b.service.AdminStats(ctx, m.ID)
	if err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}
	settings, err := b.service.GetSettings(ctx)
	if err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}

	b.sendMessage(m.ChatID, fmt.Sprintf(
		"📊 *Статистика*\n\n"+
			"👥 Пользователей: %d\n"+
			"🛡 Модераторов: %d\n"+
			"📱 Номеров в базе: %d\n"+
			"⏳ Ожидают проверки: %d\n"+
			"✅ Закрыто сегодня: %d\n\n"+
			"💲 Цена: %s $\n"+
			"⏱ Холд: %d мин.",
		stats.Users, stats.Moderators, stats.Numbers, stats.Pending, stats.ClosedToday,
		settings.Price.StringFixed(2), settings.HoldTime,
	), nil)
}

func (b *Bot) handleAllNumbers(ctx context.Context, m *member) {
	numbers, err := b.service.AllNumbers(ctx, m.ID)
	if err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}
	if len(numbers) == 0 {
		b.sendMessage(m.ChatID, "ℹ️ Номеров нет.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 *Все номера* (%d):\n\n", len(numbers)))
	for i := range numbers {
		if i == maxListedNumbers {
			sb.WriteString(fmt.Sprintf("\n...и еще %d", len(numbers)-maxListedNumbers))
			break
		}
		n := &numbers[i]
		sb.WriteString(fmt.Sprintf("`%s` | %s | владелец `%d`\n", n.Number, n.Status, n.OwnerID))
	}
	b.sendMessage(m.ChatID, sb.String(), nil)
}

func (b *Bot) handleListModerators(ctx context.Context, m *member) {
	ids, err := b.service.ListModerators(ctx, m.ID)
	if err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}
	if len(ids) == 0 {
		b.sendMessage(m.ChatID, "ℹ️ Модераторов нет.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("🛡 *Модераторы:*\n\n")
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("`%d`\n", id))
	}
	b.sendMessage(m.ChatID, sb.String(), nil)
}
