package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/internal/service"
)

func claimKeyboard(number string) service.Keyboard {
	return service.Keyboard{{
		{Text: "📨 Запросить код", Data: service.Action(service.ActionRequestCode, number)},
		{Text: "🚫 Отклонить", Data: service.Action(service.ActionRejectClaim, number)},
	}}
}

func (b *Bot) handleClaim(ctx context.Context, m *member) {
	if !m.canModerate() {
		b.sendMessage(m.ChatID, "Неизвестная команда. Используйте меню.", GetMainMenu(m))
		return
	}

	result, err := b.service.Claim(ctx, m.ID)
	if err != nil {
		b.logger.Debugf("Claim by %d: %v", m.ID, err)
		b.sendMessage(m.ChatID, errorText(err), GetMainMenu(m))
		return
	}

	header := "🎯 Номер для проверки:"
	if result.Resumed {
		header = "⚠️ У вас уже есть номер в работе:"
	}
	b.sendMessage(m.ChatID, fmt.Sprintf("%s `%s`", header, result.Number.Number), inlineKeyboard(claimKeyboard(result.Number.Number)))
}

func (b *Bot) handleModeratorNumbers(ctx context.Context, m *member) {
	if !m.canModerate() {
		b.sendMessage(m.ChatID, "Неизвестная команда. Используйте меню.", GetMainMenu(m))
		return
	}

	numbers, err := b.service.ModeratorNumbers(ctx, m.ID)
	if err != nil {
		b.logger.Errorf("Failed to list numbers of moderator %d: %v", m.ID, err)
		b.sendMessage(m.ChatID, errorText(err), GetMainMenu(m))
		return
	}
	if len(numbers) == 0 {
		b.sendMessage(m.ChatID, "ℹ️ У вас нет номеров в работе.", GetMainMenu(m))
		return
	}

	kb := make(service.Keyboard, 0, len(numbers))
	for i := range numbers {
		n := &numbers[i]
		kb = append(kb, []service.Button{{
			Text: fmt.Sprintf("%s | %s", n.Number, n.Status),
			Data: service.Action(service.ActionNumberDetail, n.Number),
		}})
	}
	b.sendMessage(m.ChatID, "🗂 *Номера в работе:*", inlineKeyboard(kb))
}

func (b *Bot) handleNumberDetail(ctx context.Context, m *member, number string) {
	n, canFail, err := b.service.NumberDetail(ctx, number, m.ID)
	if err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}

	var kb service.Keyboard
	if canFail {
		kb = service.Keyboard{{{Text: "📉 Слетел", Data: service.Action(service.ActionNumberFailed, n.Number)}}}
	}
	if n.IsOpen() && n.HeldBy(m.ID) {
		kb = append(kb, claimKeyboard(n.Number)...)
	}

	if len(kb) == 0 {
		b.sendMessage(m.ChatID, numberDetail(n), nil)
		return
	}
	b.sendMessage(m.ChatID, numberDetail(n), inlineKeyboard(kb))
}

func numberDetail(n *models.Number) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📱 Номер: `%s`\n", n.Number))
	sb.WriteString(fmt.Sprintf("Статус: %s\n", n.Status))
	sb.WriteString(fmt.Sprintf("Владелец: `%d`\n", n.OwnerID))
	sb.WriteString(fmt.Sprintf("Сдан: %s\n", n.CreatedAt.Format("02.01.2006 15:04")))
	if n.ActivatedAt != nil {
		sb.WriteString(fmt.Sprintf("Активирован: %s\n", n.ActivatedAt.Format("02.01.2006 15:04")))
	}
	if n.ShutdownAt != nil {
		sb.WriteString(fmt.Sprintf("Закрыт: %s\n", n.ShutdownAt.Format("02.01.2006 15:04")))
	}
	return sb.String()
}

func (b *Bot) handleFailureReport(ctx context.Context, m *member, number string) {
	report, err := b.service.ReportFailure(ctx, number, m.ID)
	if err != nil {
		b.sendMessage(m.ChatID, errorText(err), nil)
		return
	}

	verdict := "❌ холд не отстоян"
	if report.HoldMet {
		verdict = "✅ холд отстоян"
	}
	b.sendMessage(m.ChatID, fmt.Sprintf(
		"📉 Номер `%s` отмечен как слетевший.\nПростоял: %.0f мин. из %d (%s).",
		number, report.ElapsedMinutes, report.HoldTime, verdict,
	), GetMainMenu(m))
}
