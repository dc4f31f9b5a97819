package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/internal/service"
	"github.com/Fi44er/number_rent_bot/internal/session"
	"github.com/Fi44er/number_rent_bot/utils"
)

func (b *Bot) promptNumbers(ctx context.Context, m *member) {
	b.prompt(ctx, m.ChatID, m.ID, session.StepAwaitingNumbers, "",
		"📱 Отправьте номера в формате +7XXXXXXXXXX, каждый с новой строки:")
}

func (b *Bot) handleNumbersInput(ctx context.Context, m *member, text string) {
	result, err := b.service.Submit(ctx, m.ID, text)
	if errors.Is(err, service.ErrInvalidFormat) {
		b.sendMessage(m.ChatID, "❌ Не найдено ни одного номера в формате +7XXXXXXXXXX. Попробуйте еще раз.", cancelKeyboard())
		return
	}
	if err != nil {
		b.logger.Errorf("Failed to submit numbers for %d: %v", m.ID, err)
		b.sendMessage(m.ChatID, errorText(err), cancelKeyboard())
		return
	}

	b.clearState(ctx, m.ID)
	b.sendMessage(m.ChatID, formatSubmitResult(result), GetMainMenu(m))
}

func formatSubmitResult(result *service.SubmitResult) string {
	var sb strings.Builder
	if len(result.Added) > 0 {
		sb.WriteString(fmt.Sprintf("✅ Добавлено номеров: %d\n", len(result.Added)))
		for _, number := range result.Added {
			sb.WriteString(fmt.Sprintf("`%s`\n", number))
		}
	}
	if len(result.Existing) > 0 {
		sb.WriteString("\n⚠️ Уже в работе:\n")
		for _, number := range result.Existing {
			sb.WriteString(fmt.Sprintf("`%s`\n", number))
		}
	}
	if len(result.Invalid) > 0 {
		sb.WriteString(fmt.Sprintf("\n❌ Неверный формат: %d строк(и)\n", len(result.Invalid)))
	}
	return sb.String()
}

func (b *Bot) promptCode(ctx context.Context, m *member, number string) {
	b.prompt(ctx, m.ChatID, m.ID, session.StepAwaitingCode, number,
		fmt.Sprintf("✏️ Введите код из СМС для номера `%s`:", number))
}

func (b *Bot) handleCodeInput(ctx context.Context, m *member, number, code string) {
	n, err := b.service.SubmitCode(ctx, number, m.ID, code)
	if err != nil {
		b.logger.Warnf("Failed to store code for %s from %d: %v", number, m.ID, err)
		b.sendMessage(m.ChatID, errorText(err), cancelKeyboard())
		if !isInputError(err) {
			b.clearState(ctx, m.ID)
		}
		return
	}

	b.clearState(ctx, m.ID)
	b.sendMessage(m.ChatID, "Код принят.", GetMainMenu(m))
	b.sendMessage(m.ChatID, fmt.Sprintf("Вы ввели код %s для номера `%s`. Всё верно?", utils.EscapeMarkdown(*n.VerificationCode), n.Number),
		inlineKeyboard(service.Keyboard{{
			{Text: "✅ Подтвердить", Data: service.Action(service.ActionConfirmCode, n.Number)},
			{Text: "🔄 Изменить", Data: service.Action(service.ActionChangeCode, n.Number)},
		}}))
}

func (b *Bot) handleMyNumbers(ctx context.Context, m *member) {
	numbers, err := b.service.MyNumbers(ctx, m.ID)
	if err != nil {
		b.logger.Errorf("Failed to list numbers of %d: %v", m.ID, err)
		b.sendMessage(m.ChatID, errorText(err), GetMainMenu(m))
		return
	}
	if len(numbers) == 0 {
		b.sendMessage(m.ChatID, "ℹ️ У вас пока нет номеров.", GetMainMenu(m))
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 *Ваши номера:*\n\n")
	var kb service.Keyboard
	for i := range numbers {
		n := &numbers[i]
		sb.WriteString(numberLine(n))
		if n.IsOpen() && n.TakeState != models.TakeActivated {
			kb = append(kb, []service.Button{{
				Text: "🗑 Отменить " + n.Number,
				Data: service.Action(service.ActionCancelNumber, n.Number),
			}})
		}
	}

	if len(kb) == 0 {
		b.sendMessage(m.ChatID, sb.String(), GetMainMenu(m))
		return
	}
	b.sendMessage(m.ChatID, sb.String(), inlineKeyboard(kb))
}

func (b *Bot) handleProfile(ctx context.Context, m *member) {
	profile, err := b.service.Profile(ctx, m.ID)
	if err != nil {
		b.logger.Errorf("Failed to load profile of %d: %v", m.ID, err)
		b.sendMessage(m.ChatID, errorText(err), GetMainMenu(m))
		return
	}

	role := "пользователь"
	switch {
	case profile.IsAdmin:
		role = "администратор"
	case profile.IsModerator:
		role = "модератор"
	}

	msgText := fmt.Sprintf(
		"👤 *Профиль*\n\n"+
			"ID: `%d`\n"+
			"Роль: %s\n"+
			"💰 Баланс: `%s` $\n"+
			"📱 Активных номеров: %d\n"+
			"📅 Регистрация: %s\n\n"+
			"💲 Цена за номер: %s $\n"+
			"⏱ Холд: %d мин.",
		m.ID, role,
		profile.User.Balance.StringFixed(2),
		profile.ActiveNumbers,
		profile.User.RegDate.Format("02.01.2006"),
		profile.Settings.Price.StringFixed(2),
		profile.Settings.HoldTime,
	)
	if profile.PendingWithdrawal != nil {
		msgText += fmt.Sprintf("\n\n⏳ Заявка на вывод #%d: `%s` $", profile.PendingWithdrawal.ID, profile.PendingWithdrawal.Amount.StringFixed(2))
	}
	b.sendMessage(m.ChatID, msgText, GetMainMenu(m))
}

func numberLine(n *models.Number) string {
	return fmt.Sprintf("`%s` | %s\n", n.Number, n.Status)
}
