package bot

import (
	"context"

	"github.com/Fi44er/number_rent_bot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.withUserCheck(func(ctx context.Context, update tgbotapi.Update, m *member) {
		text := update.Message.Text
		b.logger.Infof("Processing message from user %d: %s", m.ID, text)

		switch text {
		case "/start":
			b.clearState(ctx, m.ID)
			b.handleStart(ctx, m)
			return
		case btnCancelInput:
			b.clearState(ctx, m.ID)
			b.sendMessage(m.ChatID, "❌ Действие отменено.", GetMainMenu(m))
			return
		}

		state := b.getState(ctx, m.ID)
		switch state.Step {
		case session.StepAwaitingNumbers:
			b.handleNumbersInput(ctx, m, text)
			return
		case session.StepAwaitingCode:
			b.handleCodeInput(ctx, m, state.Payload, text)
			return
		case session.StepAwaitingCheckLink:
			b.handleCheckLinkInput(ctx, m, state.Payload, text)
			return
		case session.StepAwaitingModeratorAdd,
			session.StepAwaitingModeratorRemove,
			session.StepAwaitingBroadcast,
			session.StepAwaitingPrice,
			session.StepAwaitingHoldTime:
			b.handleAdminInput(ctx, m, state.Step, text)
			return
		}

		switch text {
		case btnSubmit:
			b.promptNumbers(ctx, m)
		case btnMyNumbers:
			b.handleMyNumbers(ctx, m)
		case btnProfile:
			b.handleProfile(ctx, m)
		case btnWithdraw:
			b.handleWithdrawRequest(ctx, m)
		case btnClaim:
			b.handleClaim(ctx, m)
		case btnModNumbers:
			b.handleModeratorNumbers(ctx, m)
		case btnAdminPanel:
			b.handleAdminPanel(ctx, m)
		default:
			b.sendMessage(m.ChatID, "Неизвестная команда. Используйте меню.", GetMainMenu(m))
		}
	})(ctx, update)
}

func (b *Bot) handleStart(ctx context.Context, m *member) {
	cfg := b.config
	welcomeText := "👋 Добро пожаловать в *" + cfg.ServiceName + "*!\n\n" +
		"Сдавайте номера в аренду и получайте оплату после холда.\n" +
		"🕙 Время работы: " + cfg.WorkTime
	b.sendMessage(m.ChatID, welcomeText, GetMainMenu(m))
}
