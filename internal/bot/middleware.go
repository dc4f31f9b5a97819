package bot

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Fi44er/number_rent_bot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// withUserCheck lets approved users and staff through. Everyone else may only
// send /start, which files an access request.
func (b *Bot) withUserCheck(handler func(context.Context, tgbotapi.Update, *member)) func(context.Context, tgbotapi.Update) {
	return func(ctx context.Context, update tgbotapi.Update) {
		from := update.Message.From
		chatID := update.Message.Chat.ID

		m, err := b.resolveMember(ctx, from.ID, chatID, from.UserName)
		if err != nil {
			b.logger.Errorf("Failed to resolve user %d: %v", from.ID, err)
			b.sendMessage(chatID, "Произошла ошибка. Попробуйте позже.", nil)
			return
		}

		allowed, err := b.service.HasAccess(ctx, from.ID)
		if err != nil {
			b.logger.Errorf("Failed to check access for %d: %v", from.ID, err)
			b.sendMessage(chatID, "Произошла ошибка. Попробуйте позже.", nil)
			return
		}
		if !allowed {
			b.handleAccessRequest(ctx, m, update.Message.Text)
			return
		}

		handler(ctx, update, m)
	}
}

func (b *Bot) resolveMember(ctx context.Context, userID, chatID int64, username string) (*member, error) {
	admin, err := b.service.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	moderator, err := b.service.IsModerator(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &member{
		ID:          userID,
		ChatID:      chatID,
		Username:    username,
		IsAdmin:     admin,
		IsModerator: moderator,
	}, nil
}

func (b *Bot) handleAccessRequest(ctx context.Context, m *member, text string) {
	if text != "/start" {
		b.sendMessage(m.ChatID, "🔒 У вас нет доступа. Отправьте /start, чтобы подать заявку.", tgbotapi.NewRemoveKeyboard(true))
		return
	}

	username := m.Username
	if username == "" {
		username = "без_username"
	}
	left, err := b.service.RequestAccess(ctx, m.ID, username)
	switch {
	case errors.Is(err, service.ErrCooldown):
		minutes := int(math.Ceil(left.Minutes()))
		b.sendMessage(m.ChatID, fmt.Sprintf("⏳ Заявка уже отправлена. Повторить можно через %d мин.", minutes), nil)
	case err != nil:
		b.logger.Errorf("Failed to file access request for %d: %v", m.ID, err)
		b.sendMessage(m.ChatID, "Произошла ошибка. Попробуйте позже.", nil)
	default:
		b.sendMessage(m.ChatID, "📝 Заявка на доступ отправлена администраторам. Ожидайте решения.", tgbotapi.NewRemoveKeyboard(true))
	}
}
