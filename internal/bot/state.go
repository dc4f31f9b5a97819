package bot

import (
	"context"

	"github.com/Fi44er/number_rent_bot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sendMessage - унифицированная функция для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string, replyMarkup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}
	if _, err := b.API.Send(msg); err != nil {
		b.logger.Errorf("Failed to send message: %v", err)
	}
}

func (b *Bot) answerCallback(callbackID string, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.API.Request(callback); err != nil {
		b.logger.Errorf("Failed to answer callback: %v", err)
	}
}

// dropKeyboard removes the inline buttons of an answered message.
func (b *Bot) dropKeyboard(message *tgbotapi.Message) {
	if message == nil || message.Chat == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(message.Chat.ID, message.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.API.Request(edit); err != nil {
		b.logger.Debugf("Failed to drop keyboard: %v", err)
	}
}

// --- Функции для управления состоянием ---

func (b *Bot) getState(ctx context.Context, userID int64) session.State {
	state, err := b.sessions.Get(ctx, userID)
	if err != nil {
		b.logger.Errorf("Failed to get state for user %d: %v", userID, err)
		return session.State{}
	}
	return state
}

// prompt moves the user into step and asks for the input. A refused
// transition keeps the current step and tells the user why.
func (b *Bot) prompt(ctx context.Context, chatID, userID int64, step session.Step, payload, text string) bool {
	if err := b.sessions.Set(ctx, userID, session.State{Step: step, Payload: payload}); err != nil {
		b.logger.Warnf("Set state for user %d refused: %v", userID, err)
		b.sendMessage(chatID, errorText(err), nil)
		return false
	}
	b.logger.Debugf("Set state for user %d: %s %s", userID, step, payload)
	b.sendMessage(chatID, text, cancelKeyboard())
	return true
}

func (b *Bot) clearState(ctx context.Context, userID int64) {
	if err := b.sessions.Clear(ctx, userID); err != nil {
		b.logger.Errorf("Failed to clear state for user %d: %v", userID, err)
	}
}
