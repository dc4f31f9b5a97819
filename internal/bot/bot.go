package bot

import (
	"context"

	"github.com/Fi44er/number_rent_bot/config"
	"github.com/Fi44er/number_rent_bot/internal/service"
	"github.com/Fi44er/number_rent_bot/internal/session"
	"github.com/Fi44er/number_rent_bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	API      *tgbotapi.BotAPI
	service  *service.Service
	sessions session.Store
	logger   *utils.Logger
	config   *config.Config
}

func NewBot(
	api *tgbotapi.BotAPI,
	service *service.Service,
	sessions session.Store,
	logger *utils.Logger,
	config *config.Config,
) *Bot {
	return &Bot{
		API:      api,
		service:  service,
		sessions: sessions,
		logger:   logger,
		config:   config,
	}
}

// Start handles updates one at a time until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Infof("Starting bot @%s...", b.API.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.API.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			b.logger.Info("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.logger.Debugf("Received update: %d", update.UpdateID)
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil && update.Message.From != nil {
		b.HandleUpdate(ctx, update)
	}
}

// Notify implements service.Notifier on top of the bot API.
func (b *Bot) Notify(chatID int64, text string, kb service.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if len(kb) > 0 {
		msg.ReplyMarkup = inlineKeyboard(kb)
	}
	_, err := b.API.Send(msg)
	return err
}
