package bot

import (
	"github.com/Fi44er/number_rent_bot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnSubmit      = "📱 Сдать номер"
	btnMyNumbers   = "📋 Мои номера"
	btnProfile     = "👤 Профиль"
	btnWithdraw    = "💸 Вывод"
	btnClaim       = "🎯 Взять номер"
	btnModNumbers  = "🗂 Номера в работе"
	btnAdminPanel  = "⚙️ Админ-панель"
	btnCancelInput = "❌ Отмена"
)

// member is the sender with the roles resolved by the access middleware.
type member struct {
	ID          int64
	ChatID      int64
	Username    string
	IsAdmin     bool
	IsModerator bool
}

func (m *member) canModerate() bool {
	return m.IsAdmin || m.IsModerator
}

func GetMainMenu(m *member) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSubmit),
			tgbotapi.NewKeyboardButton(btnMyNumbers),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnProfile),
			tgbotapi.NewKeyboardButton(btnWithdraw),
		),
	}
	if m.canModerate() {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnClaim),
			tgbotapi.NewKeyboardButton(btnModNumbers),
		))
	}
	if m.IsAdmin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdminPanel),
		))
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelInput)),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// Admin panel callbacks, sent as "admin:<action>".
const (
	adminPrefix          = "admin"
	adminStats           = "stats"
	adminWithdrawals     = "withdrawals"
	adminAllNumbers      = "numbers"
	adminModerators      = "moderators"
	adminAddModerator    = "add_moder"
	adminRemoveModerator = "remove_moder"
	adminBroadcast       = "broadcast"
	adminPrice           = "price"
	adminHoldTime        = "hold_time"
	adminWithdrawPage    = "admin_withdraw_page"
	withdrawConfirm      = "withdraw_confirm"
	withdrawCancel       = "withdraw_cancel"
)

func adminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", service.Action(adminPrefix, adminStats)),
			tgbotapi.NewInlineKeyboardButtonData("💸 Выводы", service.Action(adminPrefix, adminWithdrawals)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Все номера", service.Action(adminPrefix, adminAllNumbers)),
			tgbotapi.NewInlineKeyboardButtonData("🛡 Модераторы", service.Action(adminPrefix, adminModerators)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить модератора", service.Action(adminPrefix, adminAddModerator)),
			tgbotapi.NewInlineKeyboardButtonData("➖ Удалить модератора", service.Action(adminPrefix, adminRemoveModerator)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📢 Рассылка", service.Action(adminPrefix, adminBroadcast)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💲 Цена", service.Action(adminPrefix, adminPrice)),
			tgbotapi.NewInlineKeyboardButtonData("⏱ Холд", service.Action(adminPrefix, adminHoldTime)),
		),
	)
}

// inlineKeyboard converts a transport-neutral keyboard into Telegram markup.
func inlineKeyboard(kb service.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			if btn.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
