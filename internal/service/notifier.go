package service

import "context"

// Button is one inline action. Data is a "prefix:arg" callback, URL opens a link.
type Button struct {
	Text string
	Data string
	URL  string
}

type Keyboard [][]Button

type Notifier interface {
	Notify(chatID int64, text string, kb Keyboard) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(int64, string, Keyboard) error { return nil }

// Callback prefixes shared with the transport.
const (
	ActionRequestCode    = "send_code"
	ActionRejectClaim    = "moderator_reject"
	ActionEnterCode      = "enter_code"
	ActionConfirmCode    = "confirm_code"
	ActionChangeCode     = "change_code"
	ActionNumberActive   = "number_active"
	ActionNumberInvalid  = "number_invalid"
	ActionNumberFailed   = "number_failed"
	ActionNumberDetail   = "number_detail"
	ActionCancelNumber   = "cancel_number"
	ActionSubmitNumbers  = "submit_numbers"
	ActionApproveAccess  = "approve_access"
	ActionRejectAccess   = "reject_access"
	ActionSendCheck      = "send_check"
	ActionRejectWithdraw = "reject_withdraw"
)

func Action(prefix, arg string) string {
	return prefix + ":" + arg
}

// notify is best-effort; delivery errors are logged and dropped.
func (s *Service) notify(chatID int64, text string, kb Keyboard) {
	if err := s.notifier.Notify(chatID, text, kb); err != nil {
		s.logger.Errorf("Не удалось отправить сообщение %d: %v", chatID, err)
	}
}

func (s *Service) notifyAdmins(ctx context.Context, text string, kb Keyboard) {
	ids, err := s.AdminIDs(ctx)
	if err != nil {
		s.logger.Errorf("Не удалось получить список админов: %v", err)
		return
	}
	for _, id := range ids {
		s.notify(id, text, kb)
	}
}
