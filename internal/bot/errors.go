package bot

import (
	"errors"
	"unicode"

	"github.com/Fi44er/number_rent_bot/internal/service"
	"github.com/Fi44er/number_rent_bot/internal/session"
)

const genericErrorText = "❌ Произошла ошибка. Попробуйте позже."

var userErrors = []error{
	service.ErrInvalidFormat,
	service.ErrAlreadyExists,
	service.ErrNoneAvailable,
	service.ErrNotFound,
	service.ErrUnauthorized,
	service.ErrAlreadyClosed,
	service.ErrAlreadyConfirmed,
	service.ErrEmptyCode,
	service.ErrInvalidState,
	service.ErrCooldown,
	service.ErrInsufficientFunds,
	service.ErrInvalidAmount,
	service.ErrInvalidHoldTime,
	service.ErrInvalidLink,
}

// errorText turns a service error into a reply. Unknown errors are not shown.
func errorText(err error) string {
	if errors.Is(err, session.ErrTransition) {
		return "⚠️ Сначала завершите текущее действие или нажмите «❌ Отмена»."
	}
	for _, known := range userErrors {
		if errors.Is(err, known) {
			return "❌ " + capitalize(known.Error()) + "."
		}
	}
	return genericErrorText
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// isInputError reports whether the user can fix err by typing again.
func isInputError(err error) bool {
	return errors.Is(err, service.ErrEmptyCode) ||
		errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrInvalidHoldTime) ||
		errors.Is(err, service.ErrInvalidLink)
}
