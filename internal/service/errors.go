package service

import "errors"

var (
	ErrInvalidFormat      = errors.New("неверный формат номера")
	ErrAlreadyExists      = errors.New("номер уже в работе")
	ErrNoneAvailable      = errors.New("нет доступных номеров")
	ErrNotFound           = errors.New("запись не найдена")
	ErrUnauthorized       = errors.New("нет прав на это действие")
	ErrMalformedTimestamp = errors.New("у активного номера нет времени активации")
	ErrAlreadyClosed      = errors.New("номер уже закрыт")
	ErrAlreadyConfirmed   = errors.New("номер уже подтвержден")
	ErrEmptyCode          = errors.New("код не может быть пустым")
	ErrInvalidState       = errors.New("действие недоступно в текущем состоянии номера")
	ErrCooldown           = errors.New("повторная заявка пока недоступна")
	ErrInsufficientFunds  = errors.New("недостаточно средств")
	ErrInvalidAmount      = errors.New("сумма должна быть положительной")
	ErrInvalidHoldTime    = errors.New("время холда должно быть положительным")
	ErrInvalidLink        = errors.New("ссылка на чек должна начинаться с http:// или https://")
)
