package utils

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone number")

var russianPhone = regexp.MustCompile(`^\+7\d{10}$`)

// NormalizePhone rewrites a leading 7 or 8 to +7 and checks the +7XXXXXXXXXX form.
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	if strings.HasPrefix(phone, "7") || strings.HasPrefix(phone, "8") {
		phone = "+7" + phone[1:]
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	if !russianPhone.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}
