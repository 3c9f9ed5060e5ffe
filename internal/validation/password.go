package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"foodgram/internal/models"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// commonPasswords is a short deny-list of passwords that are rejected outright.
var commonPasswords = map[string]struct{}{
	"password":  {},
	"password1": {},
	"12345678":  {},
	"123456789": {},
	"qwertyui":  {},
	"qwerty123": {},
	"11111111":  {},
	"iloveyou":  {},
	"йцукенгш":  {},
}

// ValidatePassword checks if a password meets security requirements.
// field is the json key reported in the error.
func ValidatePassword(field, password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return fieldError(field, fmt.Sprintf("Введённый пароль слишком короткий. Он должен содержать как минимум %d символов.", minPasswordLength))
	}
	if n > maxPasswordLength {
		return fieldError(field, fmt.Sprintf("Убедитесь, что это значение содержит не более %d символов.", maxPasswordLength))
	}

	allDigits := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return fieldError(field, "Введённый пароль состоит только из цифр.")
	}

	if _, common := commonPasswords[strings.ToLower(password)]; common {
		return fieldError(field, "Введённый пароль слишком широко распространён.")
	}

	return nil
}

func fieldError(field, msg string) *models.AppError {
	return models.NewFieldValidationError(map[string]string{field: msg})
}
