package validation

import (
	"errors"
	"strings"
	"testing"

	"foodgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "SecurePass12!@", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Exactly Max Length", strings.Repeat("b", 127) + "1", false},
		{"Too Short", "Small1!", true},
		{"Too Long", strings.Repeat("b", 129), true},
		{"Digits Only", "1234567890", true},
		{"Common", "Password1", true},
		{"Unicode Characters", "Ångström-пароль", false},
		{"Cyrillic counts runes", "пароль12", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword("password", tt.password)
			if tt.wantErr {
				require.Error(t, err)
				var appErr *models.AppError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, models.CodeValidation, appErr.Code)
				assert.Contains(t, appErr.Fields, "password")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
