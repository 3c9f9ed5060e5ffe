// Package shoplist turns aggregated shopping cart totals into printable
// lines and renders them as a PDF document.
package shoplist

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"foodgram/internal/models"
)

// FormatLines renders one "<Name> (<unit>) — <total>" line per total, in input order.
// An empty cart yields an empty, non-nil slice.
func FormatLines(totals []models.IngredientTotal) []string {
	lines := make([]string, 0, len(totals))
	for _, t := range totals {
		lines = append(lines, fmt.Sprintf("%s (%s) — %d", Capitalize(t.Name), t.MeasurementUnit, t.Total))
	}
	return lines
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
