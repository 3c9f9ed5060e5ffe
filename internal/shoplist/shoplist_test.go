package shoplist

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"foodgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"flour", "Flour"},
		{"FLOUR", "Flour"},
		{"мука пшеничная", "Мука пшеничная"},
		{"ЯЙЦА", "Яйца"},
		{"1 extra", "1 extra"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Capitalize(tt.in), tt.in)
	}
}

func TestFormatLines(t *testing.T) {
	lines := FormatLines([]models.IngredientTotal{
		{IngredientID: 1, Name: "flour", MeasurementUnit: "g", Total: 500},
		{IngredientID: 2, Name: "молоко", MeasurementUnit: "мл", Total: 250},
	})
	assert.Equal(t, []string{"Flour (g) — 500", "Молоко (мл) — 250"}, lines)
}

func TestFormatLinesEmptyCart(t *testing.T) {
	lines := FormatLines(nil)
	require.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestRendererProducesPDF(t *testing.T) {
	r := NewRenderer("")
	r.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	out, err := r.Render([]string{"Flour (g) — 500"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRendererEmbedsUnicodeFontByDefault(t *testing.T) {
	out, err := NewRenderer("").Render([]string{"Абрикосовое варенье (г) — 500"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "/Encoding /Identity-H")
	assert.Contains(t, string(out), "/FontFile2")
	assert.NotContains(t, string(out), "Helvetica")
}

func TestRendererFontOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.ttf")
	require.NoError(t, os.WriteFile(path, defaultFont, 0o600))

	out, err := NewRenderer(path).Render([]string{"Мука (г) — 200"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "/Encoding /Identity-H")
}

func TestRendererEmptyList(t *testing.T) {
	pdf, err := NewRenderer("").layout(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pdf.PageCount())
}

func TestRendererBreaksPages(t *testing.T) {
	lines := make([]string, 80)
	for i := range lines {
		lines[i] = "Salt (g) — 1"
	}
	pdf, err := NewRenderer("").layout(lines)
	require.NoError(t, err)
	assert.Greater(t, pdf.PageCount(), 1)
}

func TestRendererMissingFont(t *testing.T) {
	_, err := NewRenderer("/nonexistent/font.ttf").Render([]string{"x"})
	assert.Error(t, err)
}
