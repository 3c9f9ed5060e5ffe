package shoplist

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
)

// Page layout in points on a Letter page, measured from the top edge.
const (
	titleText     = "SHOP LIST"
	titleX        = 250.0
	titleY        = 75.0
	titleSize     = 20.0
	bodyX         = 75.0
	bodyGap       = 40.0
	bodySize      = 14.0
	lineHeight    = 20.0
	footerX       = 255.0
	footerGap     = 50.0
	footerSize    = 10.0
	bottomMargin  = 60.0
	utf8FontAlias = "shoplist"
)

//go:embed fonts/DejaVuSansCondensed.ttf
var defaultFont []byte

// Renderer lays out shopping list lines on Letter pages.
type Renderer struct {
	fontPath string
	now      func() time.Time
}

// NewRenderer returns a Renderer. With an empty fontPath the bundled
// DejaVu Sans Condensed font is used.
func NewRenderer(fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath, now: time.Now}
}

// Render returns the PDF bytes for lines.
func (r *Renderer) Render(lines []string) ([]byte, error) {
	pdf, err := r.layout(lines)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) layout(lines []string) (*fpdf.Fpdf, error) {
	fontDir := ""
	if r.fontPath != "" {
		fontDir = filepath.Dir(r.fontPath)
	}
	pdf := fpdf.New("P", "pt", "Letter", fontDir)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("FoodGram", true)
	pdf.SetTitle("Shopping list", true)

	if r.fontPath != "" {
		pdf.AddUTF8Font(utf8FontAlias, "", filepath.Base(r.fontPath))
	} else {
		pdf.AddUTF8FontFromBytes(utf8FontAlias, "", defaultFont)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load font %q: %w", r.fontPath, err)
	}

	_, pageHeight := pdf.GetPageSize()
	limit := pageHeight - bottomMargin

	pdf.AddPage()
	pdf.SetFont(utf8FontAlias, "", titleSize)
	pdf.Text(titleX, titleY, titleText)

	y := titleY + bodyGap
	pdf.SetFont(utf8FontAlias, "", bodySize)
	for _, line := range lines {
		if y > limit {
			pdf.AddPage()
			pdf.SetFont(utf8FontAlias, "", bodySize)
			y = titleY
		}
		pdf.Text(bodyX, y, line)
		y += lineHeight
	}

	y += footerGap
	if y > limit {
		pdf.AddPage()
		y = titleY
	}
	pdf.SetFont(utf8FontAlias, "", footerSize)
	pdf.Text(footerX, y, fmt.Sprintf("© FoodGram %d", r.now().Year()))

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	return pdf, nil
}
