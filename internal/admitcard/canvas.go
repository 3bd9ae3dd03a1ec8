package admitcard

import (
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"
)

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

// canvas is the drawing surface the layout is written against.
type canvas interface {
	PageSize() (w, h float64)
	SetDrawColor(c rgb)
	SetFillColor(c rgb)
	SetTextColor(c rgb)
	SetLineWidth(w float64)
	SetFont(style string, size float64)
	Rect(x, y, w, h float64, style string)
	Line(x1, y1, x2, y2 float64)
	Text(x, y float64, s string, a align)
	Image(name, kind string, data []byte, x, y, w, h float64)
}

type pdfCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFCanvas(created time.Time) *pdfCanvas {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(cardTitle, false)
	pdf.AddPage()
	return &pdfCanvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (p *pdfCanvas) PageSize() (float64, float64) { return p.pdf.GetPageSize() }

func (p *pdfCanvas) SetDrawColor(c rgb) { p.pdf.SetDrawColor(c.R, c.G, c.B) }

func (p *pdfCanvas) SetFillColor(c rgb) { p.pdf.SetFillColor(c.R, c.G, c.B) }

func (p *pdfCanvas) SetTextColor(c rgb) { p.pdf.SetTextColor(c.R, c.G, c.B) }

func (p *pdfCanvas) SetLineWidth(w float64) { p.pdf.SetLineWidth(w) }

func (p *pdfCanvas) SetFont(style string, size float64) { p.pdf.SetFont("Helvetica", style, size) }

func (p *pdfCanvas) Rect(x, y, w, h float64, style string) { p.pdf.Rect(x, y, w, h, style) }

func (p *pdfCanvas) Line(x1, y1, x2, y2 float64) { p.pdf.Line(x1, y1, x2, y2) }

// Text draws s with its baseline at y; x is the left edge, centre or right edge per a.
func (p *pdfCanvas) Text(x, y float64, s string, a align) {
	s = p.tr(s)
	switch a {
	case alignCenter:
		x -= p.pdf.GetStringWidth(s) / 2
	case alignRight:
		x -= p.pdf.GetStringWidth(s)
	}
	p.pdf.Text(x, y, s)
}

func (p *pdfCanvas) Image(name, kind string, data []byte, x, y, w, h float64) {
	opt := fpdf.ImageOptions{ImageType: kind}
	p.pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(data))
	p.pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
}

func (p *pdfCanvas) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
