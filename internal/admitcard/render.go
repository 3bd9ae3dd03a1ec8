package admitcard

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"preboard/internal/schedule"
	"preboard/internal/student"
)

//go:embed assets/crest.png
var defaultCrest []byte

// ContentType of every rendered card.
const ContentType = "application/pdf"

// RenderError reports a required record field that was empty; no document is produced.
type RenderError struct {
	Field string
}

func (e *RenderError) Error() string {
	return "admit card: missing " + e.Field
}

// Images are the optional raw uploads placed on the card.
type Images struct {
	Photograph []byte
	Signature  []byte
}

// Document is a rendered card ready to be offered as a download.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Filename is the download name of a card: admit_card_<class>_<rollNo>.pdf.
func Filename(class, rollNo string) string {
	return fmt.Sprintf("admit_card_%s_%s.pdf", class, rollNo)
}

// Renderer lays out admit cards. It is safe for concurrent use.
type Renderer struct {
	table *schedule.Table
	crest []byte
	now   func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock fixes the document timestamps. Repeated renders of one record then carry the
// same text and layout; image objects may still be numbered in a different order.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// New creates a renderer over table. A nil crest uses the built-in one; a crest that
// cannot be decoded is left off every card.
func New(table *schedule.Table, crest []byte, opts ...Option) *Renderer {
	if crest == nil {
		crest = defaultCrest
	}
	r := &Renderer{table: table, now: time.Now}
	if png, err := normalizeSignature(crest); err == nil {
		r.crest = png
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadCrest reads a crest override from path; an empty path means the built-in crest.
func LoadCrest(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// Render produces the card for rec. Photograph and signature uploads that fail to decode
// are skipped with a warning and the placeholders stay in place.
func (r *Renderer) Render(rec *student.Record, img Images) (*Document, error) {
	if err := checkRequired(rec); err != nil {
		return nil, err
	}

	var photo, sig []byte
	if len(img.Photograph) > 0 {
		p, err := normalizePhotograph(img.Photograph)
		if err != nil {
			log.Printf("admit card %s/%s: photograph skipped: %v", rec.Class, rec.RollNo, err)
		} else {
			photo = p
		}
	}
	if len(img.Signature) > 0 {
		s, err := normalizeSignature(img.Signature)
		if err != nil {
			log.Printf("admit card %s/%s: signature skipped: %v", rec.Class, rec.RollNo, err)
		} else {
			sig = s
		}
	}

	pc := newPDFCanvas(r.now())
	r.draw(pc, rec, photo, sig)
	data, err := pc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("admit card: write pdf: %w", err)
	}
	return &Document{Filename: Filename(rec.Class, rec.RollNo), ContentType: ContentType, Data: data}, nil
}

func checkRequired(rec *student.Record) error {
	if rec == nil {
		return &RenderError{Field: "record"}
	}
	required := []struct {
		field string
		value string
	}{
		{"class", rec.Class},
		{"roll_no", rec.RollNo},
		{"student_name", rec.StudentName},
		{"father_name", rec.FatherName},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &RenderError{Field: f.field}
		}
	}
	if rec.DOB.IsZero() {
		return &RenderError{Field: "dob"}
	}
	return nil
}

// draw lays out one card on c and returns the y of the signature rules.
func (r *Renderer) draw(c canvas, rec *student.Record, photo, sig []byte) float64 {
	w, h := c.PageSize()
	mid := w / 2

	c.SetDrawColor(colorRed)
	c.SetLineWidth(2)
	c.Rect(outerInset, outerInset, w-2*outerInset, h-2*outerInset, "D")
	c.SetLineWidth(0.5)
	c.Rect(innerInset, innerInset, w-2*innerInset, h-2*innerInset, "D")

	c.SetFont("B", 9)
	c.SetTextColor(colorRed)
	c.Text(codesX, codesY, affiliationNo, alignLeft)
	c.Text(mid, codesY, schoolCode, alignCenter)
	c.Text(w-codesX, codesY, udiseCode, alignRight)

	if r.crest != nil {
		c.Image("crest", "PNG", r.crest, mid-crestSize/2, crestY, crestSize, crestSize)
	}

	c.SetFont("B", 20)
	c.Text(mid, nameY, schoolName, alignCenter)
	c.SetFont("B", 10)
	c.SetTextColor(colorBlack)
	c.Text(mid, addressY, schoolAddress, alignCenter)
	c.Text(mid, phoneY, schoolPhone, alignCenter)
	c.SetFont("B", 8)
	c.SetTextColor(colorRed)
	c.Text(mid, contactY, schoolContact, alignCenter)

	c.SetDrawColor(colorBeige)
	c.SetLineWidth(1)
	c.Line(dividerInset, dividerY, w-dividerInset, dividerY)

	c.SetFont("B", 16)
	c.SetTextColor(colorBlack)
	c.Text(mid, examTitleY, examTitle, alignCenter)
	c.SetFont("B", 14)
	c.SetTextColor(colorBeige)
	c.Text(mid, cardTitleY, cardTitle, alignCenter)

	c.SetTextColor(colorBlack)
	y := detailsY
	for _, d := range [][2]string{
		{"Name", rec.StudentName},
		{"Class", rec.Class},
		{"Roll No", rec.RollNo},
		{"DOB", rec.DOB.Format(DOBLayout)},
		{"Father's Name", rec.FatherName},
	} {
		c.SetFont("B", 11)
		c.Text(labelX, y, d[0]+":", alignLeft)
		c.SetFont("", 11)
		c.Text(valueX, y, d[1], alignLeft)
		y += detailsHeight
	}

	c.SetDrawColor(colorBeige)
	c.SetLineWidth(0.5)
	c.Rect(w-photoBoxRight, photoBoxY, photoBoxW, photoBoxH, "D")
	c.SetFont("", 8)
	c.SetTextColor(colorGray)
	c.Text(w-photoLabelRight, photoLabelY, "Photo", alignCenter)
	if photo != nil {
		c.Image("photograph", "JPG", photo, w-photoRight, photoY, photoW, photoH)
	}

	c.SetFillColor(colorBeige)
	c.Rect(tableX, titleBarY, w-2*tableX, rowHeight, "F")
	c.SetFont("B", 10)
	c.SetTextColor(colorBlack)
	c.Text(mid, titleTextY, scheduleTitle, alignCenter)

	c.SetFont("", 9)
	c.SetTextColor(colorRed)
	c.Text(mid, timingY, r.table.Timing(), alignCenter)

	c.SetFillColor(colorHeader)
	c.Rect(tableX, headerRowY, w-2*tableX, rowHeight, "F")
	c.SetDrawColor(colorDarkRed)
	c.SetLineWidth(tableBorder)
	c.Rect(tableX, headerRowY, w-2*tableX, rowHeight, "D")
	c.SetTextColor(colorBlack)
	c.Text(dateColX, headerTextY, "Date", alignLeft)
	c.Text(dayColX, headerTextY, "Day", alignLeft)
	c.Text(subjectColX, headerTextY, "Subject", alignLeft)

	anchor := firstRowY
	if entries, ok := r.table.Lookup(rec.Class); ok {
		rowY := firstRowY
		for _, e := range entries {
			c.Text(dateColX, rowY, e.Date.Format(schedule.DateLayout), alignLeft)
			c.Text(dayColX, rowY, e.Day, alignLeft)
			c.Text(subjectColX, rowY, e.Subject, alignLeft)
			rowY += rowHeight
		}
		anchor = rowY + signatureGap
		c.SetDrawColor(colorDarkRed)
		c.SetLineWidth(tableBorder)
		c.Rect(tableX, headerRowY, w-2*tableX, rowY-headerRowY, "D")
	}

	c.SetDrawColor(colorBlack)
	c.Line(ruleLeftFrom, anchor, ruleLeftTo, anchor)
	c.Line(w-ruleLeftTo, anchor, w-ruleLeftFrom, anchor)
	c.SetFont("", 9)
	c.Text(studentCaptionX, anchor+captionOffset, "Student's Signature", alignCenter)
	c.Text(w-studentCaptionX, anchor+captionOffset, "Principal's Signature", alignCenter)
	if sig != nil {
		c.Image("signature", "PNG", sig, signatureX, anchor-signatureLift, signatureW, signatureH)
	}

	c.SetFont("", 8)
	c.SetTextColor(colorGray)
	c.Text(mid, footerY, footerNote, alignCenter)
	return anchor
}
