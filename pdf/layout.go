/*
layout.go - Invoice page layout

PURPOSE:
  Builds the printable document model (format stage) and lays it out
  onto A4 pages (render stage). Pagination is manual: the writer tracks
  the vertical cursor and opens a new page when the next row would not
  fit, so tables never straddle the page margin.

TEXT WRAPPING:
  Descriptions and notes are mixed-language (Latin + CJK). Width is
  measured per rune: ASCII through the font metrics, everything else as
  two reference characters wide. That keeps CJK-heavy lines from
  overflowing their cell even on the core Latin fonts, where the font
  metrics don't know the glyphs. A UTF-8 TTF can be supplied for real
  CJK glyph coverage; the wrapping estimate applies either way.
*/
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/atelier/billing-engine/billing"
	"github.com/atelier/billing-engine/schedule"
)

// invoiceDocument is the fully formatted, layout-ready model. All rich
// text is already stripped and all numbers are display strings.
type invoiceDocument struct {
	Number     string
	ClientName string
	IssueDate  string
	DueDate    string
	Status     string
	Notes      string

	Items     []itemRow
	Total     string
	Schedules []schedule.DisplayRow
	Check     string // sum warning, empty when the schedule is valid
}

type itemRow struct {
	Description string
	Quantity    string
	Rate        string
	Amount      string
}

// formatInvoice produces the document model from the stored aggregate.
func formatInvoice(inv *billing.Invoice, client *billing.Client) invoiceDocument {
	doc := invoiceDocument{
		Number:    inv.Number,
		IssueDate: inv.IssueDate,
		DueDate:   inv.DueDate,
		Status:    strings.ToUpper(string(inv.Status)),
		Notes:     stripTags(inv.Notes),
	}
	if client != nil {
		doc.ClientName = stripTags(client.Name)
	}

	currency := inv.Currency
	for _, item := range inv.Items {
		doc.Items = append(doc.Items, itemRow{
			Description: stripTags(item.Description),
			Quantity:    item.Quantity.String(),
			Rate:        schedule.FormatCurrency(item.Rate, currency),
			Amount:      schedule.FormatCurrency(item.Amount(), currency),
		})
	}
	doc.Total = schedule.FormatCurrency(inv.Total(), currency)

	rows := schedule.DisplayRows(schedule.SortForDisplay(inv.Schedules), currency)
	for i := range rows {
		rows[i].Description = stripTags(rows[i].Description)
	}
	doc.Schedules = rows
	doc.Check = schedule.Check(inv.Schedules).Warning()

	return doc
}

// =============================================================================
// PAGE WRITER
// =============================================================================

const (
	pageMargin = 15.0
	pageBottom = 282.0 // A4 height minus margin
	lineHeight = 6.0
	fontSize   = 10.0
)

type pageWriter struct {
	pdf      *gofpdf.Fpdf
	font     string
	width    float64 // usable width between margins
	y        float64
	refWidth float64 // width of one reference character at body size
}

func newPageWriter(fontPath string) *pageWriter {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Uncompressed streams keep even a near-empty invoice above the
	// corruption floor the verify stage enforces.
	pdf.SetCompression(false)
	pdf.SetAutoPageBreak(false, 0)

	font := "Helvetica"
	if fontPath != "" {
		font = "body"
		pdf.AddUTF8Font(font, "", fontPath)
	}
	pdf.SetFont(font, "", fontSize)

	w, _ := pdf.GetPageSize()
	pw := &pageWriter{
		pdf:      pdf,
		font:     font,
		width:    w - 2*pageMargin,
		refWidth: pdf.GetStringWidth("0"),
	}
	pw.newPage()
	return pw
}

func (w *pageWriter) newPage() {
	w.pdf.AddPage()
	w.y = pageMargin
}

// ensure opens a new page when the next block of the given height would
// cross the bottom margin.
func (w *pageWriter) ensure(height float64) {
	if w.y+height > pageBottom {
		w.newPage()
	}
}

// textWidth estimates rendered width, counting non-ASCII runes as two
// reference characters.
func (w *pageWriter) textWidth(s string) float64 {
	var wide int
	var ascii []rune
	for _, r := range s {
		if r < 0x80 {
			ascii = append(ascii, r)
		} else {
			wide++
		}
	}
	return w.pdf.GetStringWidth(string(ascii)) + float64(wide)*2*w.refWidth
}

// wrap splits s into lines that fit the given width. Breaks on spaces
// where possible, mid-word (and mid-CJK-run) otherwise.
func (w *pageWriter) wrap(s string, width float64) []string {
	if s == "" {
		return []string{""}
	}

	var lines []string
	var line []rune
	lineW := 0.0

	flush := func() {
		lines = append(lines, strings.TrimRight(string(line), " "))
		line = line[:0]
		lineW = 0
	}

	for _, r := range s {
		rw := 2 * w.refWidth
		if r < 0x80 {
			rw = w.pdf.GetStringWidth(string(r))
		}
		if lineW+rw > width && len(line) > 0 {
			// Back up to the last space when one exists.
			if idx := lastSpace(line); idx > 0 && r < 0x80 && r != ' ' {
				rest := append([]rune(nil), line[idx+1:]...)
				line = line[:idx]
				flush()
				line = append(line, rest...)
				lineW = w.textWidth(string(line))
			} else {
				flush()
			}
			if r == ' ' && len(line) == 0 {
				continue
			}
		}
		line = append(line, r)
		lineW += rw
	}
	if len(line) > 0 {
		flush()
	}
	return lines
}

func lastSpace(line []rune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] == ' ' {
			return i
		}
	}
	return -1
}

func (w *pageWriter) heading(text string) {
	w.ensure(2 * lineHeight)
	w.pdf.SetFont(w.font, "B", fontSize+2)
	w.pdf.Text(pageMargin, w.y+lineHeight, text)
	w.pdf.SetFont(w.font, "", fontSize)
	w.y += 2 * lineHeight
}

func (w *pageWriter) line(text string) {
	for _, part := range strings.Split(text, "\n") {
		for _, l := range w.wrap(strings.TrimSpace(part), w.width) {
			w.ensure(lineHeight)
			w.pdf.Text(pageMargin, w.y+lineHeight-1.5, l)
			w.y += lineHeight
		}
	}
}

// tableRow writes one row of cells at the given column offsets, wrapping
// the first column and keeping the whole row on one page.
func (w *pageWriter) tableRow(cols []float64, cells []string, bold bool) {
	wrapped := w.wrap(cells[0], cols[1]-cols[0]-2)
	height := float64(len(wrapped)) * lineHeight
	w.ensure(height)

	if bold {
		w.pdf.SetFont(w.font, "B", fontSize)
		defer w.pdf.SetFont(w.font, "", fontSize)
	}
	base := w.y + lineHeight - 1.5
	for i, l := range wrapped {
		w.pdf.Text(pageMargin+cols[0], base+float64(i)*lineHeight, l)
	}
	for i := 1; i < len(cells); i++ {
		w.pdf.Text(pageMargin+cols[i], base, cells[i])
	}
	w.y += height
}

func (w *pageWriter) spacer() { w.y += lineHeight / 2 }

// =============================================================================
// RENDER
// =============================================================================

var (
	itemCols     = []float64{0, 110, 135, 160}
	scheduleCols = []float64{0, 70, 100, 120, 145, 165}
)

// renderDocument lays the document out and returns the PDF bytes.
func renderDocument(doc invoiceDocument, fontPath string) ([]byte, error) {
	w := newPageWriter(fontPath)

	w.heading(fmt.Sprintf("Invoice %s", doc.Number))
	if doc.ClientName != "" {
		w.line("Billed to: " + doc.ClientName)
	}
	if doc.IssueDate != "" {
		w.line("Issued: " + doc.IssueDate)
	}
	if doc.DueDate != "" {
		w.line("Due: " + doc.DueDate)
	}
	w.line("Status: " + doc.Status)
	w.spacer()

	w.heading("Items")
	w.tableRow(itemCols, []string{"Description", "Qty", "Rate", "Amount"}, true)
	for _, item := range doc.Items {
		w.tableRow(itemCols, []string{item.Description, item.Quantity, item.Rate, item.Amount}, false)
	}
	w.tableRow(itemCols, []string{"", "", "Total", doc.Total}, true)
	w.spacer()

	if len(doc.Schedules) > 0 {
		w.heading("Payment Schedule")
		w.tableRow(scheduleCols,
			[]string{"Description", "Due", "Percent", "Amount", "Status", "Paid on"}, true)
		for _, row := range doc.Schedules {
			w.tableRow(scheduleCols, []string{
				row.Description, row.DueDate, row.Percentage, row.Amount, row.Status, row.PaymentDate,
			}, false)
		}
		if doc.Check != "" {
			w.line(doc.Check)
		}
		w.spacer()
	}

	if doc.Notes != "" {
		w.heading("Notes")
		w.line(doc.Notes)
	}

	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
