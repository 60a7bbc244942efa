package documents

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	pageMargin = 12.0
	rowHeight  = 7.0
	qrSize     = 28.0
)

var (
	brandColor  = [3]int{34, 94, 60}
	shadeColor  = [3]int{238, 244, 239}
	headerColor = [3]int{214, 230, 218}
)

type column struct {
	title string
	width float64
	align string
	value func(Line) string
}

var itemColumns = []column{
	{"#", 8, "C", func(l Line) string { return l.No }},
	{"Product", 40, "L", func(l Line) string { return l.Product }},
	{"Variety", 28, "L", func(l Line) string { return l.Variety }},
	{"Size/Grade", 20, "L", func(l Line) string { return l.SizeGrade }},
	{"Pack", 22, "L", func(l Line) string { return l.PackType }},
	{"Qty", 16, "R", func(l Line) string { return l.Quantity }},
	{"Unit wt", 24, "R", func(l Line) string { return l.UnitWeight }},
	{"Total wt", 28, "R", func(l Line) string { return l.TotalWeight }},
}

const ContentTypePDF = "application/pdf"

// Document is a rendered file ready to download or save.
type Document struct {
	Filename string
	Data     []byte
}

// Render draws the sheet as an A4 PDF. Output is fully buffered by fpdf, so
// nothing reaches w unless the whole document rendered.
func Render(w io.Writer, s Sheet, createdAt time.Time) error {
	qrPNG, err := qrcode.Encode(s.StatusURL, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode status code: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(createdAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(s.Title+" "+s.DocumentNo, true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.RegisterImageOptionsReader("status-qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 4, tr(s.DocumentNo+"  |  "+s.StatusURL), "", 0, "L", false, 0, "")
		pdf.SetX(pageMargin)
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	r := &renderer{pdf: pdf, tr: tr, sheet: s}
	pdf.AddPage()
	r.header()
	r.parties()
	r.details()
	r.items()
	r.signatures()

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render delivery advice: %w", err)
	}
	return pdf.Output(w)
}

type renderer struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	sheet Sheet
}

func (r *renderer) contentWidth() float64 {
	w, _ := r.pdf.GetPageSize()
	left, _, right, _ := r.pdf.GetMargins()
	return w - left - right
}

func (r *renderer) bottomLimit() float64 {
	_, h := r.pdf.GetPageSize()
	return h - pageMargin - 8
}

// fit shortens s until it fits a cell of width w.
func (r *renderer) fit(s string, w float64) string {
	s = r.tr(s)
	if r.pdf.GetStringWidth(s) <= w-2 {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 && r.pdf.GetStringWidth(string(runes)+"...") > w-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (r *renderer) header() {
	pdf := r.pdf
	x, y := pdf.GetXY()
	width := r.contentWidth()

	pdf.SetFillColor(brandColor[0], brandColor[1], brandColor[2])
	pdf.Rect(x, y, width-qrSize-4, qrSize, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(x+4, y+3)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(width-qrSize-12, 8, "FreshDock", "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(width-qrSize-12, 6, r.tr(r.sheet.Title), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(width-qrSize-12, 7, r.tr("No. "+r.sheet.DocumentNo+"   Ref. "+r.sheet.Reference), "", 2, "L", false, 0, "")

	pdf.ImageOptions("status-qr", x+width-qrSize, y, qrSize, qrSize, false,
		fpdf.ImageOptions{ImageType: "PNG"}, 0, r.sheet.StatusURL)

	pdf.SetTextColor(60, 60, 60)
	pdf.SetXY(x, y+qrSize+1)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(width-qrSize-4, 4, r.tr("Generated "+r.sheet.GeneratedOn), "", 0, "L", false, 0, "")
	pdf.CellFormat(qrSize+4, 4, "Scan for status", "", 1, "R", false, 0, "")
	pdf.Ln(3)
}

func (r *renderer) parties() {
	pdf := r.pdf
	colW := r.contentWidth() / float64(len(r.sheet.Parties))
	x, y := pdf.GetXY()

	maxY := y
	for i, p := range r.sheet.Parties {
		cx := x + float64(i)*colW
		pdf.SetXY(cx, y)
		pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(30, 30, 30)
		pdf.CellFormat(colW-2, 6, r.tr(p.Heading), "", 2, "L", true, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(colW-2, 5, r.fit(p.Name, colW-2), "", 2, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		for _, line := range p.Lines {
			pdf.CellFormat(colW-2, 4.5, r.fit(line, colW-2), "", 2, "L", false, 0, "")
		}
		if pdf.GetY() > maxY {
			maxY = pdf.GetY()
		}
	}
	pdf.SetXY(x, maxY+4)
}

func (r *renderer) details() {
	pdf := r.pdf
	width := r.contentWidth()
	labelW, valueW := 32.0, width/2-32.0

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.CellFormat(width, 6, "Dispatch details", "", 1, "L", true, 0, "")

	for i, f := range r.sheet.Details {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(labelW, 5.5, r.tr(f.Label), "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		ln := 0
		if i%2 == 1 || i == len(r.sheet.Details)-1 {
			ln = 1
		}
		pdf.CellFormat(valueW, 5.5, r.fit(f.Value, valueW), "B", ln, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (r *renderer) tableHeader() {
	pdf := r.pdf
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(brandColor[0], brandColor[1], brandColor[2])
	pdf.SetTextColor(255, 255, 255)
	for _, c := range itemColumns {
		pdf.CellFormat(c.width, rowHeight, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(30, 30, 30)
}

func (r *renderer) items() {
	pdf := r.pdf
	r.tableHeader()

	pdf.SetFont("Helvetica", "", 8)
	for i, line := range r.sheet.Lines {
		if pdf.GetY()+rowHeight > r.bottomLimit() {
			pdf.AddPage()
			r.tableHeader()
			pdf.SetFont("Helvetica", "", 8)
		}
		fill := i%2 == 1
		pdf.SetFillColor(shadeColor[0], shadeColor[1], shadeColor[2])
		for _, c := range itemColumns {
			pdf.CellFormat(c.width, rowHeight, r.fit(c.value(line), c.width), "LR", 0, c.align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.GetY()+rowHeight > r.bottomLimit() {
		pdf.AddPage()
		r.tableHeader()
	}

	var leadW float64
	for _, c := range itemColumns[:5] {
		leadW += c.width
	}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.CellFormat(leadW, rowHeight, "Totals", "1", 0, "R", true, 0, "")
	pdf.CellFormat(itemColumns[5].width, rowHeight, r.sheet.TotalQuantity, "1", 0, "R", true, 0, "")
	pdf.CellFormat(itemColumns[6].width, rowHeight, "", "1", 0, "R", true, 0, "")
	pdf.CellFormat(itemColumns[7].width, rowHeight, r.sheet.TotalWeight, "1", 1, "R", true, 0, "")
	pdf.Ln(6)
}

func (r *renderer) signatures() {
	pdf := r.pdf
	const blockH = 44.0
	if pdf.GetY()+blockH > r.bottomLimit() {
		pdf.AddPage()
	}

	colW := r.contentWidth() / float64(len(r.sheet.Signatures))
	x, y := pdf.GetXY()
	for i, sig := range r.sheet.Signatures {
		cx := x + float64(i)*colW
		pdf.Rect(cx, y, colW-3, blockH, "D")

		pdf.SetXY(cx+2, y+2)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(colW-7, 5, r.tr(sig.Title), "", 2, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		pdf.MultiCell(colW-7, 3.5, r.tr(sig.Statement), "", "L", false)

		pdf.SetXY(cx+2, y+blockH-18)
		for _, label := range []string{"Name", "Signature", "Date"} {
			pdf.CellFormat(colW-7, 5.5, label+":", "B", 2, "L", false, 0, "")
		}
	}
	pdf.SetXY(x, y+blockH+2)
}
