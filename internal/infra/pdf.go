package infra

import (
	"bytes"
	"fmt"

	"fastclick/internal/model"

	"github.com/go-pdf/fpdf"
)

// RenderReceiptPDF lays a checkout receipt out on a narrow till-roll page:
// header, checkout reference, one line per sold item, total.
func RenderReceiptPDF(r *model.Receipt) ([]byte, error) {
	height := 70 + 5*float64(len(r.ItemsPurchased))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "Fastclick", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Checkout "+r.CheckoutID.String(), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, r.SaleDate.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, "Buyer: "+tr(r.Email), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	nameW := contentW * 0.70
	priceW := contentW * 0.30

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(nameW, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(priceW, 5, "Price", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, line := range r.ItemsPurchased {
		name := []rune(line.Name)
		if len(name) > 34 {
			name = append(name[:33], '.')
		}
		pdf.CellFormat(nameW, 5, tr(string(name)), "", 0, "L", false, 0, "")
		pdf.CellFormat(priceW, 5, line.Price, "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(nameW, 6, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(priceW, 6, r.Total.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Thank you for your purchase!", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
