package exports

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strconv"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"

	"preferio/report"
)

// renderPDF lays out the report on A4 landscape: title, header info,
// the row table with a totals line and a code128 barcode of the report
// id in the bottom corner.
func renderPDF(doc report.Document) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Landfill Report "+doc.ID, false)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, doc.ReportInfo.Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Company: %s    Period: %s    Report ID: %s", doc.ReportInfo.Company, doc.ReportInfo.Period, doc.ReportInfo.ReportID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Quota Weight: %s    Reference: %s    Report By: %s", num(doc.ReportInfo.QuotaWeight), doc.ReportInfo.Reference, doc.ReportInfo.ReportBy), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	headers := []string{"No.", "Receive Ton", "Ton", "Total Ton", "Pricing", "GCV", "Multi", "Price", "Baht/Ton", "Amount", "VAT", "Total"}
	widths := []float64{12, 24, 20, 22, 18, 20, 16, 20, 22, 26, 20, 26}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(224, 224, 224)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, row := range doc.DataRows {
		cells := []string{
			strconv.Itoa(i + 1),
			optNum(row.ReceiveTon),
			num(row.Ton),
			num(row.TotalTon),
			row.PricingType,
			optNum(row.GCV),
			optNum(row.Multi),
			optNum(row.Price),
			num(row.BahtPerTon),
			num(row.Amount),
			num(row.VAT),
			num(row.Total),
		}
		for j, c := range cells {
			pdf.CellFormat(widths[j], 6, c, "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 9)
	totals := []string{
		"Total",
		num(doc.Totals.ReceiveTon),
		num(doc.Totals.Ton),
		num(doc.Totals.TotalTon),
		"", "", "", "", "",
		num(doc.Totals.Amount),
		num(doc.Totals.VAT),
		num(doc.Totals.Total),
	}
	for j, c := range totals {
		pdf.CellFormat(widths[j], 7, c, "1", 0, "R", false, 0, "")
	}
	pdf.Ln(-1)

	barcodePNG, err := renderCode128PNG(doc.ID, 600, 140)
	if err != nil {
		return nil, err
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("report-barcode-"+doc.ID, opt, bytes.NewReader(barcodePNG))
	imgW, imgH := 60.0, 14.0
	x := pageW - imgW - 12
	y := pageH - imgH - 18
	pdf.ImageOptions("report-barcode-"+doc.ID, x, y, imgW, imgH, false, opt, 0, "")
	pdf.SetXY(x, y+imgH)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(imgW, 5, doc.ID, "", 0, "C", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	bounds := scaled.Bounds()
	normalized := image.NewNRGBA(bounds)
	draw.Draw(normalized, bounds, scaled, bounds.Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
