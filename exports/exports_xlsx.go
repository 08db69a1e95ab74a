package exports

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"preferio/report"
)

const sheetName = "Landfill Report"

func cellName(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

// renderWorkbook builds the report as an Excel workbook: title, header
// info block, the row grid and a bold totals row.
func renderWorkbook(doc report.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheetName)

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	totalsStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: []excelize.Border{{Type: "top", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("totals style: %w", err)
	}

	columns := []string{
		"No.", "Receive Ton", "Ton", "Total Ton", "Pricing", "GCV",
		"Multi", "Price", "Baht/Ton", "Amount", "VAT", "Total", "Remark",
	}

	f.MergeCell(sheetName, "A1", cellName(len(columns), 1))
	f.SetCellValue(sheetName, "A1", doc.ReportInfo.Title)
	f.SetCellStyle(sheetName, "A1", cellName(len(columns), 1), titleStyle)

	info := [][2]any{
		{"Company", doc.ReportInfo.Company},
		{"Period", doc.ReportInfo.Period},
		{"Report ID", doc.ReportInfo.ReportID},
		{"Quota Weight", doc.ReportInfo.QuotaWeight},
		{"Reference", doc.ReportInfo.Reference},
		{"Report By", doc.ReportInfo.ReportBy},
		{"Price Reference", doc.ReportInfo.PriceReference},
		{"Adjustment", doc.ReportInfo.Adjustment},
	}
	for i, kv := range info {
		f.SetCellValue(sheetName, cellName(1, i+2), kv[0])
		f.SetCellValue(sheetName, cellName(2, i+2), kv[1])
	}

	gridTop := len(info) + 3
	for i, name := range columns {
		f.SetCellValue(sheetName, cellName(i+1, gridTop), name)
	}
	f.SetCellStyle(sheetName, cellName(1, gridTop), cellName(len(columns), gridTop), headerStyle)

	for i, row := range doc.DataRows {
		rowNum := gridTop + i + 1
		f.SetCellValue(sheetName, cellName(1, rowNum), i+1)
		setOptional(f, cellName(2, rowNum), row.ReceiveTon)
		f.SetCellValue(sheetName, cellName(3, rowNum), row.Ton)
		f.SetCellValue(sheetName, cellName(4, rowNum), row.TotalTon)
		f.SetCellValue(sheetName, cellName(5, rowNum), row.PricingType)
		setOptional(f, cellName(6, rowNum), row.GCV)
		setOptional(f, cellName(7, rowNum), row.Multi)
		setOptional(f, cellName(8, rowNum), row.Price)
		f.SetCellValue(sheetName, cellName(9, rowNum), row.BahtPerTon)
		f.SetCellValue(sheetName, cellName(10, rowNum), row.Amount)
		f.SetCellValue(sheetName, cellName(11, rowNum), row.VAT)
		f.SetCellValue(sheetName, cellName(12, rowNum), row.Total)
		f.SetCellValue(sheetName, cellName(13, rowNum), row.Remark)
	}

	totalsRow := gridTop + len(doc.DataRows) + 1
	f.SetCellValue(sheetName, cellName(1, totalsRow), "Total")
	f.SetCellValue(sheetName, cellName(2, totalsRow), doc.Totals.ReceiveTon)
	f.SetCellValue(sheetName, cellName(3, totalsRow), doc.Totals.Ton)
	f.SetCellValue(sheetName, cellName(4, totalsRow), doc.Totals.TotalTon)
	f.SetCellValue(sheetName, cellName(10, totalsRow), doc.Totals.Amount)
	f.SetCellValue(sheetName, cellName(11, totalsRow), doc.Totals.VAT)
	f.SetCellValue(sheetName, cellName(12, totalsRow), doc.Totals.Total)
	f.SetCellStyle(sheetName, cellName(1, totalsRow), cellName(len(columns), totalsRow), totalsStyle)

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      gridTop,
		TopLeftCell: cellName(1, gridTop+1),
		ActivePane:  "bottomLeft",
	})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setOptional(f *excelize.File, cell string, v *float64) {
	if v == nil {
		return
	}
	f.SetCellValue(sheetName, cell, *v)
}
