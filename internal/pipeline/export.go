package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"platval/internal"
)

const reportSheet = "Donation Value"

// ExportReportToXLSX renders the aggregated report: priced rows, a total
// row, then the unresolved and aborted sections when present.
func ExportReportToXLSX(report internal.ReportTotals, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetName(sheet, reportSheet)
	sheet = reportSheet

	set := func(col, row int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, value)
	}

	headers := []string{"Item", "Category", "Quantity", "Unit Price", "Subtotal"}
	for i, h := range headers {
		set(i+1, 1, h)
	}

	r := 2
	for _, row := range report.Rows {
		set(1, r, row.Item.DisplayName)
		set(2, r, string(row.Item.Category))
		set(3, r, row.Quantity)
		set(4, r, row.UnitPrice.InexactFloat64())
		set(5, r, row.Subtotal.InexactFloat64())
		r++
	}

	set(4, r, "Total")
	set(5, r, report.GrandTotal.InexactFloat64())
	r += 2

	if len(report.Unresolved) > 0 {
		set(1, r, "Unresolved")
		r++
		set(1, r, "Line")
		set(2, r, "Raw Text")
		set(3, r, "Note")
		r++
		for _, u := range report.Unresolved {
			set(1, r, u.LineNo)
			set(2, r, u.RawLine)
			set(3, r, u.Note)
			r++
		}
		r++
	}

	if len(report.Aborted) > 0 {
		set(1, r, "Aborted (lookup cancelled)")
		r++
		set(1, r, "Item")
		set(2, r, "Quantity")
		r++
		for _, a := range report.Aborted {
			set(1, r, a.ItemID)
			set(2, r, a.Quantity)
			r++
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
