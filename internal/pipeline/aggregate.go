package pipeline

import (
	"github.com/shopspring/decimal"

	"platval/internal"
)

// Aggregate folds ordered line results into the report: one row per
// canonical id, quantities summed, rows in first-occurrence order so the
// report mirrors donation order. Unresolved lines never touch the totals.
func Aggregate(results []internal.LineResult) internal.ReportTotals {
	report := internal.ReportTotals{
		Rows:       []internal.ReportRow{},
		GrandTotal: decimal.Zero,
		Unresolved: []internal.UnresolvedEntry{},
		Aborted:    []internal.AbortedEntry{},
	}

	rowIndex := map[string]int{}
	abortedIndex := map[string]int{}

	for _, res := range results {
		switch res.Status {
		case internal.LinePriced:
			idx, ok := rowIndex[res.Item.ID]
			if !ok {
				idx = len(report.Rows)
				rowIndex[res.Item.ID] = idx
				report.Rows = append(report.Rows, internal.ReportRow{
					Item:      *res.Item,
					UnitPrice: res.Quote.Platinum,
				})
			}
			report.Rows[idx].Quantity += res.Request.Quantity

		case internal.LineAborted:
			idx, ok := abortedIndex[res.Item.ID]
			if !ok {
				idx = len(report.Aborted)
				abortedIndex[res.Item.ID] = idx
				report.Aborted = append(report.Aborted, internal.AbortedEntry{ItemID: res.Item.ID})
			}
			report.Aborted[idx].Quantity += res.Request.Quantity

		case internal.LineUnresolved:
			report.Unresolved = append(report.Unresolved, internal.UnresolvedEntry{
				LineNo:  res.Request.LineNo,
				RawLine: res.Request.RawLine,
				Name:    res.Request.Name,
				Note:    res.Note,
			})
		}
	}

	for i := range report.Rows {
		row := &report.Rows[i]
		row.Subtotal = row.UnitPrice.Mul(decimal.NewFromInt(int64(row.Quantity)))
		report.GrandTotal = report.GrandTotal.Add(row.Subtotal)
	}

	return report
}
