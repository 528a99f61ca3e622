package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"

	"platval/internal"
)

func pricedResult(lineNo int, id string, qty int, unit int64) internal.LineResult {
	item := internal.CanonicalItem{ID: id, DisplayName: id, Category: internal.CategoryItem}
	quote := internal.PriceQuote{ItemID: id, Platinum: decimal.NewFromInt(unit)}
	return internal.LineResult{
		Request:  internal.ParsedRequest{LineNo: lineNo, RawLine: id, Name: id, Quantity: qty},
		Status:   internal.LinePriced,
		Reason:   internal.ReasonNormalized,
		Item:     &item,
		Quote:    &quote,
		Subtotal: decimal.NewFromInt(unit * int64(qty)),
	}
}

func unresolvedResult(lineNo int, raw string) internal.LineResult {
	return internal.LineResult{
		Request: internal.ParsedRequest{LineNo: lineNo, RawLine: raw, Name: raw, Quantity: 1},
		Status:  internal.LineUnresolved,
		Reason:  internal.ReasonNone,
		Note:    "no alias or catalog match",
	}
}

func TestAggregateGroupsAndTotals(t *testing.T) {
	results := []internal.LineResult{
		pricedResult(1, "ash_prime_blueprint", 1, 15),
		pricedResult(2, "serration", 2, 5),
		unresolvedResult(3, "2 unknown_made_up_item"),
		pricedResult(4, "ash_prime_blueprint", 1, 15),
	}

	report := Aggregate(results)

	if len(report.Rows) != 2 {
		t.Fatalf("rows=%d", len(report.Rows))
	}
	// First-occurrence order, not alphabetical.
	if report.Rows[0].Item.ID != "ash_prime_blueprint" || report.Rows[1].Item.ID != "serration" {
		t.Fatalf("order: %s, %s", report.Rows[0].Item.ID, report.Rows[1].Item.ID)
	}
	if report.Rows[0].Quantity != 2 {
		t.Fatalf("quantity=%d", report.Rows[0].Quantity)
	}
	if !report.Rows[0].Subtotal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("subtotal=%s", report.Rows[0].Subtotal)
	}

	sum := decimal.Zero
	for _, row := range report.Rows {
		sum = sum.Add(row.Subtotal)
	}
	if !report.GrandTotal.Equal(sum) {
		t.Fatalf("grandTotal=%s sum=%s", report.GrandTotal, sum)
	}
	if !report.GrandTotal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("grandTotal=%s", report.GrandTotal)
	}

	if len(report.Unresolved) != 1 {
		t.Fatalf("unresolved=%d", len(report.Unresolved))
	}
	if report.Unresolved[0].LineNo != 3 {
		t.Fatalf("unresolved line=%d", report.Unresolved[0].LineNo)
	}
}

func TestAggregateAbortedExcludedFromTotals(t *testing.T) {
	item := internal.CanonicalItem{ID: "vitality", DisplayName: "Vitality", Category: internal.CategoryMod}
	results := []internal.LineResult{
		pricedResult(1, "serration", 1, 5),
		{
			Request: internal.ParsedRequest{LineNo: 2, RawLine: "2 vitality", Name: "vitality", Quantity: 2},
			Status:  internal.LineAborted,
			Reason:  internal.ReasonNormalized,
			Item:    &item,
			Note:    "price lookup aborted",
		},
		{
			Request: internal.ParsedRequest{LineNo: 3, RawLine: "vitality", Name: "vitality", Quantity: 1},
			Status:  internal.LineAborted,
			Reason:  internal.ReasonNormalized,
			Item:    &item,
		},
	}

	report := Aggregate(results)

	if !report.GrandTotal.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("grandTotal=%s", report.GrandTotal)
	}
	if len(report.Aborted) != 1 {
		t.Fatalf("aborted=%d", len(report.Aborted))
	}
	if report.Aborted[0].ItemID != "vitality" || report.Aborted[0].Quantity != 3 {
		t.Fatalf("aborted=%+v", report.Aborted[0])
	}
}
