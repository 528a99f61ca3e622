package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"platval/internal"
	"platval/internal/config"
	"platval/internal/market"
	"platval/internal/storage"
)

func seedDB(t *testing.T, dir string) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	items := []internal.CatalogItem{
		{URLName: "amars_hatred", ItemName: "Amar's Hatred"},
		{URLName: "summoners_wrath", ItemName: "Summoner's Wrath"},
		{URLName: "shotgun_cannonade", ItemName: "Shotgun Cannonade"},
		{URLName: "vitality", ItemName: "Vitality"},
		{URLName: "ash_prime_blueprint", ItemName: "Ash Prime Blueprint"},
	}
	if err := db.UpsertItems(items); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("catalog.last_sync", time.Now().UTC().Format(time.RFC3339)); err != nil {
		t.Fatal(err)
	}
	return db
}

func smokeConfig(t *testing.T, dir string) config.Config {
	t.Helper()
	cfg, _ := config.Load()
	cfg.CatalogMaxAgeHrs = 24
	cfg.PriceWorkers = 3
	cfg.AliasPath = filepath.Join(dir, "aliases.yaml")
	blob := []byte(`aliases:
  - pattern: semi-shotgun cannonade
    canonical: shotgun_cannonade
    category: mod
`)
	if err := os.WriteFile(cfg.AliasPath, blob, 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestSmokeDonationListToXLSX(t *testing.T) {
	tmp := t.TempDir()
	db := seedDB(t, tmp)
	cfg := smokeConfig(t, tmp)

	src := newCountingSource()
	src.prices["amars_hatred"] = 15
	src.prices["summoners_wrath"] = 8
	src.prices["shotgun_cannonade"] = 5
	src.prices["vitality"] = 2
	src.prices["ash_prime_blueprint"] = 20

	proc := NewProcessingService(db, cfg)
	proc.prices = src

	res, err := proc.Run(context.Background(), "text", filepath.Join("testdata", "sample_donation.txt"))
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Failures) != 0 {
		t.Fatalf("failures: %+v", res.Failures)
	}
	if res.Warning != "" {
		t.Fatalf("warning: %s", res.Warning)
	}

	report := res.Report
	if len(report.Rows) != 5 {
		t.Fatalf("rows=%d", len(report.Rows))
	}

	// Donation order preserved; duplicate ash prime lines collapse to one row.
	wantOrder := []string{"amars_hatred", "summoners_wrath", "shotgun_cannonade", "vitality", "ash_prime_blueprint"}
	for i, id := range wantOrder {
		if report.Rows[i].Item.ID != id {
			t.Fatalf("row %d = %s, want %s", i, report.Rows[i].Item.ID, id)
		}
	}
	if report.Rows[4].Quantity != 2 {
		t.Fatalf("ash prime quantity=%d", report.Rows[4].Quantity)
	}
	if report.Rows[0].Quantity != 3 || !report.Rows[0].Subtotal.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("amars row: %+v", report.Rows[0])
	}

	// 45 + 8 + 5 + 4 + 40
	if !report.GrandTotal.Equal(decimal.NewFromInt(102)) {
		t.Fatalf("grandTotal=%s", report.GrandTotal)
	}

	if len(report.Unresolved) != 1 {
		t.Fatalf("unresolved: %+v", report.Unresolved)
	}
	if report.Unresolved[0].Name != "unknown_made_up_item" {
		t.Fatalf("unresolved name=%s", report.Unresolved[0].Name)
	}

	for id := range src.prices {
		if got := src.callCount(id); got != 1 {
			t.Fatalf("calls for %s = %d", id, got)
		}
	}
	if got := src.callCount("unknown_made_up_item"); got != 0 {
		t.Fatalf("unresolved item was fetched %d times", got)
	}

	out := filepath.Join(tmp, "report.xlsx")
	if err := ExportReportToXLSX(report, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
}

func TestRunAbortsLookupsOnAuthFailure(t *testing.T) {
	tmp := t.TempDir()
	db := seedDB(t, tmp)
	cfg := smokeConfig(t, tmp)

	src := newCountingSource()
	for _, id := range []string{"amars_hatred", "summoners_wrath", "shotgun_cannonade", "vitality", "ash_prime_blueprint"} {
		src.errs[id] = market.ErrAuth
	}

	proc := NewProcessingService(db, cfg)
	proc.prices = src

	res, err := proc.Run(context.Background(), "text", filepath.Join("testdata", "sample_donation.txt"))
	if err != nil {
		t.Fatal(err)
	}

	if res.Warning == "" {
		t.Fatal("expected abort warning")
	}
	if len(res.Report.Rows) != 0 {
		t.Fatalf("rows=%d", len(res.Report.Rows))
	}
	if !res.Report.GrandTotal.IsZero() {
		t.Fatalf("grandTotal=%s", res.Report.GrandTotal)
	}
	if len(res.Report.Aborted) == 0 {
		t.Fatal("no aborted entries")
	}
	// The unresolved line is still reported independently of the abort.
	if len(res.Report.Unresolved) != 1 {
		t.Fatalf("unresolved: %+v", res.Report.Unresolved)
	}
}
