package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"aging/internal"
	"aging/internal/catalog"
	"aging/internal/config"
)

func writeXLSX(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func writeText(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(dir string) config.Config {
	return config.Config{DataDir: dir, SentinelCategories: []string{"TOTAL", "GRAND TOTAL"}}
}

func testCatalog(t *testing.T, dir string, codes ...string) *catalog.Catalog {
	t.Helper()
	outlets := make([]internal.Outlet, 0, len(codes))
	for _, c := range codes {
		outlets = append(outlets, internal.Outlet{Code: c, File: c + ".xlsx"})
	}
	cat, err := catalog.New(dir, outlets)
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

// twoOutlets writes the A/B phones fixture: A has Qty 5 / Value 100, B has Qty 3 / Value 50
// in 61-90.
func twoOutlets(t *testing.T) (string, *catalog.Catalog) {
	t.Helper()
	dir := t.TempDir()
	writeXLSX(t, filepath.Join(dir, "A.xlsx"), [][]any{
		{"Category", "61-90 Aging Qty", "61-90 Aging Value", "91-120 Aging Qty", "91-120 Aging Value"},
		{"Phones", 5, 100.0, 1, 20.0},
		{"Laptops", 0, 0, 2, 1500.5},
		{"TOTAL", 5, 100.0, 3, 1520.5},
	})
	writeXLSX(t, filepath.Join(dir, "B.xlsx"), [][]any{
		{"Category", "61-90 Aging Qty", "61-90 Aging Value"},
		{"Phones", 3, 50.0},
	})
	return dir, testCatalog(t, dir, "A", "B")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func findRecord(records []internal.NormalizedRecord, outlet, category string, bucket internal.AgingBucket) (internal.NormalizedRecord, bool) {
	for _, r := range records {
		if r.Outlet == outlet && r.Category == category && r.Bucket == bucket {
			return r, true
		}
	}
	return internal.NormalizedRecord{}, false
}

// wide builds a source table in memory. rows[i][0] is the category.
func wide(outlet string, header []string, rows ...[]string) internal.SourceTable {
	t := internal.SourceTable{Outlet: outlet, Path: outlet + ".xlsx", Header: header}
	for _, row := range rows {
		rec := internal.RawRecord{Outlet: outlet, Category: row[0]}
		for i := 1; i < len(row) && i < len(header); i++ {
			rec.Cells = append(rec.Cells, internal.RawCell{Column: header[i], Raw: row[i]})
		}
		t.Records = append(t.Records, rec)
	}
	return t
}
