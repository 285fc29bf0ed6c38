package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"aging/internal"
	"aging/internal/util"
)

const (
	SheetNormalized = "Normalized"
	SheetAggregated = "Aggregated"
	SheetWide       = "Wide"
)

// ExportResultToXLSX writes the long table, the aggregate and the filtered wide table
// to one workbook, one sheet each.
func ExportResultToXLSX(res Result, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetNormalized); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetAggregated); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetWide); err != nil {
		return err
	}

	writeRow(f, SheetNormalized, 1, []any{internal.ColumnOutlet, internal.ColumnCategory, internal.ColumnAgingBucket, internal.ColumnQty, internal.ColumnValue})
	for i, r := range res.Records {
		writeRow(f, SheetNormalized, i+2, []any{r.Outlet, r.Category, string(r.Bucket), r.Qty.InexactFloat64(), r.Value.InexactFloat64()})
	}

	writeRow(f, SheetAggregated, 1, []any{internal.ColumnCategory, internal.ColumnAgingBucket, internal.ColumnQty, internal.ColumnValue})
	for i, r := range res.Aggregate {
		writeRow(f, SheetAggregated, i+2, []any{r.Category, string(r.Bucket), r.Qty.InexactFloat64(), r.Value.InexactFloat64()})
	}

	writeWide(f, res.Wide)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// writeWide stacks the outlets' wide tables under one header made of the union of
// their columns, with the Outlet column first.
func writeWide(f *excelize.File, tables []internal.SourceTable) {
	columns := []string{}
	seen := map[string]int{}
	for _, t := range tables {
		for _, h := range t.Header {
			if h == "" || h == internal.ColumnCategory {
				continue
			}
			if _, ok := seen[h]; !ok {
				seen[h] = len(columns)
				columns = append(columns, h)
			}
		}
	}

	header := []any{internal.ColumnOutlet, internal.ColumnCategory}
	for _, c := range columns {
		header = append(header, c)
	}
	writeRow(f, SheetWide, 1, header)

	r := 2
	for _, t := range tables {
		for _, rec := range t.Records {
			row := make([]any, len(header))
			row[0], row[1] = rec.Outlet, rec.Category
			for i := range columns {
				row[i+2] = ""
			}
			for _, cell := range rec.Cells {
				idx, ok := seen[cell.Column]
				if !ok {
					continue
				}
				if d, isNum := util.ParseDecimal(cell.Raw); isNum {
					row[idx+2] = d.InexactFloat64()
				} else {
					row[idx+2] = cell.Raw
				}
			}
			writeRow(f, SheetWide, r, row)
			r++
		}
	}
}

func writeRow(f *excelize.File, sheet string, r int, values []any) {
	for c, v := range values {
		cell, _ := excelize.CoordinatesToCellName(c+1, r)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
