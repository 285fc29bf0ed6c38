package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"aging/internal/util"
)

// readRows returns the grid of the source file as strings, one slice per row.
func readRows(path, sheet string) ([][]string, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatXLSX:
		return readXLSX(path, sheet)
	case FormatCSV:
		return readCSV(path)
	case FormatHTML:
		return readHTML(path)
	default:
		return nil, fmt.Errorf("unsupported source format %q", filepath.Ext(path))
	}
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	target := sheets[0]
	if sheet != "" {
		found := false
		for _, name := range sheets {
			if util.SameLabel(name, sheet) {
				target, found = name, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sheet %q not found (have %s)", sheet, strings.Join(sheets, ", "))
		}
	}

	// Raw values keep numbers free of display formatting such as "1,234.00".
	return f.GetRows(target, excelize.Options{RawCellValue: true})
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

// readHTML reads the first table of an HTML document; several point-of-sale systems
// export "Excel" reports this way.
func readHTML(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return nil, err
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no <table> element")
	}

	out := [][]string{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, util.NormalizeSpaces(cell.Text()))
		})
		out = append(out, cells)
	})
	return out, nil
}
