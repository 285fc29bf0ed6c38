package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"aging/internal"
	"aging/internal/catalog"
	"aging/internal/config"
	"aging/internal/util"
)

var (
	ErrSourceMissing    = errors.New("source missing")
	ErrSourceUnreadable = errors.New("source unreadable")
	ErrSourceMalformed  = errors.New("source malformed")
)

// LoadError describes one skipped outlet. Kind is one of the ErrSource* sentinels,
// so errors.Is(err, ErrSourceMissing) works on it.
type LoadError struct {
	Outlet string
	Path   string
	Kind   error
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("outlet %s (%s): %v", e.Outlet, e.Path, e.Kind)
	}
	return fmt.Sprintf("outlet %s (%s): %v: %v", e.Outlet, e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName is the short label used in the run journal and metrics.
func (e *LoadError) KindName() string {
	switch e.Kind {
	case ErrSourceMissing:
		return "source_missing"
	case ErrSourceUnreadable:
		return "source_unreadable"
	case ErrSourceMalformed:
		return "source_malformed"
	default:
		return "unknown"
	}
}

func (e *LoadError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

type LoadResult struct {
	Tables   []internal.SourceTable
	Failures []*LoadError
	Unknown  []string
}

type Loader struct {
	catalog   *catalog.Catalog
	sheet     string
	sentinels []string
}

func NewLoader(cat *catalog.Catalog, cfg config.Config) *Loader {
	return &Loader{catalog: cat, sheet: cfg.SheetName, sentinels: cfg.SentinelCategories}
}

type loadOutcome struct {
	table internal.SourceTable
	err   error
}

// Load reads every requested outlet. Unknown codes are ignored; unreadable sources
// are skipped and reported in Failures without stopping the others.
func (l *Loader) Load(codes []string) LoadResult {
	res := LoadResult{}
	seen := map[string]struct{}{}
	outcomes := make([]loadOutcome, 0, len(codes))

	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		outlet, ok := l.catalog.Lookup(code)
		if !ok {
			res.Unknown = append(res.Unknown, code)
			continue
		}
		table, err := l.loadOutlet(outlet)
		outcomes = append(outcomes, loadOutcome{table: table, err: err})
	}

	for _, o := range outcomes {
		if o.err == nil {
			res.Tables = append(res.Tables, o.table)
			continue
		}
		var loadErr *LoadError
		if !errors.As(o.err, &loadErr) {
			loadErr = &LoadError{Outlet: o.table.Outlet, Path: o.table.Path, Kind: ErrSourceUnreadable, Err: o.err}
		}
		res.Failures = append(res.Failures, loadErr)
	}
	return res
}

func (l *Loader) loadOutlet(outlet internal.Outlet) (internal.SourceTable, error) {
	return l.LoadFile(outlet.Code, l.catalog.Path(outlet))
}

// LoadFile reads a single source file and tags its rows with the outlet code.
func (l *Loader) LoadFile(code, path string) (internal.SourceTable, error) {
	empty := internal.SourceTable{Outlet: code, Path: path}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, &LoadError{Outlet: code, Path: path, Kind: ErrSourceMissing}
	}
	if err != nil {
		return empty, &LoadError{Outlet: code, Path: path, Kind: ErrSourceUnreadable, Err: err}
	}
	if info.IsDir() {
		return empty, &LoadError{Outlet: code, Path: path, Kind: ErrSourceUnreadable, Err: errors.New("is a directory")}
	}

	rows, err := readRows(path, l.sheet)
	if err != nil {
		return empty, &LoadError{Outlet: code, Path: path, Kind: ErrSourceUnreadable, Err: err}
	}

	table, err := buildSourceTable(code, path, rows, l.sentinels)
	if err != nil {
		return empty, &LoadError{Outlet: code, Path: path, Kind: ErrSourceMalformed, Err: err}
	}
	return table, nil
}

// buildSourceTable turns a raw grid into wide records: the row found by findHeaderRow
// is the header, the Category column (or the first column) is the key, every other named
// column is kept as a candidate metric cell.
func buildSourceTable(code, path string, rows [][]string, sentinels []string) (internal.SourceTable, error) {
	table := internal.SourceTable{Outlet: code, Path: path}

	start := findHeaderRow(rows)
	if start < 0 {
		return table, errors.New("empty file")
	}

	header := make([]string, 0, len(rows[start]))
	named := 0
	for _, h := range rows[start] {
		col := util.NormalizeColumn(h)
		if col != "" {
			named++
		}
		header = append(header, col)
	}
	if named < 2 {
		return table, fmt.Errorf("expected at least two columns, got %d", named)
	}

	categoryIdx, outletIdx := -1, -1
	for i, h := range header {
		switch {
		case categoryIdx < 0 && util.SameLabel(h, internal.ColumnCategory):
			categoryIdx = i
		case outletIdx < 0 && util.SameLabel(h, internal.ColumnOutlet):
			outletIdx = i
		}
	}
	if categoryIdx < 0 {
		if header[0] == "" || outletIdx == 0 {
			return table, errors.New("no category column")
		}
		categoryIdx = 0
	}
	header[categoryIdx] = internal.ColumnCategory

	metricIdx := []int{}
	for i, h := range header {
		if i == categoryIdx || i == outletIdx || h == "" {
			continue
		}
		metricIdx = append(metricIdx, i)
	}
	table.Header = header

	for _, row := range rows[start+1:] {
		if isBlankRow(row) {
			continue
		}
		category := util.NormalizeSpaces(cellAt(row, categoryIdx))
		if category == "" || isSentinel(category, sentinels) {
			continue
		}
		rec := internal.RawRecord{Outlet: code, Category: category, Cells: make([]internal.RawCell, 0, len(metricIdx))}
		for _, i := range metricIdx {
			rec.Cells = append(rec.Cells, internal.RawCell{Column: header[i], Raw: cellAt(row, i)})
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

func cellAt(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if util.NormalizeSpaces(c) != "" {
			return false
		}
	}
	return true
}

func isSentinel(category string, sentinels []string) bool {
	for _, s := range sentinels {
		if util.SameLabel(category, s) {
			return true
		}
	}
	return false
}
