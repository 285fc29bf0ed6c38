package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"aging/internal"
	"aging/internal/util"
)

type NormalizeResult struct {
	Records  []internal.NormalizedRecord
	Warnings []string
}

type recordKey struct {
	outlet   string
	category string
	bucket   internal.AgingBucket
}

type longRow struct {
	key   recordKey
	value decimal.Decimal
}

type metricColumn struct {
	bucket internal.AgingBucket
	metric internal.Metric
	marked bool
}

// MatchBucket finds the first canonical bucket label contained in a column name, so
// "181-360 Agir Qty" still lands in 181-360.
func MatchBucket(column string) (internal.AgingBucket, bool) {
	for _, b := range internal.AgingBuckets {
		if strings.Contains(column, string(b)) {
			return b, true
		}
	}
	return "", false
}

// MatchMetric reads the Qty/Value marker of a column name.
func MatchMetric(column string) (internal.Metric, bool) {
	switch {
	case util.ContainsFold(column, "qty"), util.ContainsFold(column, "quantity"):
		return internal.MetricQty, true
	case util.ContainsFold(column, "value"):
		return internal.MetricValue, true
	default:
		return "", false
	}
}

func classifyColumns(header []string) (map[string]metricColumn, bool) {
	cols := map[string]metricColumn{}
	split := false
	for _, h := range header {
		if h == "" || h == internal.ColumnCategory || util.SameLabel(h, internal.ColumnOutlet) {
			continue
		}
		bucket, ok := MatchBucket(h)
		if !ok {
			continue
		}
		metric, marked := MatchMetric(h)
		if marked {
			split = true
		}
		cols[h] = metricColumn{bucket: bucket, metric: metric, marked: marked}
	}
	return cols, split
}

// Normalize reshapes wide source tables into one record per
// (outlet, category, bucket). Tables that mark columns as Qty or Value are melted per
// metric and outer-joined; tables without markers feed Value directly.
func Normalize(tables []internal.SourceTable) NormalizeResult {
	res := NormalizeResult{}
	all := []internal.NormalizedRecord{}

	for _, table := range tables {
		cols, split := classifyColumns(table.Header)
		if len(cols) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("outlet %s: no aging bucket columns in %s", table.Outlet, table.Path))
			continue
		}

		if !split {
			all = append(all, outerJoin(nil, melt(table, cols, ""))...)
			continue
		}
		qty := melt(table, cols, internal.MetricQty)
		value := melt(table, cols, internal.MetricValue)
		all = append(all, outerJoin(qty, value)...)
	}

	res.Records = Canonicalize(all)
	return res
}

// melt emits one long row per record and bucket column of the wanted metric. An empty
// metric selects unmarked columns.
func melt(table internal.SourceTable, cols map[string]metricColumn, want internal.Metric) []longRow {
	out := []longRow{}
	for _, rec := range table.Records {
		for _, cell := range rec.Cells {
			col, ok := cols[cell.Column]
			if !ok || col.metric != want {
				continue
			}
			out = append(out, longRow{
				key:   recordKey{outlet: table.Outlet, category: rec.Category, bucket: col.bucket},
				value: util.DecimalOrZero(cell.Raw),
			})
		}
	}
	return out
}

// outerJoin merges the Qty and Value long tables on the record key. A key present on
// only one side keeps its metric and gets zero for the other.
func outerJoin(qty, value []longRow) []internal.NormalizedRecord {
	index := map[recordKey]int{}
	out := []internal.NormalizedRecord{}

	row := func(k recordKey) *internal.NormalizedRecord {
		if i, ok := index[k]; ok {
			return &out[i]
		}
		index[k] = len(out)
		out = append(out, internal.NormalizedRecord{
			Outlet: k.outlet, Category: k.category, Bucket: k.bucket,
			Qty: decimal.Zero, Value: decimal.Zero,
		})
		return &out[len(out)-1]
	}

	for _, r := range qty {
		rec := row(r.key)
		rec.Qty = rec.Qty.Add(r.value)
	}
	for _, r := range value {
		rec := row(r.key)
		rec.Value = rec.Value.Add(r.value)
	}
	return out
}

// Canonicalize merges duplicate keys, drops non-canonical buckets and orders by
// outlet, category and bucket rank. Applying it twice changes nothing.
func Canonicalize(records []internal.NormalizedRecord) []internal.NormalizedRecord {
	index := map[recordKey]int{}
	out := make([]internal.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if !r.Bucket.Valid() {
			continue
		}
		k := recordKey{outlet: r.Outlet, category: r.Category, bucket: r.Bucket}
		if i, ok := index[k]; ok {
			out[i].Qty = out[i].Qty.Add(r.Qty)
			out[i].Value = out[i].Value.Add(r.Value)
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Outlet != b.Outlet {
			return a.Outlet < b.Outlet
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Bucket.Rank() < b.Bucket.Rank()
	})
	return out
}

// Widen rebuilds per-outlet wide tables from long records using the
// "<bucket> Aging Qty" / "<bucket> Aging Value" column convention.
func Widen(records []internal.NormalizedRecord) []internal.SourceTable {
	type outletData struct {
		buckets    map[internal.AgingBucket]bool
		categories []string
		cells      map[string]map[internal.AgingBucket]internal.NormalizedRecord
	}
	order := []string{}
	data := map[string]*outletData{}

	for _, r := range records {
		d, ok := data[r.Outlet]
		if !ok {
			d = &outletData{buckets: map[internal.AgingBucket]bool{}, cells: map[string]map[internal.AgingBucket]internal.NormalizedRecord{}}
			data[r.Outlet] = d
			order = append(order, r.Outlet)
		}
		if _, ok := d.cells[r.Category]; !ok {
			d.cells[r.Category] = map[internal.AgingBucket]internal.NormalizedRecord{}
			d.categories = append(d.categories, r.Category)
		}
		d.cells[r.Category][r.Bucket] = r
		d.buckets[r.Bucket] = true
	}

	out := make([]internal.SourceTable, 0, len(order))
	for _, outlet := range order {
		d := data[outlet]
		header := []string{internal.ColumnCategory}
		for _, b := range internal.AgingBuckets {
			if d.buckets[b] {
				header = append(header, WideColumn(b, internal.MetricQty), WideColumn(b, internal.MetricValue))
			}
		}

		table := internal.SourceTable{Outlet: outlet, Header: header}
		for _, category := range d.categories {
			rec := internal.RawRecord{Outlet: outlet, Category: category}
			for _, b := range internal.AgingBuckets {
				if !d.buckets[b] {
					continue
				}
				cell, ok := d.cells[category][b]
				qty, value := "", ""
				if ok {
					qty, value = cell.Qty.String(), cell.Value.String()
				}
				rec.Cells = append(rec.Cells,
					internal.RawCell{Column: WideColumn(b, internal.MetricQty), Raw: qty},
					internal.RawCell{Column: WideColumn(b, internal.MetricValue), Raw: value},
				)
			}
			table.Records = append(table.Records, rec)
		}
		out = append(out, table)
	}
	return out
}

func WideColumn(b internal.AgingBucket, m internal.Metric) string {
	return fmt.Sprintf("%s Aging %s", b, m)
}
