package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"aging/internal"
)

func Filter(records []internal.NormalizedRecord, sel internal.Selection) []internal.NormalizedRecord {
	out := make([]internal.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if sel.Match(r.Outlet, r.Category) {
			out = append(out, r)
		}
	}
	return out
}

// FilterWide applies the selection to wide tables, keeping the original columns.
func FilterWide(tables []internal.SourceTable, sel internal.Selection) []internal.SourceTable {
	out := make([]internal.SourceTable, 0, len(tables))
	for _, t := range tables {
		kept := internal.SourceTable{Outlet: t.Outlet, Path: t.Path, Header: t.Header}
		for _, rec := range t.Records {
			if sel.Match(rec.Outlet, rec.Category) {
				kept.Records = append(kept.Records, rec)
			}
		}
		if len(kept.Records) > 0 {
			out = append(out, kept)
		}
	}
	return out
}

type groupKey struct {
	category string
	bucket   internal.AgingBucket
}

// Aggregate sums Qty and Value by (category, bucket) over the selected records,
// collapsing outlets. A group is emitted as soon as one record is in scope, even if
// its sums are zero.
func Aggregate(records []internal.NormalizedRecord, sel internal.Selection) []internal.AggregateRow {
	index := map[groupKey]int{}
	out := []internal.AggregateRow{}
	for _, r := range records {
		if !r.Bucket.Valid() || !sel.Match(r.Outlet, r.Category) {
			continue
		}
		k := groupKey{category: r.Category, bucket: r.Bucket}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, internal.AggregateRow{Category: r.Category, Bucket: r.Bucket, Qty: decimal.Zero, Value: decimal.Zero})
		}
		out[i].Qty = out[i].Qty.Add(r.Qty)
		out[i].Value = out[i].Value.Add(r.Value)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Bucket.Rank() < out[j].Bucket.Rank()
	})
	return out
}

// Categories lists distinct categories in first-appearance order.
func Categories(records []internal.NormalizedRecord) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}

func Totals(rows []internal.AggregateRow) (qty, value decimal.Decimal) {
	qty, value = decimal.Zero, decimal.Zero
	for _, r := range rows {
		qty = qty.Add(r.Qty)
		value = value.Add(r.Value)
	}
	return qty, value
}
