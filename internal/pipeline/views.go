package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"aging/internal"
)

type SeriesPoint struct {
	Category string
	Qty      decimal.Decimal
	Value    decimal.Decimal
}

// BucketSeries feeds one horizontal bar panel: categories with a positive metric in
// the bucket, summed over outlets, smallest first. Both metrics stay on each point.
func BucketSeries(records []internal.NormalizedRecord, bucket internal.AgingBucket, metric internal.Metric) []SeriesPoint {
	index := map[string]int{}
	out := []SeriesPoint{}
	for _, r := range records {
		if r.Bucket != bucket || r.MetricValue(metric).Sign() <= 0 {
			continue
		}
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, SeriesPoint{Category: r.Category, Qty: decimal.Zero, Value: decimal.Zero})
		}
		out[i].Qty = out[i].Qty.Add(r.Qty)
		out[i].Value = out[i].Value.Add(r.Value)
	}

	pick := func(p SeriesPoint) decimal.Decimal {
		if metric == internal.MetricQty {
			return p.Qty
		}
		return p.Value
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := pick(out[i]).Cmp(pick(out[j]))
		if c != 0 {
			return c < 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

type OutletContribution struct {
	Outlet string
	Total  decimal.Decimal
	Leaves []internal.NormalizedRecord
}

// Contributions builds the outlet → category → bucket hierarchy over records with a
// positive metric, largest outlet first.
func Contributions(records []internal.NormalizedRecord, metric internal.Metric) []OutletContribution {
	index := map[string]int{}
	out := []OutletContribution{}
	for _, r := range records {
		v := r.MetricValue(metric)
		if v.Sign() <= 0 {
			continue
		}
		i, ok := index[r.Outlet]
		if !ok {
			i = len(out)
			index[r.Outlet] = i
			out = append(out, OutletContribution{Outlet: r.Outlet, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(v)
		out[i].Leaves = append(out[i].Leaves, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := out[i].Total.Cmp(out[j].Total)
		if c != 0 {
			return c > 0
		}
		return out[i].Outlet < out[j].Outlet
	})
	return out
}
