package internal

import (
	"strings"

	"github.com/shopspring/decimal"
)

type AgingBucket string

const (
	Bucket61To90   AgingBucket = "61-90"
	Bucket91To120  AgingBucket = "91-120"
	Bucket121To180 AgingBucket = "121-180"
	Bucket181To360 AgingBucket = "181-360"
)

// Column names of the long table as the rendering layer expects them.
const (
	ColumnOutlet      = "Outlet"
	ColumnCategory    = "Category"
	ColumnAgingBucket = "Aging Bucket"
	ColumnQty         = "Qty"
	ColumnValue       = "Value"
)

// AgingBuckets is the display order. Sorting must go through Rank, not string order.
var AgingBuckets = []AgingBucket{Bucket61To90, Bucket91To120, Bucket121To180, Bucket181To360}

func (b AgingBucket) Rank() int {
	for i, known := range AgingBuckets {
		if b == known {
			return i
		}
	}
	return -1
}

func (b AgingBucket) Valid() bool {
	return b.Rank() >= 0
}

type Metric string

const (
	MetricQty   Metric = "Qty"
	MetricValue Metric = "Value"
)

func ParseMetric(input string) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "qty", "quantity":
		return MetricQty, true
	case "value", "val", "":
		return MetricValue, true
	default:
		return "", false
	}
}

type Outlet struct {
	Code string
	File string
}

type RawCell struct {
	Column string
	Raw    string
}

// RawRecord is one wide row: a category and its aging cells for one outlet.
type RawRecord struct {
	Outlet   string
	Category string
	Cells    []RawCell
}

type SourceTable struct {
	Outlet  string
	Path    string
	Header  []string
	Records []RawRecord
}

type NormalizedRecord struct {
	Outlet   string
	Category string
	Bucket   AgingBucket
	Qty      decimal.Decimal
	Value    decimal.Decimal
}

func (r NormalizedRecord) MetricValue(m Metric) decimal.Decimal {
	if m == MetricQty {
		return r.Qty
	}
	return r.Value
}

type AggregateRow struct {
	Category string
	Bucket   AgingBucket
	Qty      decimal.Decimal
	Value    decimal.Decimal
}

func (r AggregateRow) MetricValue(m Metric) decimal.Decimal {
	if m == MetricQty {
		return r.Qty
	}
	return r.Value
}

// Selection is built once per recomputation pass. A nil slice selects everything;
// an empty non-nil slice selects nothing.
type Selection struct {
	Outlets    []string
	Categories []string
	Metric     Metric
}

func (s Selection) Empty() bool {
	return (s.Outlets != nil && len(s.Outlets) == 0) || (s.Categories != nil && len(s.Categories) == 0)
}

func (s Selection) Match(outlet, category string) bool {
	return contains(s.Outlets, outlet) && contains(s.Categories, category)
}

func contains(set []string, value string) bool {
	if set == nil {
		return true
	}
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}

type RunRecord struct {
	TraceID    string
	Outlets    []string
	Categories []string
	Metric     string
	Loaded     int
	Skipped    int
	Rows       int
	Groups     int
	CacheHit   bool
	DurationMs float64
	Failures   []LoadFailureRow
}

type LoadFailureRow struct {
	Outlet string
	Path   string
	Kind   string
	Detail string
}

type RunRow struct {
	ID         int
	TraceID    string
	Outlets    string
	Categories string
	Metric     string
	Loaded     int
	Skipped    int
	Rows       int
	Groups     int
	CacheHit   bool
	DurationMs float64
	CreatedAt  string
}
