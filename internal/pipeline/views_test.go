package pipeline

import (
	"testing"

	"aging/internal"
)

func viewRecords() []internal.NormalizedRecord {
	return []internal.NormalizedRecord{
		{Outlet: "A", Category: "Phones", Bucket: internal.Bucket61To90, Qty: dec("5"), Value: dec("100")},
		{Outlet: "B", Category: "Phones", Bucket: internal.Bucket61To90, Qty: dec("3"), Value: dec("50")},
		{Outlet: "A", Category: "Laptops", Bucket: internal.Bucket61To90, Qty: dec("1"), Value: dec("900")},
		{Outlet: "A", Category: "Cables", Bucket: internal.Bucket61To90, Qty: dec("0"), Value: dec("0")},
		{Outlet: "B", Category: "Tablets", Bucket: internal.Bucket91To120, Qty: dec("2"), Value: dec("400")},
	}
}

func TestBucketSeries(t *testing.T) {
	cases := []struct {
		metric internal.Metric
		want   []string
	}{
		{internal.MetricValue, []string{"Phones", "Laptops"}},
		{internal.MetricQty, []string{"Laptops", "Phones"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.metric), func(t *testing.T) {
			points := BucketSeries(viewRecords(), internal.Bucket61To90, tc.metric)
			if len(points) != len(tc.want) {
				t.Fatalf("points=%+v", points)
			}
			for i, p := range points {
				if p.Category != tc.want[i] {
					t.Fatalf("order=%+v", points)
				}
			}
			if points[len(points)-1].Category == "Phones" && !points[len(points)-1].Qty.Equal(dec("8")) {
				t.Fatalf("phones not summed: %+v", points)
			}
		})
	}

	if got := BucketSeries(viewRecords(), internal.Bucket181To360, internal.MetricValue); len(got) != 0 {
		t.Fatalf("empty bucket: %+v", got)
	}
}

func TestContributions(t *testing.T) {
	got := Contributions(viewRecords(), internal.MetricValue)
	if len(got) != 2 {
		t.Fatalf("got=%+v", got)
	}
	if got[0].Outlet != "A" || !got[0].Total.Equal(dec("1000")) || len(got[0].Leaves) != 2 {
		t.Fatalf("first=%+v", got[0])
	}
	if got[1].Outlet != "B" || !got[1].Total.Equal(dec("450")) {
		t.Fatalf("second=%+v", got[1])
	}
}
