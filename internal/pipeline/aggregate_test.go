package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"aging/internal"
)

func TestAggregateAcrossOutlets(t *testing.T) {
	dir, cat := twoOutlets(t)
	loaded := NewLoader(cat, testConfig(dir)).Load(cat.Codes())
	records := Normalize(loaded.Tables).Records

	rows := Aggregate(records, internal.Selection{})
	var phones *internal.AggregateRow
	for i := range rows {
		if rows[i].Category == "Phones" && rows[i].Bucket == internal.Bucket61To90 {
			phones = &rows[i]
		}
	}
	if phones == nil {
		t.Fatalf("no Phones/61-90 group in %+v", rows)
	}
	if !phones.Qty.Equal(dec("8")) || !phones.Value.Equal(dec("150")) {
		t.Fatalf("phones=%+v", phones)
	}

	// Laptops 61-90 sums to zero and is still a group.
	found := false
	for _, r := range rows {
		if r.Category == "Laptops" && r.Bucket == internal.Bucket61To90 {
			found = r.Qty.IsZero() && r.Value.IsZero()
		}
	}
	if !found {
		t.Fatalf("zero group missing: %+v", rows)
	}
}

func TestAggregatePreservesTotals(t *testing.T) {
	dir, cat := twoOutlets(t)
	records := Normalize(NewLoader(cat, testConfig(dir)).Load(cat.Codes()).Tables).Records

	cases := []internal.Selection{
		{},
		{Outlets: []string{"A"}},
		{Categories: []string{"Phones"}},
		{Outlets: []string{"B"}, Categories: []string{"Laptops"}},
	}
	for _, sel := range cases {
		wantQty, wantValue := decimal.Zero, decimal.Zero
		for _, r := range Filter(records, sel) {
			wantQty = wantQty.Add(r.Qty)
			wantValue = wantValue.Add(r.Value)
		}
		gotQty, gotValue := Totals(Aggregate(records, sel))
		if !gotQty.Equal(wantQty) || !gotValue.Equal(wantValue) {
			t.Fatalf("sel=%+v got %s/%s want %s/%s", sel, gotQty, gotValue, wantQty, wantValue)
		}
	}
}

func TestMissingSourceEqualsSmallerCatalog(t *testing.T) {
	dir, _ := twoOutlets(t)
	withGhost := testCatalog(t, dir, "A", "B", "GHOST")
	without := testCatalog(t, dir, "A", "B")

	ghostLoad := NewLoader(withGhost, testConfig(dir)).Load(withGhost.Codes())
	if len(ghostLoad.Failures) != 1 {
		t.Fatalf("failures=%v", ghostLoad.Failures)
	}
	a := Aggregate(Normalize(ghostLoad.Tables).Records, internal.Selection{})
	b := Aggregate(Normalize(NewLoader(without, testConfig(dir)).Load(without.Codes()).Tables).Records, internal.Selection{})
	if len(a) != len(b) {
		t.Fatalf("len %d != %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Category != b[i].Category || a[i].Bucket != b[i].Bucket || !a[i].Qty.Equal(b[i].Qty) || !a[i].Value.Equal(b[i].Value) {
			t.Fatalf("row %d: %+v != %+v", i, a[i], b[i])
		}
	}
}

func TestAggregateOrderAndCategories(t *testing.T) {
	records := []internal.NormalizedRecord{
		{Outlet: "A", Category: "Tablets", Bucket: internal.Bucket181To360, Qty: dec("1"), Value: dec("1")},
		{Outlet: "A", Category: "Phones", Bucket: internal.Bucket121To180, Qty: dec("1"), Value: dec("1")},
		{Outlet: "B", Category: "Phones", Bucket: internal.Bucket61To90, Qty: dec("1"), Value: dec("1")},
		{Outlet: "B", Category: "Phones", Bucket: "0-60", Qty: dec("1"), Value: dec("1")},
	}
	rows := Aggregate(records, internal.Selection{})
	if len(rows) != 3 {
		t.Fatalf("rows=%+v", rows)
	}
	if rows[0].Bucket != internal.Bucket61To90 || rows[1].Bucket != internal.Bucket121To180 || rows[2].Category != "Tablets" {
		t.Fatalf("order=%+v", rows)
	}

	cats := Categories(records)
	if len(cats) != 2 || cats[0] != "Tablets" || cats[1] != "Phones" {
		t.Fatalf("categories=%v", cats)
	}
}

func TestFilterWide(t *testing.T) {
	tables := []internal.SourceTable{
		wide("A", []string{"Category", "61-90"}, []string{"Phones", "1"}, []string{"Laptops", "2"}),
		wide("B", []string{"Category", "61-90"}, []string{"Laptops", "3"}),
	}
	got := FilterWide(tables, internal.Selection{Categories: []string{"Phones"}})
	if len(got) != 1 || got[0].Outlet != "A" || len(got[0].Records) != 1 {
		t.Fatalf("got=%+v", got)
	}
	if len(FilterWide(tables, internal.Selection{Outlets: []string{}})) != 0 {
		t.Fatal("empty selection kept tables")
	}
}

func TestAggregateKeepsThreeDecimalValues(t *testing.T) {
	dir := t.TempDir()
	writeXLSX(t, filepath.Join(dir, "A.xlsx"), [][]any{
		{"Category", "61-90 Aging Qty", "61-90 Aging Value"},
		{"Cables", 1, 2.125},
		{"Chargers", 3, 12.345},
	})
	cat := testCatalog(t, dir, "A")
	loaded := NewLoader(cat, testConfig(dir)).Load(cat.Codes())
	rows := Aggregate(Normalize(loaded.Tables).Records, internal.Selection{})
	if len(rows) != 2 {
		t.Fatalf("rows=%+v", rows)
	}
	if !rows[0].Value.Equal(dec("2.125")) || !rows[1].Value.Equal(dec("12.345")) {
		t.Fatalf("values=%s,%s", rows[0].Value, rows[1].Value)
	}
	if _, value := Totals(rows); !value.Equal(dec("14.47")) {
		t.Fatalf("total=%s", value)
	}
}
