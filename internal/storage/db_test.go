package storage

import (
	"path/filepath"
	"testing"

	"aging/internal"
)

func TestRunJournal(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "aging.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	first, err := db.InsertRun(internal.RunRecord{TraceID: "t1", Metric: "Value", Loaded: 2, Rows: 8, Groups: 4, DurationMs: 12.5})
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.InsertRun(internal.RunRecord{
		TraceID:  "t2",
		Outlets:  []string{"AML", "BPS"},
		Metric:   "Qty",
		Loaded:   1,
		Skipped:  1,
		CacheHit: true,
		Failures: []internal.LoadFailureRow{{Outlet: "BPS", Path: "/data/BPS.xlsx", Kind: "source_missing"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("len=%d", len(runs))
	}
	if runs[0].TraceID != "t2" || runs[0].Outlets != "AML,BPS" || !runs[0].CacheHit {
		t.Fatalf("newest run: %+v", runs[0])
	}
	if runs[1].Outlets != "*" || runs[1].DurationMs != 12.5 {
		t.Fatalf("oldest run: %+v", runs[1])
	}

	failures, err := db.ListLoadFailures(int(second))
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 1 || failures[0].Kind != "source_missing" {
		t.Fatalf("failures=%+v", failures)
	}
}

func TestMetadata(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "aging.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	v, err := db.GetMetadata("watch.last_scan")
	if err != nil || v != nil {
		t.Fatalf("missing key: v=%v err=%v", v, err)
	}
	if err := db.SetMetadata("watch.last_scan", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("watch.last_scan", "b"); err != nil {
		t.Fatal(err)
	}
	v, err = db.GetMetadata("watch.last_scan")
	if err != nil || v == nil || *v != "b" {
		t.Fatalf("v=%v err=%v", v, err)
	}
}
