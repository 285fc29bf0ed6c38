package watcher

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aging/internal"
	"aging/internal/catalog"
	"aging/internal/config"
	"aging/internal/pipeline"
)

type memMeta struct {
	values map[string]string
	err    error
}

func newMemMeta() *memMeta { return &memMeta{values: map[string]string{}} }

func (m *memMeta) SetMetadata(key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *memMeta) GetMetadata(key string) (*string, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func writeCSV(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunCycleInvalidatesChangedOutlets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.csv")
	writeCSV(t, path, "Category,61-90 Aging Qty,61-90 Aging Value\nPhones,1,10\n")

	cat, err := catalog.New(dir, []internal.Outlet{{Code: "A", File: "A.csv"}})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{DataDir: dir}
	svc := pipeline.NewService(cfg, cat, nil, nil)
	meta := newMemMeta()
	w := NewService(svc, cfg, internal.Selection{}, meta)
	out := &bytes.Buffer{}
	w.SetOutput(out)

	if err := w.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "changed=0 cached=true") {
		t.Fatalf("output=%q", out.String())
	}

	writeCSV(t, path, "Category,61-90 Aging Qty,61-90 Aging Value\nPhones,2,20\nLaptops,1,900\n")
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := w.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "changed=1 cached=false rows=2") {
		t.Fatalf("output=%q", out.String())
	}
	if meta.values[lastScanKey] == "" {
		t.Fatal("last scan not stored")
	}
}

func TestRunCycleReportsMissingSource(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.New(dir, []internal.Outlet{{Code: "A", File: "A.xlsx"}})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{DataDir: dir}
	w := NewService(pipeline.NewService(cfg, cat, nil, nil), cfg, internal.Selection{}, nil)
	out := &bytes.Buffer{}
	w.SetOutput(out)

	if err := w.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "skipped=1") || !strings.Contains(out.String(), "source missing") {
		t.Fatalf("output=%q", out.String())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.New(dir, []internal.Outlet{{Code: "A", File: "A.xlsx"}})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{DataDir: dir, WatchIntervalSec: 1}
	w := NewService(pipeline.NewService(cfg, cat, nil, nil), cfg, internal.Selection{}, nil)
	w.SetOutput(&bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestRunCycleReportsMetadataError(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.New(dir, []internal.Outlet{{Code: "A", File: "A.xlsx"}})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{DataDir: dir}
	meta := newMemMeta()
	meta.err = errors.New("database is locked")
	w := NewService(pipeline.NewService(cfg, cat, nil, nil), cfg, internal.Selection{}, meta)
	out := &bytes.Buffer{}
	w.SetOutput(out)

	if err := w.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "watch metadata error: database is locked") {
		t.Fatalf("output=%q", out.String())
	}
}

func TestRunReportsPreviousScan(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.New(dir, []internal.Outlet{{Code: "A", File: "A.xlsx"}})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{DataDir: dir, WatchIntervalSec: 1}
	meta := newMemMeta()
	meta.values[lastScanKey] = "2024-03-31T08:00:00Z"
	w := NewService(pipeline.NewService(cfg, cat, nil, nil), cfg, internal.Selection{}, meta)
	out := &bytes.Buffer{}
	w.SetOutput(out)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(out.String(), "\n")
	if lines[0] != "watch resumed last_scan=2024-03-31T08:00:00Z" {
		t.Fatalf("output=%q", out.String())
	}
	if meta.values[lastScanKey] == "2024-03-31T08:00:00Z" {
		t.Fatal("last scan not updated")
	}
}
