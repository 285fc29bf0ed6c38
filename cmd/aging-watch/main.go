package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aging/internal"
	"aging/internal/catalog"
	"aging/internal/config"
	"aging/internal/metrics"
	"aging/internal/pipeline"
	"aging/internal/storage"
	"aging/internal/util"
	"aging/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	cat, err := catalog.Open(cfg.CatalogPath, cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog error: %v\n", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	var recorder pipeline.RunRecorder
	if cfg.RecordRuns {
		recorder = db
	}
	svc := pipeline.NewService(cfg, cat, recorder, metrics.NewRegistry())

	sel := internal.Selection{
		Outlets:    util.SplitList(os.Getenv("WATCH_OUTLETS")),
		Categories: util.SplitList(os.Getenv("WATCH_CATEGORIES")),
		Metric:     internal.MetricValue,
	}
	if m, ok := internal.ParseMetric(os.Getenv("WATCH_METRIC")); ok {
		sel.Metric = m
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watcher.NewService(svc, cfg, sel, db)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		os.Exit(1)
	}
}
