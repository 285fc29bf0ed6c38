package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
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
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cat, err := catalog.Open(cfg.CatalogPath, cfg.DataDir)
	must(err)

	cmd := os.Args[1]
	switch cmd {
	case "outlets":
		printOutlets(os.Stdout, cat)
	case "report":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		outlets := fs.String("outlets", "", "comma separated outlet codes (default: all)")
		categories := fs.String("categories", "", "comma separated categories (default: all)")
		metric := fs.String("metric", "value", "qty|value")
		bucket := fs.String("bucket", "", "show a single aging bucket panel, e.g. 61-90")
		_ = fs.Parse(os.Args[2:])

		sel := selection(*outlets, *categories, *metric)
		svc, closeFn := newService(cfg, cat, nil)
		defer closeFn()
		res, err := svc.Run(context.Background(), sel)
		warn(err)
		printWarnings(os.Stderr, cat, res)
		if res.Empty() {
			fmt.Println(res.Notice)
			return
		}
		printAggregate(os.Stdout, res.Aggregate, res.Selection.Metric)
		buckets := internal.AgingBuckets
		if strings.TrimSpace(*bucket) != "" {
			b := internal.AgingBucket(strings.TrimSpace(*bucket))
			if !b.Valid() {
				must(fmt.Errorf("unknown aging bucket %q", *bucket))
			}
			buckets = []internal.AgingBucket{b}
		}
		for _, b := range buckets {
			printSeries(os.Stdout, b, pipeline.BucketSeries(res.Records, b, res.Selection.Metric), res.Selection.Metric)
		}
		printContributions(os.Stdout, pipeline.Contributions(res.Records, res.Selection.Metric), res.Selection.Metric)
	case "normalize":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "xlsx, csv or html file")
		outlet := fs.String("outlet", "", "outlet code to tag rows with (default: file name)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		code := *outlet
		if code == "" {
			code = strings.TrimSuffix(filepath.Base(*input), filepath.Ext(*input))
		}
		svc := pipeline.NewService(cfg, cat, nil, nil)
		norm, err := svc.NormalizeFile(code, *input)
		must(err)
		for _, w := range norm.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		printRecords(os.Stdout, norm.Records)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		outlets := fs.String("outlets", "", "comma separated outlet codes (default: all)")
		categories := fs.String("categories", "", "comma separated categories (default: all)")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			*out = filepath.Join(cfg.OutputDir, "aging.xlsx")
		}
		svc, closeFn := newService(cfg, cat, nil)
		defer closeFn()
		res, err := svc.Run(context.Background(), selection(*outlets, *categories, "value"))
		warn(err)
		printWarnings(os.Stderr, cat, res)
		if res.Empty() {
			must(fmt.Errorf("nothing to export: %s", res.Notice))
		}
		must(pipeline.ExportResultToXLSX(res, *out))
		fmt.Printf("exported rows=%d groups=%d to %s\n", len(res.Records), len(res.Aggregate), *out)
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "number of runs")
		failures := fs.Bool("failures", false, "list the skipped sources of each run")
		_ = fs.Parse(os.Args[2:])
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		runs, err := db.ListRuns(*limit)
		must(err)
		printRuns(os.Stdout, runs)
		if *failures {
			for _, run := range runs {
				if run.Skipped == 0 {
					continue
				}
				rows, err := db.ListLoadFailures(run.ID)
				must(err)
				printRunFailures(os.Stdout, run, rows)
			}
		}
	case "watch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		outlets := fs.String("outlets", "", "comma separated outlet codes (default: all)")
		categories := fs.String("categories", "", "comma separated categories (default: all)")
		metric := fs.String("metric", "value", "qty|value")
		_ = fs.Parse(os.Args[2:])

		reg := metrics.NewRegistry()
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		svc := pipeline.NewService(cfg, cat, recorderFor(cfg, db), reg)
		w := watcher.NewService(svc, cfg, selection(*outlets, *categories, *metric), db)
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		must(w.Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

// newService opens the run journal when enabled; journal problems degrade to a
// service without one.
func newService(cfg config.Config, cat *catalog.Catalog, reg *metrics.Registry) (*pipeline.Service, func()) {
	if !cfg.RecordRuns {
		return pipeline.NewService(cfg, cat, nil, reg), func() {}
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: run journal disabled: %v\n", err)
		return pipeline.NewService(cfg, cat, nil, reg), func() {}
	}
	return pipeline.NewService(cfg, cat, db, reg), func() { _ = db.Close() }
}

func recorderFor(cfg config.Config, db *storage.DB) pipeline.RunRecorder {
	if !cfg.RecordRuns {
		return nil
	}
	return db
}

func selection(outlets, categories, metric string) internal.Selection {
	m, ok := internal.ParseMetric(metric)
	if !ok {
		must(fmt.Errorf("unsupported metric: %s", metric))
	}
	return internal.Selection{
		Outlets:    util.SplitList(outlets),
		Categories: util.SplitList(categories),
		Metric:     m,
	}
}

func usage() {
	fmt.Println("usage: aging <command>")
	fmt.Println("commands:")
	fmt.Println("  outlets")
	fmt.Println("  report [--outlets=AML,BPS] [--categories=...] [--metric=qty|value] [--bucket=61-90]")
	fmt.Println("  normalize --input=FILE [--outlet=CODE]")
	fmt.Println("  export:xlsx [--outlets=...] [--categories=...] [--out=./out/aging.xlsx]")
	fmt.Println("  runs:list [--limit=20] [--failures]")
	fmt.Println("  watch [--outlets=...] [--categories=...] [--metric=qty|value]")
}

func warn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
