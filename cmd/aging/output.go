package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"aging/internal"
	"aging/internal/catalog"
	"aging/internal/pipeline"
)

func printOutlets(w io.Writer, cat *catalog.Catalog) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Code", "File"})
	table.SetAutoFormatHeaders(false)
	for _, o := range cat.Outlets() {
		table.Append([]string{o.Code, cat.Path(o)})
	}
	table.Render()
}

// printWarnings reports every skipped source of a pass in one batch, plus unknown codes.
func printWarnings(w io.Writer, cat *catalog.Catalog, res pipeline.Result) {
	if len(res.Failures) > 0 {
		fmt.Fprintf(w, "warning: skipped %d source(s):\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  %s %s: %s (%s)\n", f.Outlet, f.KindName(), f.Detail(), f.Path)
		}
	}
	for _, code := range res.Unknown {
		line := fmt.Sprintf("warning: unknown outlet %q ignored", code)
		if hints := cat.Suggest(code); len(hints) > 0 {
			line += fmt.Sprintf(", did you mean %s?", strings.Join(hints, " or "))
		}
		fmt.Fprintln(w, line)
	}
	for _, msg := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}

func printAggregate(w io.Writer, rows []internal.AggregateRow, metric internal.Metric) {
	fmt.Fprintf(w, "Aggregated by category and aging bucket (%s)\n", metric)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{internal.ColumnCategory, internal.ColumnAgingBucket, internal.ColumnQty, internal.ColumnValue})
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for _, r := range rows {
		table.Append([]string{r.Category, string(r.Bucket), formatQty(r.Qty), formatValue(r.Value)})
	}
	qty, value := pipeline.Totals(rows)
	table.SetFooter([]string{"", "Total", formatQty(qty), formatValue(value)})
	table.Render()
}

func printSeries(w io.Writer, bucket internal.AgingBucket, points []pipeline.SeriesPoint, metric internal.Metric) {
	fmt.Fprintf(w, "\n%s days (%s)\n", bucket, metric)
	if len(points) == 0 {
		fmt.Fprintln(w, "  no data")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{internal.ColumnCategory, string(metric)})
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, p := range points {
		cell := formatValue(p.Value)
		if metric == internal.MetricQty {
			cell = formatQty(p.Qty)
		}
		table.Append([]string{p.Category, cell})
	}
	table.Render()
}

func printContributions(w io.Writer, outlets []pipeline.OutletContribution, metric internal.Metric) {
	if len(outlets) == 0 {
		return
	}
	fmt.Fprintf(w, "\nContribution by outlet (%s)\n", metric)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{internal.ColumnOutlet, string(metric), "Categories"})
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for _, o := range outlets {
		categories := map[string]struct{}{}
		for _, leaf := range o.Leaves {
			categories[leaf.Category] = struct{}{}
		}
		total := formatValue(o.Total)
		if metric == internal.MetricQty {
			total = formatQty(o.Total)
		}
		table.Append([]string{o.Outlet, total, humanize.Comma(int64(len(categories)))})
	}
	table.Render()
}

func printRecords(w io.Writer, records []internal.NormalizedRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{internal.ColumnOutlet, internal.ColumnCategory, internal.ColumnAgingBucket, internal.ColumnQty, internal.ColumnValue})
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for _, r := range records {
		table.Append([]string{r.Outlet, r.Category, string(r.Bucket), formatQty(r.Qty), formatValue(r.Value)})
	}
	table.Render()
}

func printRuns(w io.Writer, runs []internal.RunRow) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Created", "Outlets", "Metric", "Loaded", "Skipped", "Rows", "Groups", "Cache", "ms"})
	table.SetAutoFormatHeaders(false)
	for _, r := range runs {
		cache := "miss"
		if r.CacheHit {
			cache = "hit"
		}
		table.Append([]string{
			fmt.Sprintf("%d", r.ID),
			r.CreatedAt,
			r.Outlets,
			r.Metric,
			humanize.Comma(int64(r.Loaded)),
			humanize.Comma(int64(r.Skipped)),
			humanize.Comma(int64(r.Rows)),
			humanize.Comma(int64(r.Groups)),
			cache,
			humanize.FormatFloat("#,###.##", r.DurationMs),
		})
	}
	table.Render()
}

func printRunFailures(w io.Writer, run internal.RunRow, failures []internal.LoadFailureRow) {
	fmt.Fprintf(w, "\nRun %d (%s) skipped %d source(s)\n", run.ID, run.TraceID, len(failures))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{internal.ColumnOutlet, "Kind", "Path", "Detail"})
	table.SetAutoFormatHeaders(false)
	for _, f := range failures {
		table.Append([]string{f.Outlet, f.Kind, f.Path, f.Detail})
	}
	table.Render()
}

func formatQty(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return humanize.Comma(d.IntPart())
	}
	return humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

func formatValue(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.InexactFloat64())
}
