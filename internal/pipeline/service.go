package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aging/internal"
	"aging/internal/catalog"
	"aging/internal/config"
	"aging/internal/metrics"
)

// RunRecorder stores one journal row per pass.
type RunRecorder interface {
	InsertRun(run internal.RunRecord) (int64, error)
}

type Service struct {
	catalog  *catalog.Catalog
	loader   *Loader
	cache    *Cache
	recorder RunRecorder
	metrics  *metrics.Registry
}

// NewService wires a processing service. recorder and reg may be nil.
func NewService(cfg config.Config, cat *catalog.Catalog, recorder RunRecorder, reg *metrics.Registry) *Service {
	return &Service{
		catalog:  cat,
		loader:   NewLoader(cat, cfg),
		cache:    NewCache(),
		recorder: recorder,
		metrics:  reg,
	}
}

func (s *Service) Cache() *Cache { return s.cache }

func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

func (s *Service) Metrics() *metrics.Registry { return s.metrics }

type Result struct {
	TraceID   string
	Selection internal.Selection
	// Categories are all categories of the loaded outlets, before the category filter.
	Categories []string
	Records    []internal.NormalizedRecord
	Aggregate  []internal.AggregateRow
	Wide       []internal.SourceTable
	Failures   []*LoadError
	Unknown    []string
	Warnings   []string
	Notice     string
	CacheHit   bool
	Duration   time.Duration
}

func (r Result) Empty() bool {
	return len(r.Records) == 0
}

// Run performs one recomputation pass for the selection. The result is always usable;
// the error only reports a failure to write the run journal.
func (s *Service) Run(ctx context.Context, sel internal.Selection) (Result, error) {
	start := time.Now()
	res := Result{TraceID: uuid.NewString(), Selection: sel}
	if sel.Metric == "" {
		res.Selection.Metric = internal.MetricValue
	}

	if err := ctx.Err(); err != nil {
		res.Notice = "cancelled"
		return res, err
	}
	if sel.Empty() {
		res.Notice = "no outlets or categories selected"
		return res, nil
	}

	codes := sel.Outlets
	if codes == nil {
		codes = s.catalog.Codes()
	}
	entry, hit := s.cache.GetOrLoad(codes, func(codes []string) CacheEntry {
		loaded := s.loader.Load(codes)
		return CacheEntry{Load: loaded, Normalized: Normalize(loaded.Tables)}
	})
	res.CacheHit = hit
	res.Failures = entry.Load.Failures
	res.Unknown = entry.Load.Unknown
	res.Warnings = append(res.Warnings, entry.Normalized.Warnings...)

	all := entry.Normalized.Records
	res.Categories = Categories(Filter(all, internal.Selection{Outlets: sel.Outlets}))
	res.Records = Filter(all, sel)
	res.Aggregate = Aggregate(all, sel)
	res.Wide = FilterWide(entry.Load.Tables, sel)

	switch {
	case len(entry.Load.Tables) == 0:
		res.Notice = "no valid data files were loaded from the selected outlets"
	case res.Empty():
		res.Notice = "no data for the current selection"
	}

	res.Duration = time.Since(start)
	s.observe(res, entry)
	return res, s.record(res, entry)
}

func (s *Service) observe(res Result, entry CacheEntry) {
	if s.metrics == nil {
		return
	}
	s.metrics.Passes.Inc()
	s.metrics.PassDuration.Observe(res.Duration.Seconds())
	s.metrics.NormalizedRows.Set(float64(len(entry.Normalized.Records)))
	if res.CacheHit {
		s.metrics.CacheHits.Inc()
		return
	}
	s.metrics.CacheMisses.Inc()
	s.metrics.SourcesLoaded.Add(float64(len(entry.Load.Tables)))
	for _, f := range entry.Load.Failures {
		s.metrics.SourcesSkipped.WithLabelValues(f.KindName()).Inc()
	}
}

func (s *Service) record(res Result, entry CacheEntry) error {
	if s.recorder == nil {
		return nil
	}
	run := internal.RunRecord{
		TraceID:    res.TraceID,
		Outlets:    res.Selection.Outlets,
		Categories: res.Selection.Categories,
		Metric:     string(res.Selection.Metric),
		Loaded:     len(entry.Load.Tables),
		Skipped:    len(entry.Load.Failures),
		Rows:       len(res.Records),
		Groups:     len(res.Aggregate),
		CacheHit:   res.CacheHit,
		DurationMs: float64(res.Duration.Microseconds()) / 1000,
	}
	for _, f := range entry.Load.Failures {
		run.Failures = append(run.Failures, internal.LoadFailureRow{Outlet: f.Outlet, Path: f.Path, Kind: f.KindName(), Detail: f.Detail()})
	}
	_, err := s.recorder.InsertRun(run)
	return err
}

// NormalizeFile runs load and normalize on a single file outside the catalog.
func (s *Service) NormalizeFile(code, path string) (NormalizeResult, error) {
	table, err := s.loader.LoadFile(code, path)
	if err != nil {
		return NormalizeResult{}, err
	}
	return Normalize([]internal.SourceTable{table}), nil
}
