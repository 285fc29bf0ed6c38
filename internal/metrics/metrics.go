package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg            *prometheus.Registry
	SourcesLoaded  prometheus.Counter
	SourcesSkipped *prometheus.CounterVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	PassDuration   prometheus.Histogram
	NormalizedRows prometheus.Gauge
	Passes         prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	loaded := prometheus.NewCounter(prometheus.CounterOpts{Name: "aging_sources_loaded_total"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "aging_sources_skipped_total"}, []string{"kind"})
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "aging_cache_hits_total"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "aging_cache_misses_total"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "aging_pass_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	rows := prometheus.NewGauge(prometheus.GaugeOpts{Name: "aging_normalized_rows"})
	passes := prometheus.NewCounter(prometheus.CounterOpts{Name: "aging_passes_total"})

	r.MustRegister(loaded, skipped, hits, misses, duration, rows, passes)
	return &Registry{
		reg:            r,
		SourcesLoaded:  loaded,
		SourcesSkipped: skipped,
		CacheHits:      hits,
		CacheMisses:    misses,
		PassDuration:   duration,
		NormalizedRows: rows,
		Passes:         passes,
	}
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
