package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"aging/internal"
	"aging/internal/config"
	"aging/internal/pipeline"
)

const lastScanKey = "watch.last_scan"

// MetadataStore keeps the last scan time between restarts.
type MetadataStore interface {
	SetMetadata(key, value string) error
	GetMetadata(key string) (*string, error)
}

// Service re-runs a pass on every interval and drops cached tables of outlets whose
// source file changed since the previous scan.
type Service struct {
	svc   *pipeline.Service
	cfg   config.Config
	sel   internal.Selection
	meta  MetadataStore
	out   io.Writer
	stamp map[string]fileStamp
}

type fileStamp struct {
	exists  bool
	modTime time.Time
	size    int64
}

func (a fileStamp) same(b fileStamp) bool {
	return a.exists == b.exists && a.size == b.size && a.modTime.Equal(b.modTime)
}

func NewService(svc *pipeline.Service, cfg config.Config, sel internal.Selection, meta MetadataStore) *Service {
	return &Service{svc: svc, cfg: cfg, sel: sel, meta: meta, out: os.Stdout, stamp: map[string]fileStamp{}}
}

func (s *Service) SetOutput(w io.Writer) { s.out = w }

func (s *Service) Run(ctx context.Context) error {
	if s.cfg.MetricsAddr != "" {
		stop := s.serveMetrics()
		defer stop()
	}

	s.resume()

	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Fprintf(s.out, "watch cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	changed := s.scan()
	for _, code := range changed {
		s.svc.Cache().InvalidateOutlet(code)
	}

	res, err := s.svc.Run(ctx, s.sel)
	fmt.Fprintf(s.out, "watch cycle done changed=%d cached=%v rows=%d groups=%d skipped=%d\n",
		len(changed), res.CacheHit, len(res.Records), len(res.Aggregate), len(res.Failures))
	for _, f := range res.Failures {
		fmt.Fprintf(s.out, "  skipped %v\n", f)
	}
	if err != nil {
		return err
	}

	if s.meta != nil {
		if err := s.meta.SetMetadata(lastScanKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
			fmt.Fprintf(s.out, "watch metadata error: %v\n", err)
		}
	}
	return nil
}

// resume reports the last completed scan of a previous run.
func (s *Service) resume() {
	if s.meta == nil {
		return
	}
	last, err := s.meta.GetMetadata(lastScanKey)
	switch {
	case err != nil:
		fmt.Fprintf(s.out, "watch metadata error: %v\n", err)
	case last == nil:
		fmt.Fprintln(s.out, "watch started, no previous scan")
	default:
		fmt.Fprintf(s.out, "watch resumed last_scan=%s\n", *last)
	}
}

// scan compares each watched source with its previous stamp. The first scan records
// stamps without reporting changes.
func (s *Service) scan() []string {
	codes := s.sel.Outlets
	if codes == nil {
		codes = s.svc.Catalog().Codes()
	}

	first := len(s.stamp) == 0
	changed := []string{}
	for _, code := range codes {
		outlet, ok := s.svc.Catalog().Lookup(code)
		if !ok {
			continue
		}
		current := fileStamp{}
		if info, err := os.Stat(s.svc.Catalog().Path(outlet)); err == nil {
			current = fileStamp{exists: true, modTime: info.ModTime(), size: info.Size()}
		}
		prev, seen := s.stamp[code]
		s.stamp[code] = current
		if first || !seen {
			continue
		}
		if !prev.same(current) {
			changed = append(changed, code)
		}
	}
	return changed
}

func (s *Service) serveMetrics() func() {
	reg := s.svc.Metrics()
	if reg == nil {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	server := &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(s.out, "metrics server error: %v\n", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
