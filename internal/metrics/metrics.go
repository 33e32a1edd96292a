package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects per-run counters. A nil *Recorder is a valid no-op.
type Recorder struct {
	registry *prometheus.Registry
	fetches  *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricescope_fetch_requests_total",
			Help: "Upstream fetch requests by source and outcome",
		}, []string{"source", "outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricescope_rows_written_total",
			Help: "Rows written to the series cache by key and write mode",
		}, []string{"key", "mode"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pricescope_fetch_duration_seconds",
			Help:    "Upstream fetch latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
	}
	r.registry.MustRegister(r.fetches, r.rows, r.duration)
	return r
}

// ObserveFetch records one upstream request that started at start.
func (r *Recorder) ObserveFetch(source string, start time.Time, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.fetches.WithLabelValues(source, outcome).Inc()
	r.duration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// AddRows records n rows written to key. mode is one of full, append, page.
func (r *Recorder) AddRows(key, mode string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rows.WithLabelValues(key, mode).Add(float64(n))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes the collected metrics in the node-exporter textfile
// format. An empty path disables the export.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
