// Package metrics exposes Prometheus instrumentation for link scans. A scan
// is a short-lived process, so metrics are exported to a node-exporter
// textfile rather than scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lukemcguire/synthlinks/result"
)

const namespace = "synthlinks"

// Metrics holds the scan collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	LinksChecked       *prometheus.CounterVec
	LinkStatus         *prometheus.CounterVec
	NavigationDuration prometheus.Histogram
	NavigationRetries  prometheus.Counter
	Scans              *prometheus.CounterVec
	LastScanTimestamp  prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LinksChecked: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_checked_total",
			Help:      "Links evaluated, by outcome and whether the link was the origin",
		}, []string{"outcome", "origin"}),
		LinkStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_status_total",
			Help:      "Links evaluated, by response status class (unreachable when no response)",
		}, []string{"class"}),
		NavigationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "navigation_duration_seconds",
			Help:      "Duration of the final navigation attempt per link",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		NavigationRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_retries_total",
			Help:      "Navigation attempts beyond the first",
		}),
		Scans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed scans, by outcome (passed, failed, error)",
		}, []string{"outcome"}),
		LastScanTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_timestamp_seconds",
			Help:      "Unix time the last scan finished",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordLink records one terminal link result. maxRetries is the retry budget
// the link started with.
func (m *Metrics) RecordLink(r result.LinkResult, maxRetries int) {
	if m == nil {
		return
	}

	outcome := "failed"
	if r.LinkPassed {
		outcome = "passed"
	}
	m.LinksChecked.WithLabelValues(outcome, fmt.Sprint(r.IsOrigin)).Inc()
	m.LinkStatus.WithLabelValues(statusClassLabel(r.StatusCode)).Inc()

	if !r.LinkStartTime.IsZero() && r.LinkEndTime.After(r.LinkStartTime) {
		m.NavigationDuration.Observe(r.LinkEndTime.Sub(r.LinkStartTime).Seconds())
	}
	if used := maxRetries - r.RetriesRemaining; used > 0 {
		m.NavigationRetries.Add(float64(used))
	}
}

// RecordScan records the end of a scan. A nil report means the scan errored.
func (m *Metrics) RecordScan(report *result.Report, finished time.Time) {
	if m == nil {
		return
	}

	outcome := "error"
	if report != nil {
		outcome = "failed"
		if report.Passed() {
			outcome = "passed"
		}
	}
	m.Scans.WithLabelValues(outcome).Inc()
	m.LastScanTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in the Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func statusClassLabel(code *int) string {
	if code == nil {
		return "unreachable"
	}
	switch *code / 100 {
	case 2:
		return "2xx"
	case 3:
		return "3xx"
	case 4:
		return "4xx"
	case 5:
		return "5xx"
	}
	return "unreachable"
}
