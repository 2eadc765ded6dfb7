// Package metrics exports build statistics in the Prometheus text format, for
// the node_exporter textfile collector or any other scraper of .prom files.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cdef/internal/observ"
)

const namespace = "cdef"

// Array outcome labels.
const (
	StatusRendered = "rendered"
	StatusCached   = "cached"
	StatusFailed   = "failed"
)

// BuildMetrics holds the metrics of a single build on a private registry.
type BuildMetrics struct {
	reg         *prometheus.Registry
	arrays      *prometheus.GaugeVec
	values      *prometheus.GaugeVec
	phases      *prometheus.GaugeVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// New creates the metric set; every series carries the package label.
func New(pkg string) *BuildMetrics {
	labels := prometheus.Labels{"package": pkg}
	b := &BuildMetrics{
		reg: prometheus.NewRegistry(),
		arrays: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "arrays",
			Help:        "Arrays in the last build by outcome.",
			ConstLabels: labels,
		}, []string{"status"}),
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "array_values",
			Help:        "Number of elements declared per array.",
			ConstLabels: labels,
		}, []string{"array"}),
		phases: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "phase_duration_seconds",
			Help:        "Time spent per build phase.",
			ConstLabels: labels,
		}, []string{"phase"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "build_duration_seconds",
			Help:        "Wall-clock duration of the last build.",
			ConstLabels: labels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the last build that produced its output.",
			ConstLabels: labels,
		}),
	}
	b.reg.MustRegister(b.arrays, b.values, b.phases, b.duration, b.lastSuccess)
	for _, status := range []string{StatusRendered, StatusCached, StatusFailed} {
		b.arrays.WithLabelValues(status).Set(0)
	}
	return b
}

// ObserveArray records one array outcome. count is ignored for failed arrays.
func (b *BuildMetrics) ObserveArray(name string, count int, status string) {
	b.arrays.WithLabelValues(status).Inc()
	if status != StatusFailed {
		b.values.WithLabelValues(name).Set(float64(count))
	}
}

// ObservePhases copies a timer report; phases sharing a name are summed.
func (b *BuildMetrics) ObservePhases(report observ.Report) {
	for _, p := range report.Phases {
		b.phases.WithLabelValues(p.Name).Add(p.DurationMS / 1000)
	}
	b.duration.Set(report.TotalMS / 1000)
}

// MarkSuccess stamps the time of a successful build.
func (b *BuildMetrics) MarkSuccess(at time.Time) {
	b.lastSuccess.Set(float64(at.UnixNano()) / 1e9)
}

// Gatherer exposes the registry, e.g. for testutil or an HTTP handler.
func (b *BuildMetrics) Gatherer() prometheus.Gatherer {
	return b.reg
}

// WriteTextfile atomically writes the metrics to path in the text format.
func (b *BuildMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, b.reg)
}
