// Package metrics exposes Prometheus instrumentation for the plugin host.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan results.
const (
	ResultLoaded = "loaded"
	ResultFailed = "failed"
)

// Metrics holds the plugin host's Prometheus collectors.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	ArchivesScanned *prometheus.CounterVec
	Builds          *prometheus.CounterVec
	RestoresSkipped prometheus.Counter
	LiveDescriptors prometheus.Gauge
	StepsExecuted   prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ArchivesScanned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overlay_archives_scanned_total",
				Help: "Plugin archives scanned, by load result",
			},
			[]string{"result"},
		),
		Builds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overlay_plugin_builds_total",
				Help: "Plugin instance builds, by kind and result",
			},
			[]string{"kind", "result"},
		),
		RestoresSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "overlay_restores_skipped_total",
			Help: "Persisted entries skipped because their module could not be resolved",
		}),
		LiveDescriptors: factory.NewGauge(prometheus.GaugeOpts{
			Name: "overlay_live_descriptors",
			Help: "Descriptors currently tracked by the orchestrator",
		}),
		StepsExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "overlay_lifecycle_steps_total",
			Help: "Lifecycle steps drained from the startup queue",
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

// Handler returns an HTTP handler serving the collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ArchiveScanned records one scanned archive.
func (m *Metrics) ArchiveScanned(result string) {
	if m == nil {
		return
	}
	m.ArchivesScanned.WithLabelValues(result).Inc()
}

// Built records one build attempt.
func (m *Metrics) Built(kind string, ok bool) {
	if m == nil {
		return
	}
	result := ResultLoaded
	if !ok {
		result = ResultFailed
	}
	m.Builds.WithLabelValues(kind, result).Inc()
}

// RestoreSkipped records a persisted entry that could not be restored.
func (m *Metrics) RestoreSkipped() {
	if m == nil {
		return
	}
	m.RestoresSkipped.Inc()
}

// SetLive records the number of live descriptors.
func (m *Metrics) SetLive(n int) {
	if m == nil {
		return
	}
	m.LiveDescriptors.Set(float64(n))
}

// StepExecuted records one drained lifecycle step.
func (m *Metrics) StepExecuted() {
	if m == nil {
		return
	}
	m.StepsExecuted.Inc()
}
