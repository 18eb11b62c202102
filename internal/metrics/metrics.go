// Package metrics exposes Prometheus collectors for the mood map. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moodmap"

// Metrics holds every collector the service records into
type Metrics struct {
	registry *prometheus.Registry

	moodsAdded    *prometheus.CounterVec
	storeSize     prometheus.Gauge
	clicks        *prometheus.CounterVec
	assetLoads    *prometheus.CounterVec
	renderChanges *prometheus.CounterVec
	sourceUpdates *prometheus.CounterVec
}

// New creates and registers the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		moodsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moods_added_total",
			Help:      "Mood observations added, by rating.",
		}, []string{"mood"}),
		storeSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_observations",
			Help:      "Observations currently held in memory.",
		}),
		clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_clicks_total",
			Help:      "Map clicks by target and outcome.",
		}, []string{"target", "outcome"}),
		assetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_loads_total",
			Help:      "Icon asset loads by outcome.",
		}, []string{"outcome"}),
		renderChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_changes_total",
			Help:      "Rendered features touched by reconciliation, by kind.",
		}, []string{"kind"}),
		sourceUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_updates_total",
			Help:      "Source data submissions by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.moodsAdded,
		m.storeSize,
		m.clicks,
		m.assetLoads,
		m.renderChanges,
		m.sourceUpdates,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// MoodAdded records one new observation and the resulting store size
func (m *Metrics) MoodAdded(mood, storeSize int) {
	if m == nil {
		return
	}
	m.moodsAdded.WithLabelValues(strconv.Itoa(mood)).Inc()
	m.storeSize.Set(float64(storeSize))
}

// StoreSize records the store size after a bulk replace
func (m *Metrics) StoreSize(n int) {
	if m == nil {
		return
	}
	m.storeSize.Set(float64(n))
}

// Click records a click outcome, e.g. ("cluster", "zoomed")
func (m *Metrics) Click(target, outcome string) {
	if m == nil {
		return
	}
	m.clicks.WithLabelValues(target, outcome).Inc()
}

// AssetLoad records one asset load attempt
func (m *Metrics) AssetLoad(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.assetLoads.WithLabelValues(outcome).Inc()
}

// RenderDiff records the size of one reconciliation pass
func (m *Metrics) RenderDiff(added, updated, removed int) {
	if m == nil {
		return
	}
	m.renderChanges.WithLabelValues("added").Add(float64(added))
	m.renderChanges.WithLabelValues("updated").Add(float64(updated))
	m.renderChanges.WithLabelValues("removed").Add(float64(removed))
}

// SourceUpdate records whether a data submission changed the source
func (m *Metrics) SourceUpdate(changed bool) {
	if m == nil {
		return
	}
	result := "unchanged"
	if changed {
		result = "changed"
	}
	m.sourceUpdates.WithLabelValues(result).Inc()
}
