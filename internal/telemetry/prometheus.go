package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics is a Metrics backed by ad-hoc-registered prometheus
// collectors, grounded on the register-vectors-by-name-on-first-use shape
// of cuemby-warren's pkg/metrics package (that package pre-declares every
// metric as a package var; this node's metric names are only known at
// call time, so collectors are created and registered lazily instead).
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics constructs a Metrics recorder backed by its own
// prometheus.Registry (not the global default, so repeated construction in
// tests never panics on duplicate registration).
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// Handler exposes the registry's collectors on the standard
// /metrics scrape format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PrometheusMetrics) IncCounter(name string, value float64, tags ...string) {
	labels, values := splitTags(tags)
	c := m.counterVec(name, labels)
	c.WithLabelValues(values...).Add(value)
}

func (m *PrometheusMetrics) RecordTimer(name string, d time.Duration, tags ...string) {
	labels, values := splitTags(tags)
	h := m.histogramVec(name, labels)
	h.WithLabelValues(values...).Observe(d.Seconds())
}

func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags ...string) {
	labels, values := splitTags(tags)
	g := m.gaugeVec(name, labels)
	g.WithLabelValues(values...).Set(value)
}

func (m *PrometheusMetrics) counterVec(name string, labels []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, labels)
		m.registry.MustRegister(c)
		m.counters[name] = c
	}
	return c
}

func (m *PrometheusMetrics) histogramVec(name string, labels []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name, Buckets: prometheus.DefBuckets}, labels)
		m.registry.MustRegister(h)
		m.histograms[name] = h
	}
	return h
}

func (m *PrometheusMetrics) gaugeVec(name string, labels []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, labels)
		m.registry.MustRegister(g)
		m.gauges[name] = g
	}
	return g
}

// splitTags turns a flat "key1", "value1", "key2", "value2" tag list (the
// shape every node caller passes) into parallel label-name/label-value
// slices for prometheus's WithLabelValues.
func splitTags(tags []string) (labels, values []string) {
	for i := 0; i+1 < len(tags); i += 2 {
		labels = append(labels, tags[i])
		values = append(values, tags[i+1])
	}
	return labels, values
}
