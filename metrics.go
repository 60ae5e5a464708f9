package jwtgate

import (
	"errors"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics records core and jwks metrics with Prometheus. Vectors
// are created on first use, labelled with the tag names of that first call.
// It satisfies both core.Metrics and jwks.Metrics.
type PrometheusMetrics struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

var metricHelp = map[string]string{
	"jwtgate_verifications_total":           "Bearer token verifications by result and failure code.",
	"jwtgate_verification_duration_seconds": "Time spent verifying a bearer token.",
	"jwtgate_jwks_refresh_total":            "Signing key document fetches by result.",
}

// NewPrometheusMetrics returns metrics registered with reg, or with
// prometheus.DefaultRegisterer when reg is nil.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusMetrics{
		registerer: reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (m *PrometheusMetrics) IncCounter(name string, tags map[string]string) {
	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = register(m.registerer, prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help(name)}, labelNames(tags)))
		m.counters[name] = vec
	}
	m.mu.Unlock()

	if counter, err := vec.GetMetricWith(tags); err == nil {
		counter.Inc()
	}
}

func (m *PrometheusMetrics) ObserveHistogram(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	vec, ok := m.histograms[name]
	if !ok {
		vec = register(m.registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    help(name),
			Buckets: prometheus.DefBuckets,
		}, labelNames(tags)))
		m.histograms[name] = vec
	}
	m.mu.Unlock()

	if observer, err := vec.GetMetricWith(tags); err == nil {
		observer.Observe(value)
	}
}

// register registers c, reusing the collector already registered under the
// same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func help(name string) string {
	if h, ok := metricHelp[name]; ok {
		return h
	}
	return name
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
