// Package metrics exposes Prometheus series for the twin server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Synthesis outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeSuperseded = "superseded"
	OutcomeTimeout    = "timeout"
	OutcomeError      = "error"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
// A nil *Metrics discards everything.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	synthRuns           *prometheus.CounterVec
	synthDuration       prometheus.Histogram
	sceneDevices        prometheus.Gauge
	modelLoads          *prometheus.CounterVec
	findings            *prometheus.GaugeVec
	eventSubscribers    prometheus.Gauge
}

// New creates a fresh registry with every series registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twin",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests processed",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "twin",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		synthRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twin",
			Name:      "synth_runs_total",
			Help:      "Scene syntheses by outcome",
		}, []string{"outcome"}),
		synthDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "twin",
			Name:      "synth_duration_seconds",
			Help:      "Duration of scene syntheses from start to attach",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		sceneDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "twin",
			Name:      "scene_devices",
			Help:      "Devices in the attached scene",
		}),
		modelLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twin",
			Name:      "model_loads_total",
			Help:      "Model asset loads by result",
		}, []string{"result"}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "twin",
			Name:      "findings",
			Help:      "Data-quality findings in the attached scene",
		}, []string{"severity"}),
		eventSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "twin",
			Name:      "event_subscribers",
			Help:      "Open event stream connections",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpRequestDuration,
		m.synthRuns,
		m.synthDuration,
		m.sceneDevices,
		m.modelLoads,
		m.findings,
		m.eventSubscribers,
	)
	return m
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveSynth records one synthesis and its outcome.
func (m *Metrics) ObserveSynth(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.synthRuns.WithLabelValues(outcome).Inc()
	m.synthDuration.Observe(duration.Seconds())
}

// SetScene records the device and finding counts of the attached scene.
func (m *Metrics) SetScene(devices, errors, warnings int) {
	if m == nil {
		return
	}
	m.sceneDevices.Set(float64(devices))
	m.findings.WithLabelValues("error").Set(float64(errors))
	m.findings.WithLabelValues("warning").Set(float64(warnings))
}

// IncModelLoad counts one model load result (loaded, cached or fallback).
func (m *Metrics) IncModelLoad(result string) {
	if m == nil {
		return
	}
	m.modelLoads.WithLabelValues(result).Inc()
}

// AddSubscribers adjusts the open event stream gauge.
func (m *Metrics) AddSubscribers(delta int) {
	if m == nil {
		return
	}
	m.eventSubscribers.Add(float64(delta))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
