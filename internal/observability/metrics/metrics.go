// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the triage pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	analysesTotal        *prometheus.CounterVec
	analysisDuration     prometheus.Histogram
	inputRejectedTotal   *prometheus.CounterVec
	remoteErrorsTotal    *prometheus.CounterVec
	injectionHitsTotal   prometheus.Counter
	rateLimitedTotal     prometheus.Counter
	feedbackRecordsTotal prometheus.Counter
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "triage",
				Subsystem:   "http",
				Name:        "requests_total",
				Help:        "Total HTTP requests processed.",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   "triage",
				Subsystem:   "http",
				Name:        "request_duration_seconds",
				Help:        "HTTP request duration in seconds.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"method", "path"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   "triage",
				Subsystem:   "http",
				Name:        "in_flight_requests",
				Help:        "Number of in-flight HTTP requests.",
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
		analysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "triage",
				Subsystem:   "pipeline",
				Name:        "analyses_total",
				Help:        "Completed analyses by arbitration source and category.",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"source", "category"},
		),
		analysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   "triage",
				Subsystem:   "pipeline",
				Name:        "analysis_duration_seconds",
				Help:        "End-to-end analysis duration in seconds.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
		inputRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "triage",
				Subsystem:   "pipeline",
				Name:        "input_rejected_total",
				Help:        "Inputs rejected during validation/extraction, by reason class.",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"reason"},
		),
		remoteErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "triage",
				Subsystem:   "pipeline",
				Name:        "remote_errors_total",
				Help:        "Remote classifier failures by kind.",
				ConstLabels: prometheus.Labels{"service": service},
			},
			[]string{"kind"},
		),
		injectionHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   "triage",
				Subsystem:   "pipeline",
				Name:        "injection_detections_total",
				Help:        "Analyses whose raw input matched injection signatures.",
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
		rateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   "triage",
				Subsystem:   "http",
				Name:        "rate_limited_total",
				Help:        "Requests rejected by per-client admission control.",
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
		feedbackRecordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   "triage",
				Subsystem:   "pipeline",
				Name:        "feedback_records_total",
				Help:        "Feedback entries durably recorded.",
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.analysesTotal,
		m.analysisDuration,
		m.inputRejectedTotal,
		m.remoteErrorsTotal,
		m.injectionHitsTotal,
		m.rateLimitedTotal,
		m.feedbackRecordsTotal,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RequestStarted()  { m.requestInFlight.Inc() }
func (m *Metrics) RequestFinished() { m.requestInFlight.Dec() }

func (m *Metrics) ObserveAnalysis(source, category string, duration time.Duration) {
	m.analysesTotal.WithLabelValues(source, category).Inc()
	m.analysisDuration.Observe(duration.Seconds())
}

func (m *Metrics) InputRejected(reason string) {
	m.inputRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RemoteError(kind string) {
	m.remoteErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) InjectionDetected() { m.injectionHitsTotal.Inc() }
func (m *Metrics) RateLimited()       { m.rateLimitedTotal.Inc() }
func (m *Metrics) FeedbackRecorded()  { m.feedbackRecordsTotal.Inc() }
