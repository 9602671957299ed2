// Package metrics holds the Prometheus collectors for the extraction service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is registered on its own registry, so several instances can coexist in tests.
//
// Metrics:
//   - subscriptions_requests_total{operation,outcome}
//   - subscriptions_extraction_duration_seconds{outcome}
//   - subscriptions_prefilter_decisions_total{reason}
//   - subscriptions_services_detected_total{resolved}
//   - subscriptions_audit_write_failures_total
//   - subscriptions_attachment_failures_total
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal           *prometheus.CounterVec
	ExtractionDuration      *prometheus.HistogramVec
	PrefilterDecisions      *prometheus.CounterVec
	ServicesDetected        *prometheus.CounterVec
	AuditWriteFailures      prometheus.Counter
	AttachmentFetchFailures prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subscriptions_requests_total",
			Help: "Extraction requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		ExtractionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subscriptions_extraction_duration_seconds",
			Help:    "Latency of calls to the extraction service",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"outcome"}),
		PrefilterDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subscriptions_prefilter_decisions_total",
			Help: "Mailbox pre-filter decisions by reason",
		}, []string{"reason"}),
		ServicesDetected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "subscriptions_services_detected_total",
			Help: "Services returned to callers, split by whether a registry id was assigned",
		}, []string{"resolved"}),
		AuditWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "subscriptions_audit_write_failures_total",
			Help: "Audit entries that could not be written",
		}),
		AttachmentFetchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "subscriptions_attachment_failures_total",
			Help: "Mailbox attachments skipped because the download failed",
		}),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveExtraction(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObservePrefilter(reason string) {
	if m == nil {
		return
	}
	m.PrefilterDecisions.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveServices(resolved, unresolved int) {
	if m == nil {
		return
	}
	m.ServicesDetected.WithLabelValues("true").Add(float64(resolved))
	m.ServicesDetected.WithLabelValues("false").Add(float64(unresolved))
}

func (m *Metrics) AuditFailed() {
	if m == nil {
		return
	}
	m.AuditWriteFailures.Inc()
}

func (m *Metrics) AttachmentFailed() {
	if m == nil {
		return
	}
	m.AttachmentFetchFailures.Inc()
}
