// Package metrics holds the Prometheus instruments for registryhub.
//
// Instruments are registered on a registry owned by the Metrics value rather
// than the global default, so tests can build as many as they like.
package metrics

import (
	"context"
	"net/http"
	"time"

	metricsstore "github.com/dalemusser/registryhub/internal/app/store/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
)

// Metrics provides observability for the registration workflow.
type Metrics struct {
	registry *prometheus.Registry

	// Intake outcomes: created | invalid | duplicate | error
	Registrations *prometheus.CounterVec

	// Review decisions: approved | rejected
	Reviews *prometheus.CounterVec

	// Registry changes: updated | self_updated | deleted
	RegistryChanges *prometheus.CounterVec

	// Login outcomes: success | failure | rate_limited
	Logins *prometheus.CounterVec

	Exports       prometheus.Counter
	ExportLatency prometheus.Histogram

	// Blobs removed by the background sweep
	BlobsSwept prometheus.Counter
}

// New creates a Metrics instance with all instruments registered, plus the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registryhub_registrations_total",
			Help: "Applicant submissions by outcome",
		}, []string{"outcome"}),

		Reviews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registryhub_reviews_total",
			Help: "Review decisions by result",
		}, []string{"decision"}),

		RegistryChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registryhub_registry_changes_total",
			Help: "Changes to registry records by kind",
		}, []string{"kind"}),

		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registryhub_logins_total",
			Help: "Staff login attempts by outcome",
		}, []string{"outcome"}),

		Exports: f.NewCounter(prometheus.CounterOpts{
			Name: "registryhub_exports_total",
			Help: "Spreadsheet exports produced",
		}),

		ExportLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "registryhub_export_duration_seconds",
			Help:    "Time to build a registry spreadsheet",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		BlobsSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "registryhub_blobs_swept_total",
			Help: "Unreferenced attachment blobs deleted by the sweep worker",
		}),
	}
}

// Registry returns the registry holding every instrument.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WatchApplicants registers gauges reporting current applicant totals,
// read from db at scrape time.
func (m *Metrics) WatchApplicants(db *mongo.Database, timeout time.Duration) {
	m.registry.MustRegister(&applicantCollector{db: db, timeout: timeout})
}

// IncRegistration records an intake outcome.
func (m *Metrics) IncRegistration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

// IncReview records a review decision.
func (m *Metrics) IncReview(decision string) {
	if m != nil {
		m.Reviews.WithLabelValues(decision).Inc()
	}
}

// IncRegistryChange records a registry update or delete.
func (m *Metrics) IncRegistryChange(kind string) {
	if m != nil {
		m.RegistryChanges.WithLabelValues(kind).Inc()
	}
}

// IncLogin records a login outcome.
func (m *Metrics) IncLogin(outcome string) {
	if m != nil {
		m.Logins.WithLabelValues(outcome).Inc()
	}
}

// ObserveExport records a finished export.
func (m *Metrics) ObserveExport(d time.Duration) {
	if m != nil {
		m.Exports.Inc()
		m.ExportLatency.Observe(d.Seconds())
	}
}

// AddBlobsSwept records deleted blobs.
func (m *Metrics) AddBlobsSwept(n int) {
	if m != nil && n > 0 {
		m.BlobsSwept.Add(float64(n))
	}
}

var applicantsDesc = prometheus.NewDesc(
	"registryhub_applicants",
	"Current applicant records by status",
	[]string{"status"}, nil,
)

type applicantCollector struct {
	db      *mongo.Database
	timeout time.Duration
}

func (c *applicantCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- applicantsDesc
}

func (c *applicantCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts := metricsstore.FetchCounts(ctx, c.db)
	ch <- prometheus.MustNewConstMetric(applicantsDesc, prometheus.GaugeValue, float64(counts.Pending), "pending")
	ch <- prometheus.MustNewConstMetric(applicantsDesc, prometheus.GaugeValue, float64(counts.Rejected), "rejected")
	ch <- prometheus.MustNewConstMetric(applicantsDesc, prometheus.GaugeValue, float64(counts.Approved), "approved")
}
