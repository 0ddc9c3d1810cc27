// Package metrics exposes the Prometheus collectors for the API server and
// the derivation workers, all registered on a private registry so tests can
// create isolated instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the process registers.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequestDuration observes handler latency by route, method and status.
	HTTPRequestDuration *prometheus.HistogramVec

	// UploadsTotal counts upload attempts by outcome (ok, duplicate, rejected, error).
	UploadsTotal *prometheus.CounterVec

	// UploadBytesTotal counts bytes accepted into object storage.
	UploadBytesTotal prometheus.Counter

	// WorkerMessagesTotal counts processed bus messages by subject and disposition.
	WorkerMessagesTotal *prometheus.CounterVec

	// WorkerDuration observes per-message handler latency by subject.
	WorkerDuration *prometheus.HistogramVec
}

// Upload outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// New creates a Metrics instance backed by a fresh registry that also carries
// the standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Metrics{
		registry: reg,
		HTTPRequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "chronolens_http_request_duration_milliseconds",
				Help: "Duration of HTTP requests in milliseconds",
				Buckets: []float64{
					5,     // 5ms - cached reads
					25,    // 25ms
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s
					5000,  // 5s - large uploads
					30000, // 30s
				},
			},
			[]string{"route", "method", "status"},
		),
		UploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chronolens_uploads_total",
				Help: "Total number of upload attempts by outcome",
			},
			[]string{"outcome"},
		),
		UploadBytesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "chronolens_upload_bytes_total",
				Help: "Total bytes accepted into object storage",
			},
		),
		WorkerMessagesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chronolens_worker_messages_total",
				Help: "Total bus messages processed by subject and disposition",
			},
			[]string{"subject", "disposition"},
		),
		WorkerDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "chronolens_worker_message_duration_milliseconds",
				Help: "Per-message worker handler duration in milliseconds",
				Buckets: []float64{
					10,    // 10ms
					100,   // 100ms - small previews
					500,   // 500ms
					1000,  // 1s
					5000,  // 5s - large originals
					30000, // 30s
				},
			},
			[]string{"subject"},
		),
	}
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
