package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is served on /api/metrics
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// Buckets span fast local validation up to slow image uploads
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34}

	// HTTP Metrics
	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Upload Client Metrics
	UploadRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upload_client_operation_duration_seconds",
			Help:    "Image upload operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"backend", "status"},
	)

	UploadRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_client_operation_total",
			Help: "Total number of image upload operations",
		},
		[]string{"backend", "status"},
	)

	// Record Client Metrics
	RecordRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "record_client_operation_duration_seconds",
			Help:    "Application record creation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"status"},
	)

	RecordRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_client_operation_total",
			Help: "Total number of application record creation calls",
		},
		[]string{"status"},
	)

	// Business Metrics
	Submissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "induction_submissions_total",
			Help: "Submission attempts by outcome",
		},
		[]string{"outcome"}, // succeeded, failed, invalid, ignored
	)

	StateTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "induction_state_transitions_total",
			Help: "Submission state machine transitions",
		},
		[]string{"from", "to"},
	)

	SignIns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "induction_sign_ins_total",
			Help: "Identity sign-in attempts",
		},
		[]string{"status"},
	)

	ActiveSessions = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "induction_active_sessions",
			Help: "Number of form sessions held in memory",
		},
	)

	// Infrastructure Metrics
	HeapAlloc = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
}

// RecordInfrastructureMetrics collects infrastructure metrics periodically
func RecordInfrastructureMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			HeapAlloc.Set(float64(m.HeapAlloc))
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
