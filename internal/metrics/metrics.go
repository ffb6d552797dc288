package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, recorded by the server middleware.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "benchhub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "benchhub_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Engine metrics, recorded by the queue manager and the executor.
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchhub_runs_total",
			Help: "Total number of runs by terminal state",
		},
		[]string{"status"},
	)

	RunActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "benchhub_run_active",
			Help: "Whether a run currently occupies the worker slot (0 or 1)",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "benchhub_queue_depth",
			Help: "Number of runs waiting in the FIFO backlog",
		},
	)

	QuestionsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchhub_questions_scored_total",
			Help: "Questions scored per benchmark, by outcome (correct, incorrect, skipped)",
		},
		[]string{"benchmark_id", "outcome"},
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchhub_provider_retries_total",
			Help: "Provider call retries by error kind",
		},
		[]string{"provider", "kind"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "benchhub_provider_call_duration_seconds",
			Help:    "Duration of provider generate calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	ProgressEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "benchhub_progress_events_dropped_total",
			Help: "Progress events dropped because a subscriber could not keep up",
		},
	)
)
