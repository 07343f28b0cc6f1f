package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "civicpulse"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Background job metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Background job attempts by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job execution time distribution",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"type"},
	)

	JobsQueued = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_queued",
			Help:      "Jobs in the queue by status, refreshed by the maintenance schedule",
		},
		[]string{"status"},
	)

	JobsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_purged_total",
			Help:      "Finished jobs removed by maintenance",
		},
	)
)

// Complaint lifecycle metrics
var (
	ComplaintsFiled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "complaints_filed_total",
			Help:      "Total number of complaints filed",
		},
	)

	ComplaintTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "complaint_transitions_total",
			Help:      "Committed lifecycle operations by operation",
		},
		[]string{"operation"},
	)

	ComplaintTransitionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "complaint_transition_errors_total",
			Help:      "Rejected or failed lifecycle operations by operation and error code",
		},
		[]string{"operation", "code"},
	)

	ComplaintsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "complaints",
			Help:      "Complaints by status, refreshed by the maintenance schedule",
		},
		[]string{"status"},
	)

	GeofenceDistance = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_distance_meters",
			Help:      "Distance between reported site and resolving officer",
			Buckets:   []float64{10, 25, 50, 100, 150, 200, 300, 500, 1000, 5000},
		},
	)
)

// Notification metrics
var (
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "In-app notifications written by type",
		},
		[]string{"type"},
	)

	NotificationPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_pushes_total",
			Help:      "Live notification pushes by result",
		},
		[]string{"result"},
	)

	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers",
			Help:      "Open notification stream connections",
		},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Outbound emails by provider and result",
		},
		[]string{"provider", "result"},
	)
)

// One-time code metrics
var (
	OTPIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_issued_total",
			Help:      "One-time codes generated",
		},
	)

	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "One-time code verification attempts by result",
		},
		[]string{"result"},
	)
)
