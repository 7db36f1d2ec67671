package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safety_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "safety_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})
)

// Report ledger metrics
var (
	ReportsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safety_reports_submitted_total",
		Help: "Total number of accepted report submissions",
	}, []string{"target_type", "priority"})

	ReportConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_report_conflicts_total",
		Help: "Total number of duplicate report submissions rejected",
	})

	ReportReviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safety_report_reviews_total",
		Help: "Total number of admin report decisions",
	}, []string{"status"})

	EscalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safety_escalations_total",
		Help: "Report count increments by resulting moderation status",
	}, []string{"status"})
)

// Enforcement metrics
var (
	EnforcementActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safety_enforcement_actions_total",
		Help: "Total number of enforcement state changes",
	}, []string{"action"})

	SuspensionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_suspensions_expired_total",
		Help: "Total number of suspensions lifted by lazy expiry",
	})

	GateDenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safety_gate_denials_total",
		Help: "Total number of requests denied by the authorization gate",
	}, []string{"reason"})
)

// Alert metrics
var (
	AlertsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safety_alerts_delivered_total",
		Help: "Total number of alert deliveries by kind and outcome",
	}, []string{"kind", "outcome"})

	AlertsDeduplicatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_alerts_deduplicated_total",
		Help: "Total number of admin alerts skipped as duplicates",
	})

	AlertQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "safety_alert_queue_depth",
		Help: "Number of events waiting in the alert queue",
	})

	AlertEventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_alert_events_dropped_total",
		Help: "Total number of alert events dropped because the queue was full",
	})
)
