package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livebook_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "livebook_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	BookingTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livebook_booking_transitions_total",
		Help: "Applied booking lifecycle transitions.",
	}, []string{"action"})

	StaleWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livebook_booking_stale_writes_total",
		Help: "Booking writes rejected by the optimistic version check.",
	})

	DeliverableFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livebook_deliverable_files_total",
		Help: "Deliverable files uploaded by storage backend and result.",
	}, []string{"backend", "result"})

	DisputesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livebook_disputes_total",
		Help: "Dispute state changes.",
	}, []string{"status"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livebook_notifications_total",
		Help: "Notification deliveries by channel, type and result.",
	}, []string{"channel", "type", "result"})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livebook_jobs_processed_total",
		Help: "Scheduled jobs processed by type and result.",
	}, []string{"type", "result"})
)

// ObserveTransition учитывает применённый переход бронирования.
func ObserveTransition(action string) {
	BookingTransitionsTotal.WithLabelValues(action).Inc()
}
