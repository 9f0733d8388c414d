package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makerspace_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "makerspace_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BookingsTotal counts booking requests by outcome: confirmed, pending,
	// conflict, forbidden, rejected or error.
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makerspace_equipment_bookings_total",
			Help: "Total number of equipment booking requests by outcome",
		},
		[]string{"outcome", "kind"},
	)

	BookedSlotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "makerspace_equipment_booked_slots_total",
			Help: "Total number of slots booked",
		},
	)

	CancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makerspace_equipment_cancellations_total",
			Help: "Total number of cancellation requests by outcome",
		},
		[]string{"outcome"},
	)

	RefundedCentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "makerspace_refunds_computed_cents_total",
			Help: "Sum of computed refunds in cents",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makerspace_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "makerspace_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "makerspace_events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"type", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordBooking counts one request; kind is "single" or "bulk".
func RecordBooking(outcome, kind string, slots int) {
	BookingsTotal.WithLabelValues(outcome, kind).Inc()
	if outcome == "confirmed" || outcome == "pending" {
		BookedSlotsTotal.Add(float64(slots))
	}
}

func RecordCancellation(outcome string, refundCents int64) {
	CancellationsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" && refundCents > 0 {
		RefundedCentsTotal.Add(float64(refundCents))
	}
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordEventPublished(eventType, status string) {
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
