package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventos_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventos_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// StateTransitions counts lifecycle transition attempts by outcome
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventos_state_transitions_total",
			Help: "Event state transition attempts",
		},
		[]string{"from", "to", "result"},
	)

	StockRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventos_stock_rejections_total",
			Help: "Operations rejected for insufficient stock",
		},
	)

	PaymentsRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventos_payments_total",
			Help: "Payments and refunds registered",
		},
		[]string{"tipo", "origen"},
	)

	WhatsAppMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventos_whatsapp_messages_total",
			Help: "WhatsApp send attempts by result",
		},
		[]string{"tipo", "result"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventos_notification_failures_total",
			Help: "Notification sink failures",
		},
		[]string{"sink"},
	)
)

// Result turns an error into a metric label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
