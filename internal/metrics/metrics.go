package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Withdrawals
	WithdrawalsRequested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "withdrawals_requested_total",
			Help: "Withdrawal requests accepted",
		},
	)
	WithdrawalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdrawals_rejected_total",
			Help: "Withdrawal requests rejected, by error kind",
		},
		[]string{"kind"},
	)
	WithdrawalTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "withdrawal_transitions_total",
			Help: "Withdrawal status transitions, by target status",
		},
		[]string{"status"},
	)

	// Notifications
	NotificationsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Outbox intents delivered, by channel",
		},
		[]string{"channel"},
	)
	NotificationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Outbox delivery attempts that failed, by channel and outcome (retry|dead)",
		},
		[]string{"channel", "outcome"},
	)
	OutboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_outbox_depth",
			Help: "Undelivered outbox intents after the last drain",
		},
	)
	PendingMessagesSwept = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pending_message_notifications_total",
			Help: "Delayed message notifications processed by the sweep, by result status",
		},
		[]string{"status"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// Handler serves /metrics.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(
		RequestsTotal,
		WithdrawalsRequested,
		WithdrawalsRejected,
		WithdrawalTransitions,
		NotificationsDelivered,
		NotificationsFailed,
		OutboxDepth,
		PendingMessagesSwept,
		WorkerQueueDepth,
	)
}
