package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		mailboxDeliveriesTotal,
		mailboxMessagesTotal,
		mailboxDeliveryDuration,
	)
}

var (
	// result: processed|empty_checkpoint|no_baseline|stale_checkpoint|history_expired|error
	mailboxDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_webhook_deliveries_total",
			Help:      "Mailbox webhook deliveries by outcome.",
		},
		[]string{"result"},
	)

	// result: filtered|no_code|matched|fetch_error|cached
	mailboxMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_messages_total",
			Help:      "Messages inspected by the mailbox ingestor.",
		},
		[]string{"result"},
	)

	mailboxDeliveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mailbox_delivery_duration_seconds",
			Help:      "Time spent processing one webhook delivery.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
)

func IncMailboxDelivery(result string) {
	mailboxDeliveriesTotal.WithLabelValues(norm(result)).Inc()
}

func IncMailboxMessage(result string) {
	mailboxMessagesTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveMailboxDelivery(seconds float64) {
	mailboxDeliveryDuration.Observe(seconds)
}
