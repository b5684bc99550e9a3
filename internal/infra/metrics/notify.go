package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal) }

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Operator alerts by delivery status.",
	},
	[]string{"result"}, // sent|error|dropped
)

func IncNotification(result string) {
	notificationsTotal.WithLabelValues(norm(result)).Inc()
}
