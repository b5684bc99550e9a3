package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentActivationTotal,
		checkoutIntentsTotal,
		paymentsAmountTotal,
	)
}

var (
	// path: code|manual
	// result: activated|already_activated|rejected|already_rejected|not_found|noop|error
	paymentActivationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_activation_total",
			Help:      "Activation decisions by entry path and outcome.",
		},
		[]string{"path", "result"},
	)

	// result: created|validation|blocked|rate_limited|error
	checkoutIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_intents_total",
			Help:      "Checkout intent requests by outcome.",
		},
		[]string{"result"},
	)

	paymentsAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_amount_total",
			Help:      "Sum of checkout amounts in the smallest currency unit, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncActivation(path, result string) {
	paymentActivationTotal.WithLabelValues(norm(path), norm(result)).Inc()
}

func IncCheckoutIntent(result string) {
	checkoutIntentsTotal.WithLabelValues(norm(result)).Inc()
}

func AddCheckoutAmount(currency string, amount int64) {
	paymentsAmountTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
