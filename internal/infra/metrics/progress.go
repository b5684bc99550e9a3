package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(progressMutationsTotal) }

var progressMutationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "progress_mutations_total",
		Help:      "Plan mutations that touched the cached progress counters.",
	},
	[]string{"kind"}, // add|delete|done|undone|revoke|reset|recompute
)

func IncProgressMutation(kind string) {
	progressMutationsTotal.WithLabelValues(norm(kind)).Inc()
}
