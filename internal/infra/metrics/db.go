package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, dbPoolEmptyAcquires) }

// PoolSnapshot is the part of pgxpool.Stat exported as gauges.
type PoolSnapshot struct {
	Total, Idle, InUse, Max int32
	EmptyAcquires           int64
}

var (
	// state: total|idle|in_use|max
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "postgres",
			Name:      "pool_connections",
			Help:      "Postgres connections held for students, payments and plans, by state.",
		},
		[]string{"state"},
	)

	dbPoolEmptyAcquires = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "postgres",
			Name:      "pool_empty_acquires",
			Help:      "Acquires since start that found no idle connection and had to wait.",
		},
	)
)

func SetDBPoolStats(s PoolSnapshot) {
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("in_use").Set(float64(s.InUse))
	dbPoolConns.WithLabelValues("max").Set(float64(s.Max))
	dbPoolEmptyAcquires.Set(float64(s.EmptyAcquires))
}
