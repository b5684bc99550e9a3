package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheLookupsTotal) }

// Cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// cache: fx_rate
var cacheLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Redis read-through lookups in front of Postgres (FX rates for checkout pricing).",
	},
	[]string{"cache", "result"},
)

// IncCacheLookup counts one lookup. An error is a failed Redis read that
// fell through to Postgres.
func IncCacheLookup(cache, result string) {
	cacheLookupsTotal.WithLabelValues(norm(cache), norm(result)).Inc()
}
