package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every collector exported by the enrollment API.
const namespace = "course_enrollment"

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register queues collectors from each file's init.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister adds the queued collectors to the default registry once.
func MustRegister() {
	once.Do(func() { registerAll(prometheus.DefaultRegisterer) })
}

func registerAll(r prometheus.Registerer) {
	if len(collectors) > 0 {
		r.MustRegister(collectors...)
	}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
