package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"course-enrollment/internal/domain/ports/adapter"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/infra/metrics"
)

var _ adapter.Notifier = (*AsyncNotifier)(nil)

// AsyncNotifier hands alerts to the pool so callers never wait on delivery.
// Notify only fails when the alert could not be queued.
type AsyncNotifier struct {
	inner   adapter.Notifier
	pool    *Pool
	timeout time.Duration
	log     *zerolog.Logger
}

func NewAsyncNotifier(inner adapter.Notifier, pool *Pool, timeout time.Duration, logger *zerolog.Logger) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncNotifier{inner: inner, pool: pool, timeout: timeout, log: logging.OrNop(logger)}
}

func (n *AsyncNotifier) Notify(_ context.Context, text string) error {
	err := n.pool.Submit(func(ctx context.Context) error {
		// Delivery outlives the request that triggered it.
		sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		if err := n.inner.Notify(sendCtx, text); err != nil {
			metrics.IncNotification("error")
			return err
		}
		metrics.IncNotification("sent")
		return nil
	})
	if err != nil {
		metrics.IncNotification("dropped")
		n.log.Warn().Err(err).Msg("admin notification dropped")
	}
	return err
}
