package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"course-enrollment/internal/infra/logging"
)

// WatchRenewal is the part of the watch use case the renewer drives.
type WatchRenewal interface {
	RenewIfDue(ctx context.Context, before time.Duration) (bool, error)
}

// WatchRenewer periodically re-establishes the mailbox push subscription
// before it lapses. A lapsed watch silently stops webhook deliveries.
type WatchRenewer struct {
	uc       WatchRenewal
	interval time.Duration // how often to check
	before   time.Duration // renew when expiry is closer than this
	log      *zerolog.Logger
}

func NewWatchRenewer(uc WatchRenewal, interval, before time.Duration, logger *zerolog.Logger) *WatchRenewer {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if before <= 0 {
		before = 24 * time.Hour
	}
	return &WatchRenewer{uc: uc, interval: interval, before: before, log: logging.OrNop(logger)}
}

// Start checks once immediately, then on every tick until ctx is done.
func (w *WatchRenewer) Start(ctx context.Context) {
	w.tick(ctx)
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *WatchRenewer) tick(ctx context.Context) {
	renewed, err := w.uc.RenewIfDue(ctx, w.before)
	if err != nil {
		w.log.Error().Err(err).Msg("watch-renewer: renewal failed")
		return
	}
	if renewed {
		w.log.Info().Msg("watch-renewer: mailbox watch renewed")
	}
}
