package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"course-enrollment/internal/domain/ports/adapter"
	"course-enrollment/internal/infra/logging"
)

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier logs alerts instead of sending them. Used when no bot token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logging.OrNop(logger)}
}

func (n *NoopNotifier) Notify(ctx context.Context, text string) error {
	n.log.Info().Str("text", text).Msg("[noop-telegram] admin notification")
	return nil
}
