// File: internal/usecase/watch_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"course-enrollment/internal/domain"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/domain/ports/adapter"
	"course-enrollment/internal/domain/ports/repository"
	"course-enrollment/internal/infra/logging"
)

// Compile-time check
var _ WatchUseCase = (*watchUC)(nil)

// WatchUseCase (re)establishes the mailbox push subscription. Every renewal
// stores the watch's history id as the baseline the ingestor resumes from.
type WatchUseCase interface {
	Renew(ctx context.Context) (*model.MailboxCheckpoint, error)
	// RenewIfDue renews when the stored watch expires within before, or when
	// no watch has been recorded yet. It reports whether a renewal happened.
	RenewIfDue(ctx context.Context, before time.Duration) (bool, error)
}

type watchUC struct {
	checkpoints repository.MailboxCheckpointRepository
	mailbox     adapter.MailboxClient
	topic       string
	now         func() time.Time
	log         *zerolog.Logger
}

func NewWatchUseCase(checkpoints repository.MailboxCheckpointRepository, mailbox adapter.MailboxClient, topic string, logger *zerolog.Logger) *watchUC {
	return &watchUC{
		checkpoints: checkpoints,
		mailbox:     mailbox,
		topic:       strings.TrimSpace(topic),
		now:         time.Now,
		log:         logging.OrNop(logger),
	}
}

func (u *watchUC) Renew(ctx context.Context) (*model.MailboxCheckpoint, error) {
	defer logging.TraceDuration(u.log, "WatchUC.Renew")()

	if u.mailbox == nil || u.topic == "" {
		return nil, domain.ErrMailboxNotConfigured
	}
	res, err := u.mailbox.Watch(ctx, u.topic)
	if err != nil {
		return nil, err
	}

	cp, err := u.checkpoints.Get(ctx, repository.NoTX)
	if errors.Is(err, domain.ErrNotFound) {
		cp = &model.MailboxCheckpoint{}
	} else if err != nil {
		return nil, err
	}

	cp.Enabled = true
	cp.WatchTopic = u.topic
	cp.WatchExpiration = res.Expiration
	// The watch seed becomes the new baseline, which also recovers a
	// checkpoint the mailbox no longer keeps history for.
	if seed := strings.TrimSpace(res.HistoryID); seed != "" {
		cp.LastHistoryID = seed
	}
	cp.UpdatedAt = u.now()
	if err := u.checkpoints.Save(ctx, repository.NoTX, cp); err != nil {
		return nil, err
	}

	ev := u.log.Info().Str("topic", u.topic).Str("history_id", cp.LastHistoryID)
	if cp.WatchExpiration != nil {
		ev = ev.Time("expires_at", *cp.WatchExpiration)
	}
	ev.Msg("mailbox watch renewed")
	return cp, nil
}

func (u *watchUC) RenewIfDue(ctx context.Context, before time.Duration) (bool, error) {
	defer logging.TraceDuration(u.log, "WatchUC.RenewIfDue")()

	cp, err := u.checkpoints.Get(ctx, repository.NoTX)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Never watched; the first watch is an explicit operator action.
		return false, nil
	case err != nil:
		return false, err
	}
	if !cp.Enabled {
		return false, nil
	}
	if cp.WatchExpiration != nil && cp.WatchExpiration.Sub(u.now()) > before {
		return false, nil
	}
	if _, err := u.Renew(ctx); err != nil {
		return false, err
	}
	return true, nil
}
